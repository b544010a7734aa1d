package buffer

import (
	"sync"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LRUReplacer hands out empty frames first (free list), then the frame
// that was unpinned or accessed longest ago.
type LRUReplacer struct {
	replacerShared
	mu        sync.Mutex
	lru       *simplelru.LRU[int, struct{}] // unpinned, occupied frames
	nextFree  []int                         // Free list for allocation
	inFree    []bool
	freeHead  int // Head of free list
	freeCount int
}

func NewLRUReplacer(size int) *LRUReplacer {
	shared := newReplacerShared(size)
	cache, err := simplelru.NewLRU[int, struct{}](size, nil)
	if err != nil {
		panic(err)
	}

	lr := &LRUReplacer{
		replacerShared: shared,
		lru:            cache,
		nextFree:       make([]int, size),
		inFree:         make([]bool, size),
		freeHead:       0,
		freeCount:      size,
	}
	for i := 0; i < size; i++ {
		lr.nextFree[i] = i + 1
		lr.inFree[i] = true
	}
	lr.nextFree[size-1] = -1
	return lr
}

// Pin marks a frame as pinned (cannot be evicted)
func (lr *LRUReplacer) Pin(frameIdx int) error {
	if err := lr.checkFrame(frameIdx); err != nil {
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()

	lr.lru.Remove(frameIdx)
	if lr.inFree[frameIdx] {
		lr.removeFromFree(frameIdx)
	}
	return nil
}

// Unpin moves the frame to the most recent end
func (lr *LRUReplacer) Unpin(frameIdx int) error {
	if err := lr.checkFrame(frameIdx); err != nil {
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.inFree[frameIdx] {
		lr.removeFromFree(frameIdx)
	}
	lr.lru.Add(frameIdx, struct{}{})
	return nil
}

func (lr *LRUReplacer) Free(frameIdx int) error {
	if err := lr.checkFrame(frameIdx); err != nil {
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()

	lr.lru.Remove(frameIdx)
	if !lr.inFree[frameIdx] {
		lr.returnFrameToFree(frameIdx)
	}
	return nil
}

// Access refreshes recency of a frame that is already a candidate
func (lr *LRUReplacer) Access(frameIdx int) error {
	if err := lr.checkFrame(frameIdx); err != nil {
		return err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()

	lr.lru.Get(frameIdx)
	return nil
}

func (lr *LRUReplacer) Evict() (int, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if freeIdx := lr.allocFromFree(); freeIdx != -1 {
		return freeIdx, nil
	}
	if frameIdx, _, ok := lr.lru.RemoveOldest(); ok {
		return frameIdx, nil
	}
	return -1, util.ErrNoFreeFrame
}

func (lr *LRUReplacer) Size() int {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.lru.Len() + lr.freeCount
}

// allocFromFree allocates a free frame index.
func (lr *LRUReplacer) allocFromFree() int {
	if lr.freeHead == -1 {
		return -1
	}
	freeIdx := lr.freeHead
	lr.freeHead = lr.nextFree[freeIdx]
	lr.nextFree[freeIdx] = -1
	lr.inFree[freeIdx] = false
	lr.freeCount--
	return freeIdx
}

// returnFrameToFree returns a frame to the free list.
func (lr *LRUReplacer) returnFrameToFree(frameIdx int) {
	lr.nextFree[frameIdx] = lr.freeHead
	lr.freeHead = frameIdx
	lr.inFree[frameIdx] = true
	lr.freeCount++
}

func (lr *LRUReplacer) removeFromFree(frameIdx int) {
	if lr.freeHead == frameIdx {
		lr.allocFromFree()
		return
	}
	for prev := lr.freeHead; prev != -1; prev = lr.nextFree[prev] {
		if lr.nextFree[prev] == frameIdx {
			lr.nextFree[prev] = lr.nextFree[frameIdx]
			lr.nextFree[frameIdx] = -1
			lr.inFree[frameIdx] = false
			lr.freeCount--
			return
		}
	}
}
