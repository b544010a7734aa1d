package buffer

import (
	"sync"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
)

// DeterministicReplacer always evicts the lowest-numbered candidate, which
// makes the frame a page lands in predictable for tests.
type DeterministicReplacer struct {
	replacerShared
	mu        sync.Mutex
	eligible  []bool
	evictable int
}

func NewDeterministicReplacer(size int) *DeterministicReplacer {
	dr := &DeterministicReplacer{
		replacerShared: newReplacerShared(size),
		eligible:       make([]bool, size),
		evictable:      size,
	}
	for i := range dr.eligible {
		dr.eligible[i] = true
	}
	return dr
}

func (dr *DeterministicReplacer) Pin(frameIdx int) error {
	return dr.set(frameIdx, false)
}

func (dr *DeterministicReplacer) Unpin(frameIdx int) error {
	return dr.set(frameIdx, true)
}

func (dr *DeterministicReplacer) Free(frameIdx int) error {
	return dr.set(frameIdx, true)
}

func (dr *DeterministicReplacer) Access(frameIdx int) error {
	return dr.checkFrame(frameIdx)
}

func (dr *DeterministicReplacer) Evict() (int, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	for i, ok := range dr.eligible {
		if ok {
			dr.eligible[i] = false
			dr.evictable--
			return i, nil
		}
	}
	return -1, util.ErrNoFreeFrame
}

func (dr *DeterministicReplacer) Size() int {
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.evictable
}

func (dr *DeterministicReplacer) set(frameIdx int, eligible bool) error {
	if err := dr.checkFrame(frameIdx); err != nil {
		return err
	}
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.eligible[frameIdx] != eligible {
		dr.eligible[frameIdx] = eligible
		if eligible {
			dr.evictable++
		} else {
			dr.evictable--
		}
	}
	return nil
}
