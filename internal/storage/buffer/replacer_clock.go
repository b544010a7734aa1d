package buffer

import (
	"sync"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
)

type clockDesc struct {
	usageCount int32
	evictable  bool
}

// ClockReplacer sweeps a hand over the frames. Each unpin or access raises
// a frame's usage count up to maxUsage; the hand decrements it and takes the
// first evictable frame it finds at zero. With maxUsage 1 this is the
// classic reference-bit clock.
type ClockReplacer struct {
	replacerShared
	mu            sync.Mutex
	frames        []clockDesc
	nextVictimIdx int
	maxUsage      int32
	evictable     int
}

func NewClockReplacer(size int, maxUsage int) *ClockReplacer {
	cr := &ClockReplacer{
		replacerShared: newReplacerShared(size),
		frames:         make([]clockDesc, size),
		maxUsage:       int32(max(maxUsage, 1)),
		evictable:      size,
	}
	for i := range cr.frames {
		cr.frames[i].evictable = true
	}
	return cr
}

func (cr *ClockReplacer) Pin(frameIdx int) error {
	if err := cr.checkFrame(frameIdx); err != nil {
		return err
	}
	cr.mu.Lock()
	defer cr.mu.Unlock()

	desc := &cr.frames[frameIdx]
	if desc.evictable {
		desc.evictable = false
		cr.evictable--
	}
	return nil
}

func (cr *ClockReplacer) Unpin(frameIdx int) error {
	if err := cr.checkFrame(frameIdx); err != nil {
		return err
	}
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.markEvictable(frameIdx)
	cr.touch(frameIdx)
	return nil
}

func (cr *ClockReplacer) Free(frameIdx int) error {
	if err := cr.checkFrame(frameIdx); err != nil {
		return err
	}
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.markEvictable(frameIdx)
	cr.frames[frameIdx].usageCount = 0
	return nil
}

func (cr *ClockReplacer) Access(frameIdx int) error {
	if err := cr.checkFrame(frameIdx); err != nil {
		return err
	}
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.touch(frameIdx)
	return nil
}

func (cr *ClockReplacer) Evict() (int, error) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.evictable == 0 {
		return -1, util.ErrNoFreeFrame
	}

	// Every evictable frame reaches zero after at most maxUsage passes.
	limit := cr.poolSize * (int(cr.maxUsage) + 1)
	for range limit {
		victimIdx := cr.nextVictimIdx
		cr.nextVictimIdx = (cr.nextVictimIdx + 1) % cr.poolSize

		desc := &cr.frames[victimIdx]
		if !desc.evictable {
			continue
		}
		if desc.usageCount > 0 {
			desc.usageCount--
			continue
		}

		desc.evictable = false
		cr.evictable--
		return victimIdx, nil
	}

	return -1, util.ErrNoFreeFrame
}

func (cr *ClockReplacer) Size() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.evictable
}

func (cr *ClockReplacer) markEvictable(frameIdx int) {
	if !cr.frames[frameIdx].evictable {
		cr.frames[frameIdx].evictable = true
		cr.evictable++
	}
}

func (cr *ClockReplacer) touch(frameIdx int) {
	if cr.frames[frameIdx].usageCount < cr.maxUsage {
		cr.frames[frameIdx].usageCount++
	}
}
