package buffer

import (
	"sync/atomic"

	"github.com/bietkhonhungvandi212/pagedb/internal/storage/page"
	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
)

// PageHandle is a pinned reference to a resident page: a frame index plus
// the frame generation observed when the pin was taken. The pin keeps the
// page in its frame until Release.
type PageHandle struct {
	bm       *BufferManager
	frameIdx int
	pageID   util.PageID
	variant  page.Variant
	gen      uint64
	released atomic.Bool
}

func (h *PageHandle) PageID() util.PageID {
	return h.pageID
}

func (h *PageHandle) FrameID() util.FrameID {
	return h.frameIdx
}

func (h *PageHandle) Variant() page.Variant {
	return h.variant
}

// View runs fn with shared access to the page payload. Readers of the same
// frame run concurrently. fn must not keep data after returning.
func (h *PageHandle) View(fn func(data []byte) error) error {
	f := h.bm.buffer.frame(h.frameIdx)
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := h.check(f); err != nil {
		return err
	}
	return fn(f.page.Data[:])
}

// Update runs fn with exclusive access to the page payload and marks the
// page dirty unless fn fails.
func (h *PageHandle) Update(fn func(data []byte) error) error {
	f := h.bm.buffer.frame(h.frameIdx)
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := h.check(f); err != nil {
		return err
	}
	if err := fn(f.page.Data[:]); err != nil {
		return err
	}
	f.page.SetDirty()
	return nil
}

// Release gives the pin back. dirty marks the page modified. A handle can
// be released once; later calls fail with ErrStaleHandle.
func (h *PageHandle) Release(dirty bool) error {
	if !h.released.CompareAndSwap(false, true) {
		return util.ErrStaleHandle
	}
	return h.bm.UnpinPage(h.pageID, dirty)
}

func (h *PageHandle) check(f *frame) error {
	if h.released.Load() || f.gen != h.gen || !f.holds(h.pageID) {
		return util.ErrStaleHandle
	}
	return nil
}
