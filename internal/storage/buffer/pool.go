package buffer

import (
	"fmt"
	"sync"

	"github.com/bietkhonhungvandi212/pagedb/internal/storage/page"
	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
)

// frame is one slot of the pool. gen changes every time the slot's content
// is replaced or dropped, so a handle can tell it is looking at another page.
type frame struct {
	mu   sync.RWMutex
	page *page.Page
	gen  uint64
}

// installStripes is the number of install sequence counters; page ids
// share a counter modulo this value.
const installStripes = 256

// Buffer is the fixed array of frames plus the page table. Each frame and
// the table have their own lock. Installing or dropping a mapping requires
// the frame's write lock and the table's write lock together, taken in
// that order.
type Buffer struct {
	frames     []frame
	tableMu    sync.RWMutex
	pageTable  map[util.PageID]int // Map the pageId to frame index
	installSeq [installStripes]uint64
	poolSize   int // Total frames
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	return &Buffer{
		frames:    make([]frame, size),
		pageTable: make(map[util.PageID]int, size),
		poolSize:  size,
	}
}

func (b *Buffer) Size() int {
	return b.poolSize
}

func (b *Buffer) frame(frameIdx int) *frame {
	if frameIdx >= b.poolSize || frameIdx < 0 {
		panic(fmt.Sprintf("[buffer] [frame] frame index out of bound: %d", frameIdx))
	}
	return &b.frames[frameIdx]
}

// Lookup finds the frame a page is mapped to. The answer may be stale by the
// time the caller locks the frame, so callers re-check under the frame lock.
func (b *Buffer) Lookup(pageID util.PageID) (int, bool) {
	b.tableMu.RLock()
	defer b.tableMu.RUnlock()
	frameIdx, ok := b.pageTable[pageID]
	return frameIdx, ok
}

// Resident is the number of mapped pages
func (b *Buffer) Resident() int {
	b.tableMu.RLock()
	defer b.tableMu.RUnlock()
	return len(b.pageTable)
}

// holds reports whether the frame currently holds pageID.
// Caller holds f.mu (read or write).
func (f *frame) holds(pageID util.PageID) bool {
	return f.page != nil && f.page.ID() == pageID
}

// snapshot reports whether pageID is resident together with the install
// sequence of its stripe. A page that was not resident at the snapshot and
// whose stripe sequence is unchanged later has not been resident in
// between, so nothing wrote its block in the meantime.
func (b *Buffer) snapshot(pageID util.PageID) (seq uint64, resident bool) {
	b.tableMu.RLock()
	defer b.tableMu.RUnlock()
	_, resident = b.pageTable[pageID]
	return b.installSeq[pageID%installStripes], resident
}

// installSeqLocked is the stripe sequence of pageID. Caller holds tableMu.
func (b *Buffer) installSeqLocked(pageID util.PageID) uint64 {
	return b.installSeq[pageID%installStripes]
}

// lookupLocked is Lookup for callers already holding tableMu.
func (b *Buffer) lookupLocked(pageID util.PageID) (int, bool) {
	frameIdx, ok := b.pageTable[pageID]
	return frameIdx, ok
}

// install replaces the frame's page and its table entry and returns the new
// generation. Caller holds f.mu and tableMu for writing.
func (b *Buffer) install(frameIdx int, f *frame, p *page.Page) uint64 {
	if f.page != nil {
		delete(b.pageTable, f.page.ID())
	}
	b.pageTable[p.ID()] = frameIdx
	b.installSeq[p.ID()%installStripes]++
	f.page = p
	f.gen++
	return f.gen
}

// drop empties the frame and removes its table entry.
// Caller holds f.mu and tableMu for writing.
func (b *Buffer) drop(f *frame) {
	if f.page != nil {
		delete(b.pageTable, f.page.ID())
	}
	f.page = nil
	f.gen++
}
