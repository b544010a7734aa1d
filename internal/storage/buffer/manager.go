package buffer

import (
	"sync"

	"github.com/bietkhonhungvandi212/pagedb/internal/logger"
	"github.com/bietkhonhungvandi212/pagedb/internal/storage/file"
	"github.com/bietkhonhungvandi212/pagedb/internal/storage/page"
	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

/*
BufferManager serves pages out of a fixed pool of frames and goes to the
block store for anything not resident. It composes three parts:

  - Buffer: frames and page table, each under its own lock
  - Replacer: the eviction policy, independently synchronized
  - file.Filer: the block store, safe for concurrent use

Lock order is frame write lock, then page-table lock. evictMu is held only
around Replacer.Evict and never together with another lock. Replacer
Pin/Unpin/Free for a frame are issued while holding that frame's write lock.
*/
type BufferManager struct {
	buffer        *Buffer
	disk          file.Filer
	evictMu       sync.Mutex
	replacer      Replacer
	clockMaxUsage int
	log           logrus.FieldLogger
	counters      counters
}

type Option func(*BufferManager)

func WithLogger(l logrus.FieldLogger) Option {
	return func(bm *BufferManager) {
		if l != nil {
			bm.log = l
		}
	}
}

// WithClockMaxUsage bounds the clock usage counter (1 == reference bit)
func WithClockMaxUsage(n int) Option {
	return func(bm *BufferManager) {
		bm.clockMaxUsage = n
	}
}

// WithReplacer overrides the policy selected by PolicyKind
func WithReplacer(r Replacer) Option {
	return func(bm *BufferManager) {
		bm.replacer = r
	}
}

func NewBufferManager(size int, disk file.Filer, policy PolicyKind, opts ...Option) (*BufferManager, error) {
	if size <= 0 {
		return nil, util.ErrInvalidPoolSize
	}
	if disk == nil {
		return nil, util.ErrFileManagerNil
	}

	bm := &BufferManager{
		buffer:        NewBuffer(size),
		disk:          disk,
		clockMaxUsage: 1,
		log:           logger.Discard(),
		counters:      newCounters(),
	}
	for _, opt := range opts {
		opt(bm)
	}

	if bm.replacer == nil {
		r, err := NewReplacer(policy, size, bm.clockMaxUsage)
		if err != nil {
			return nil, err
		}
		bm.replacer = r
	}

	bm.log.WithFields(logrus.Fields{
		"pool_size": size,
		"policy":    policy,
	}).Debug("buffer manager ready")
	return bm, nil
}

// Open builds the disk manager and buffer manager described by opts
func Open(opts util.Options, log logrus.FieldLogger) (*BufferManager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	kind, err := ParsePolicy(opts.Policy)
	if err != nil {
		return nil, err
	}
	dm, err := file.NewDiskManager(opts.Path, opts.SyncWrites)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", opts.Path)
	}
	return NewBufferManager(opts.BufferPoolSize, dm, kind,
		WithLogger(log), WithClockMaxUsage(opts.ClockMaxUsage))
}

// CreateRelationPage initializes a relation page, pins it, and returns its handle
func (bm *BufferManager) CreateRelationPage() (*PageHandle, error) {
	return bm.createPage(page.VariantRelation)
}

// CreateDictionaryPage initializes a dictionary page, pins it, and returns its handle
func (bm *BufferManager) CreateDictionaryPage() (*PageHandle, error) {
	return bm.createPage(page.VariantDictionary)
}

// createPage fails with ErrNoFreeFrame when no frame is open and every
// resident page is pinned. New pages start dirty so an eviction writes them.
func (bm *BufferManager) createPage(variant page.Variant) (*PageHandle, error) {
	frameIdx, f, err := bm.claimVictim()
	if err != nil {
		return nil, errors.Wrapf(err, "create %s page", variant)
	}
	defer f.mu.Unlock()

	bm.buffer.tableMu.Lock()
	defer bm.buffer.tableMu.Unlock()

	victim := f.page
	victimDirty := victim != nil && victim.IsDirty()
	if err := bm.flushVictim(f); err != nil {
		bm.giveBack(frameIdx, f)
		return nil, errors.Wrapf(err, "create %s page: flush frame %d", variant, frameIdx)
	}

	pageID, err := bm.disk.AllocateBlock()
	if err != nil {
		bm.giveBack(frameIdx, f)
		return nil, errors.Wrapf(err, "create %s page", variant)
	}

	p := page.New(pageID, variant)
	p.SetDirty()
	p.IncrPinCount()
	gen := bm.buffer.install(frameIdx, f, p)
	must(bm.replacer.Pin(frameIdx))

	bm.noteReplaced(frameIdx, victim, victimDirty, p)
	return bm.newHandle(frameIdx, p, gen), nil
}

// FetchPage pins the page and returns its handle, reading the block from
// disk when it is not resident. Fails with ErrPageNotFound when the block
// was never allocated or has been deleted, and with ErrNoFreeFrame when a
// read is needed but every frame is pinned.
func (bm *BufferManager) FetchPage(pageID util.PageID) (*PageHandle, error) {
	for {
		var h *PageHandle
		err := bm.withResident(pageID, func(frameIdx int, f *frame) error {
			f.page.IncrPinCount()
			must(bm.replacer.Pin(frameIdx))
			must(bm.replacer.Access(frameIdx))
			h = bm.newHandle(frameIdx, f.page, f.gen)
			return nil
		})
		if err == nil {
			bm.counters.hits.Inc()
			return h, nil
		}

		if !bm.disk.IsAllocated(pageID) {
			return nil, errors.Wrapf(util.ErrPageNotFound, "fetch page %d", pageID)
		}

		h, retry, err := bm.loadPage(pageID)
		if err != nil {
			return nil, err
		}
		if retry {
			continue
		}
		bm.counters.misses.Inc()
		return h, nil
	}
}

// loadPage reads pageID into a victim frame. The read runs under the
// victim's frame lock only; lookups of other pages proceed meanwhile. retry
// is set when the page was installed by another caller before or during
// the read; the victim is handed back untouched.
func (bm *BufferManager) loadPage(pageID util.PageID) (h *PageHandle, retry bool, err error) {
	frameIdx, f, err := bm.claimVictim()
	if err != nil {
		return nil, false, errors.Wrapf(err, "fetch page %d", pageID)
	}
	defer f.mu.Unlock()

	seq, resident := bm.buffer.snapshot(pageID)
	if resident {
		bm.giveBack(frameIdx, f)
		return nil, true, nil
	}

	// Read before touching the victim so a failed read leaves it as it was.
	p, readErr := bm.readPage(pageID)

	bm.buffer.tableMu.Lock()
	defer bm.buffer.tableMu.Unlock()

	if _, ok := bm.buffer.lookupLocked(pageID); ok {
		bm.giveBack(frameIdx, f)
		return nil, true, nil
	}
	if !bm.disk.IsAllocated(pageID) {
		bm.giveBack(frameIdx, f)
		return nil, false, errors.Wrapf(util.ErrPageNotFound, "fetch page %d", pageID)
	}
	if bm.buffer.installSeqLocked(pageID) != seq {
		// The page may have been loaded, changed and evicted during the read.
		bm.giveBack(frameIdx, f)
		return nil, true, nil
	}
	if readErr != nil {
		bm.giveBack(frameIdx, f)
		return nil, false, errors.Wrapf(readErr, "fetch page %d", pageID)
	}

	victim := f.page
	victimDirty := victim != nil && victim.IsDirty()
	if err := bm.flushVictim(f); err != nil {
		bm.giveBack(frameIdx, f)
		return nil, false, errors.Wrapf(err, "fetch page %d: flush frame %d", pageID, frameIdx)
	}

	p.IncrPinCount()
	gen := bm.buffer.install(frameIdx, f, p)
	must(bm.replacer.Pin(frameIdx))

	bm.noteReplaced(frameIdx, victim, victimDirty, p)
	return bm.newHandle(frameIdx, p, gen), false, nil
}

// DeletePage drops the page from the pool and deallocates its block.
// Fails with ErrPagePinned while anyone holds a pin.
func (bm *BufferManager) DeletePage(pageID util.PageID) error {
	for {
		frameIdx, ok := bm.buffer.Lookup(pageID)

		var done bool
		var err error
		if ok {
			done, err = bm.deleteResident(frameIdx, pageID)
		} else {
			done, err = bm.deleteNonResident(pageID)
		}
		if done {
			return err
		}
	}
}

func (bm *BufferManager) deleteResident(frameIdx int, pageID util.PageID) (bool, error) {
	f := bm.buffer.frame(frameIdx)
	f.mu.Lock()
	defer f.mu.Unlock()

	bm.buffer.tableMu.Lock()
	defer bm.buffer.tableMu.Unlock()

	if !f.holds(pageID) {
		return false, nil
	}
	if pins := f.page.PinCount(); pins > 0 {
		return true, errors.Wrapf(util.ErrPagePinned, "delete page %d (pin count %d)", pageID, pins)
	}
	if err := bm.disk.DeallocateBlock(pageID); err != nil {
		return true, errors.Wrapf(err, "delete page %d", pageID)
	}

	bm.buffer.drop(f)
	must(bm.replacer.Free(frameIdx))

	bm.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameIdx}).Debug("delete page")
	return true, nil
}

func (bm *BufferManager) deleteNonResident(pageID util.PageID) (bool, error) {
	bm.buffer.tableMu.Lock()
	defer bm.buffer.tableMu.Unlock()

	if _, ok := bm.buffer.lookupLocked(pageID); ok {
		return false, nil
	}
	if !bm.disk.IsAllocated(pageID) {
		return true, errors.Wrapf(util.ErrPageNotFound, "delete page %d", pageID)
	}
	if err := bm.disk.DeallocateBlock(pageID); err != nil {
		return true, errors.Wrapf(err, "delete page %d", pageID)
	}

	bm.log.WithField("page_id", pageID).Debug("delete page (not resident)")
	return true, nil
}

// FlushPage writes the page back if dirty. It neither unpins nor evicts.
func (bm *BufferManager) FlushPage(pageID util.PageID) error {
	err := bm.withResident(pageID, func(_ int, f *frame) error {
		if !f.page.IsDirty() {
			return nil
		}
		return bm.writePage(f.page)
	})
	return errors.Wrapf(err, "flush page %d", pageID)
}

// FlushAllPages writes back every dirty resident page. It keeps going past
// failures and reports the first one.
func (bm *BufferManager) FlushAllPages() error {
	var firstErr error
	var failed, dirty int

	for i := 0; i < bm.buffer.Size(); i++ {
		f := bm.buffer.frame(i)
		f.mu.Lock()
		if f.page != nil && f.page.IsDirty() {
			dirty++
			if err := bm.writePage(f.page); err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		f.mu.Unlock()
	}

	if firstErr != nil {
		return errors.Wrapf(firstErr, "flush all: %d of %d dirty pages failed", failed, dirty)
	}
	bm.log.WithField("dirty", dirty).Debug("flush all pages")
	return nil
}

// PinPage adds a pin to a resident page. Pinned pages will never be evicted.
func (bm *BufferManager) PinPage(pageID util.PageID) error {
	err := bm.withResident(pageID, func(frameIdx int, f *frame) error {
		f.page.IncrPinCount()
		must(bm.replacer.Pin(frameIdx))
		return nil
	})
	return errors.Wrapf(err, "pin page %d", pageID)
}

// UnpinPage drops one pin; isDirty marks the page modified. When the last
// pin goes the frame becomes an eviction candidate.
func (bm *BufferManager) UnpinPage(pageID util.PageID, isDirty bool) error {
	err := bm.withResident(pageID, func(frameIdx int, f *frame) error {
		remaining, err := f.page.DecrPinCount()
		if err != nil {
			return err
		}
		if isDirty {
			f.page.SetDirty()
		}
		if remaining == 0 {
			must(bm.replacer.Unpin(frameIdx))
		}
		return nil
	})
	return errors.Wrapf(err, "unpin page %d", pageID)
}

// PinCount reports the pin count of a resident page
func (bm *BufferManager) PinCount(pageID util.PageID) (int32, error) {
	var pins int32
	err := bm.withResident(pageID, func(_ int, f *frame) error {
		pins = f.page.PinCount()
		return nil
	})
	return pins, errors.Wrapf(err, "pin count of page %d", pageID)
}

func (bm *BufferManager) Stats() Stats {
	s := Stats{
		Hits:      bm.counters.hits.Value(),
		Misses:    bm.counters.misses.Value(),
		Evictions: bm.counters.evictions.Value(),
		Flushes:   bm.counters.flushes.Value(),
		Resident:  bm.buffer.Resident(),
		Capacity:  bm.buffer.Size(),
	}
	for i := 0; i < bm.buffer.Size(); i++ {
		f := bm.buffer.frame(i)
		f.mu.RLock()
		if f.page != nil && f.page.PinCount() > 0 {
			s.Pinned++
		}
		f.mu.RUnlock()
	}
	return s
}

// Close flushes every dirty page and closes the block store
func (bm *BufferManager) Close() error {
	if err := bm.FlushAllPages(); err != nil {
		return err
	}
	return bm.disk.Close()
}

// ===================== HELPER FUNCTION =====================

// evict asks the policy for a victim. evictMu covers only the policy call.
func (bm *BufferManager) evict() (int, error) {
	bm.evictMu.Lock()
	frameIdx, err := bm.replacer.Evict()
	bm.evictMu.Unlock()
	return frameIdx, err
}

// claimVictim returns a victim frame with its write lock held. A victim
// whose page got pinned after Evict returned is skipped; the pin already
// took it out of candidacy.
func (bm *BufferManager) claimVictim() (int, *frame, error) {
	for {
		frameIdx, err := bm.evict()
		if err != nil {
			bm.log.Warn("buffer pool exhausted, all pages are pinned")
			return -1, nil, err
		}

		f := bm.buffer.frame(frameIdx)
		f.mu.Lock()
		if f.page != nil && f.page.PinCount() > 0 {
			f.mu.Unlock()
			continue
		}
		return frameIdx, f, nil
	}
}

// giveBack returns an unused victim to the policy. Caller holds f.mu.
func (bm *BufferManager) giveBack(frameIdx int, f *frame) {
	if f.page == nil {
		must(bm.replacer.Free(frameIdx))
		return
	}
	must(bm.replacer.Unpin(frameIdx))
}

// flushVictim writes the frame's current page if dirty. Caller holds f.mu.
func (bm *BufferManager) flushVictim(f *frame) error {
	if f.page == nil || !f.page.IsDirty() {
		return nil
	}
	return bm.writePage(f.page)
}

// writePage writes p and clears its dirty flag. Caller holds the frame lock.
func (bm *BufferManager) writePage(p *page.Page) error {
	if err := bm.disk.WriteBlock(p.ID(), p.Serialize()); err != nil {
		bm.log.WithFields(logrus.Fields{"page_id": p.ID(), "error": err}).Error("write page")
		return err
	}
	p.ClearDirty()
	bm.counters.flushes.Inc()
	return nil
}

func (bm *BufferManager) readPage(pageID util.PageID) (*page.Page, error) {
	buf := make([]byte, util.BlockSize)
	if err := bm.disk.ReadBlock(pageID, buf); err != nil {
		return nil, err
	}
	p, err := page.Deserialize(buf)
	if err != nil {
		return nil, err
	}
	if p.ID() != pageID {
		return nil, errors.Wrapf(util.ErrPageIdMismatch, "block %d holds page %d", pageID, p.ID())
	}
	return p, nil
}

// withResident runs fn with the write lock of the frame holding pageID.
// A page that moves between lookup and lock is looked up again.
func (bm *BufferManager) withResident(pageID util.PageID, fn func(frameIdx int, f *frame) error) error {
	for {
		frameIdx, ok := bm.buffer.Lookup(pageID)
		if !ok {
			return util.ErrPageNotResident
		}

		f := bm.buffer.frame(frameIdx)
		f.mu.Lock()
		if f.holds(pageID) {
			err := fn(frameIdx, f)
			f.mu.Unlock()
			return err
		}
		f.mu.Unlock()
	}
}

func (bm *BufferManager) newHandle(frameIdx int, p *page.Page, gen uint64) *PageHandle {
	return &PageHandle{
		bm:       bm,
		frameIdx: frameIdx,
		pageID:   p.ID(),
		variant:  p.Variant(),
		gen:      gen,
	}
}

func (bm *BufferManager) noteReplaced(frameIdx int, victim *page.Page, victimDirty bool, p *page.Page) {
	fields := logrus.Fields{"page_id": p.ID(), "frame_id": frameIdx, "variant": p.Variant()}
	if victim != nil {
		bm.counters.evictions.Inc()
		fields["victim_page_id"] = victim.ID()
		fields["dirty"] = victimDirty
	}
	bm.log.WithFields(fields).Debug("install page")
}

// must panics on a policy error. Policies only fail for an out-of-range
// frame index, which the manager never produces.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
