package file

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

/**
* DiskManager stores fixed-size blocks in one flat file; block i lives at
* [i*BlockSize, (i+1)*BlockSize). Every call opens, operates and closes the
* file on its own, so calls on disjoint blocks never share state. The block
* counter is the only shared mutable value.
**/
type DiskManager struct {
	path        string
	syncWrites  bool
	nextBlockID atomic.Uint32
	freed       *xsync.MapOf[util.BlockID, struct{}]
	closed      atomic.Bool
}

// NewDiskManager seeds the block counter from the current file length so
// identifiers stay unique across reopen. The file itself is created lazily
// by the first write.
func NewDiskManager(path string, syncWrites bool) (*DiskManager, error) {
	dm := &DiskManager{
		path:       path,
		syncWrites: syncWrites,
		freed:      xsync.NewMapOf[util.BlockID, struct{}](),
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		blocks := (info.Size() + util.BlockSize - 1) / util.BlockSize
		if blocks >= int64(util.MaxBlockID) {
			return nil, util.ErrBlockOverflow
		}
		dm.nextBlockID.Store(uint32(blocks))
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, util.NewDatabaseError(util.ErrTypeIOError, "stat "+path, err)
	}

	return dm, nil
}

func (dm *DiskManager) Path() string {
	return dm.path
}

// NextBlockID is the id the next AllocateBlock will return
func (dm *DiskManager) NextBlockID() util.BlockID {
	return util.BlockID(dm.nextBlockID.Load())
}

/* ALLOCATE */
// AllocateBlock returns the current counter value and advances it. The
// counter never wraps: once MaxBlockID is reached every call fails with
// ErrBlockOverflow, which callers must treat as fatal.
func (dm *DiskManager) AllocateBlock() (util.BlockID, error) {
	if err := dm.checkOpen("allocate", dm.NextBlockID()); err != nil {
		return 0, err
	}
	for {
		cur := dm.nextBlockID.Load()
		if util.BlockID(cur) >= util.MaxBlockID {
			return 0, util.ErrBlockOverflow
		}
		if dm.nextBlockID.CompareAndSwap(cur, cur+1) {
			return util.BlockID(cur), nil
		}
	}
}

// DeallocateBlock marks a block logically free. Ids are never handed out
// again; the space stays in the file.
func (dm *DiskManager) DeallocateBlock(id util.BlockID) error {
	if err := dm.checkOpen("deallocate", id); err != nil {
		return err
	}
	if id >= dm.NextBlockID() {
		return errors.Wrapf(util.ErrPageNotFound, "deallocate block %d", id)
	}
	if _, loaded := dm.freed.LoadOrStore(id, struct{}{}); loaded {
		return errors.Wrapf(util.ErrPageNotFound, "block %d already deallocated", id)
	}
	return nil
}

func (dm *DiskManager) IsAllocated(id util.BlockID) bool {
	if id >= dm.NextBlockID() {
		return false
	}
	_, freed := dm.freed.Load(id)
	return !freed
}

// FreedBlocks is the number of deallocated blocks (holes) in the file
func (dm *DiskManager) FreedBlocks() int {
	return dm.freed.Size()
}

/* WRITE FILE */
func (dm *DiskManager) WriteBlock(id util.BlockID, data []byte) error {
	if len(data) != util.BlockSize {
		return errors.Wrapf(util.ErrInvalidBlockSize, "write block %d", id)
	}
	if err := dm.checkOpen("write", id); err != nil {
		return err
	}

	f, err := os.OpenFile(dm.path, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		return util.NewDatabaseError(util.ErrTypeIOError, "open file", err).With("block_id", id)
	}

	if _, err := f.WriteAt(data, offset(id)); err != nil {
		f.Close()
		return util.NewDatabaseError(util.ErrTypeIOError, fmt.Sprintf("write block %d", id), err)
	}

	if dm.syncWrites {
		if err := f.Sync(); err != nil {
			f.Close()
			return util.NewDatabaseError(util.ErrTypeIOError, fmt.Sprintf("sync block %d", id), err)
		}
	}

	if err := f.Close(); err != nil {
		return util.NewDatabaseError(util.ErrTypeIOError, "close file", err)
	}
	return nil
}

/* READ FILE */
// ReadBlock fills out with exactly BlockSize bytes. A block past the end of
// the file is a short read and fails with ErrBlockNotWritten.
func (dm *DiskManager) ReadBlock(id util.BlockID, out []byte) error {
	if len(out) != util.BlockSize {
		return errors.Wrapf(util.ErrInvalidBlockSize, "read block %d", id)
	}
	if err := dm.checkOpen("read", id); err != nil {
		return err
	}

	f, err := os.Open(dm.path)
	if err != nil {
		return util.NewDatabaseError(util.ErrTypeIOError, "open file", err).With("block_id", id)
	}
	defer f.Close()

	n, err := f.ReadAt(out, offset(id))
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.Wrapf(util.ErrBlockNotWritten, "read %d of %d bytes", n, util.BlockSize)
		}
		return util.NewDatabaseError(util.ErrTypeIOError, fmt.Sprintf("read block %d", id), err)
	}
	return nil
}

/**
* CLOSE FUNCTION
**/
// Close makes every later read and write fail with os.ErrClosed
func (dm *DiskManager) Close() error {
	if dm == nil {
		return nil // Idempotent
	}
	dm.closed.Store(true)
	return nil
}

func (dm *DiskManager) checkOpen(op string, id util.BlockID) error {
	if dm.closed.Load() {
		return util.NewDatabaseError(util.ErrTypeIOError, fmt.Sprintf("%s block %d", op, id), os.ErrClosed)
	}
	return nil
}

func offset(id util.BlockID) int64 {
	return int64(id) * int64(util.BlockSize)
}
