package util

import "errors"

var (
	ErrInvalidBlockSize  = errors.New("invalid block size")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrPageIdMismatch    = errors.New("stored page id does not match requested id")
	ErrPageNotFound      = errors.New("page not found")
	ErrPageNotResident   = errors.New("page is not resident in buffer")
	ErrPagePinned        = errors.New("page is pinned")
	ErrPageNotPinned     = errors.New("page is not pinned")
	ErrBlockOverflow     = errors.New("block id counter exhausted")
	ErrBlockNotWritten   = errors.New("block has never been written")
	ErrFileManagerNil    = errors.New("file manager is nil")
	ErrInvalidPoolSize   = errors.New("invalid pool size")
	ErrOutBoundOfFrame   = errors.New("frame idx out of bound")
	ErrNoFreeFrame       = errors.New("no available buffer frames, and all pages are pinned")
	ErrStaleHandle       = errors.New("page handle is stale")
	ErrInvalidPolicy     = errors.New("invalid eviction policy")
	ErrInvalidClockUsage = errors.New("clock max usage must be positive")
	ErrUnknownVariant    = errors.New("unknown page variant")
)
