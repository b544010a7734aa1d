package file

import (
	utils "github.com/bietkhonhungvandi212/pagedb/internal/utils"
)

// Filer is the block store the buffer manager talks to
type Filer interface {
	AllocateBlock() (utils.BlockID, error)
	DeallocateBlock(id utils.BlockID) error
	IsAllocated(id utils.BlockID) bool
	ReadBlock(id utils.BlockID, out []byte) error
	WriteBlock(id utils.BlockID, data []byte) error
	Close() error
}

var _ Filer = (*DiskManager)(nil)
