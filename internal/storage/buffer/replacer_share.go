package buffer

import (
	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/pkg/errors"
)

// replacerShared holds what every policy needs and nothing mutable
type replacerShared struct {
	poolSize int // Total frames
}

func newReplacerShared(size int) replacerShared {
	if size <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	return replacerShared{poolSize: size}
}

func (rs replacerShared) checkFrame(frameIdx int) error {
	if frameIdx >= rs.poolSize || frameIdx < 0 {
		return errors.Wrapf(util.ErrOutBoundOfFrame, "frame %d", frameIdx)
	}
	return nil
}
