package buffer

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Stats is a snapshot of buffer manager activity
type Stats struct {
	Hits      int64 // fetches served from a resident frame
	Misses    int64 // fetches that read the block from disk
	Evictions int64 // resident pages replaced by another page
	Flushes   int64 // dirty pages written back
	Resident  int   // pages currently mapped
	Pinned    int   // frames with pin count > 0
	Capacity  int
}

type counters struct {
	hits      *xsync.Counter
	misses    *xsync.Counter
	evictions *xsync.Counter
	flushes   *xsync.Counter
}

func newCounters() counters {
	return counters{
		hits:      xsync.NewCounter(),
		misses:    xsync.NewCounter(),
		evictions: xsync.NewCounter(),
		flushes:   xsync.NewCounter(),
	}
}

// HitRatio returns hits / (hits + misses), or 0 before any fetch
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
