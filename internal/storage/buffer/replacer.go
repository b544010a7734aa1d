package buffer

import (
	"fmt"
	"strings"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/pkg/errors"
)

// Replacer defines the contract for page replacement policies. Every
// implementation guards its own state; the buffer manager additionally
// serializes Evict calls and issues Pin/Unpin/Free for a frame only while
// holding that frame's write lock.
type Replacer interface {
	// Pin removes frameIdx from eviction candidacy. Idempotent.
	Pin(frameIdx int) error
	// Unpin makes a frame holding an unpinned page a candidate again and
	// records that it was just used.
	Unpin(frameIdx int) error
	// Free makes an empty frame a candidate with no usage history.
	Free(frameIdx int) error
	// Access records a use of a resident frame without changing candidacy.
	Access(frameIdx int) error
	// Evict picks a candidate, removes it from candidacy and returns it.
	// Returns util.ErrNoFreeFrame when every frame is pinned.
	Evict() (int, error)
	// Size is the number of frames currently eligible for eviction.
	Size() int
}

// PolicyKind selects a Replacer implementation
type PolicyKind int

const (
	PolicyClock PolicyKind = iota
	PolicyLRU
	PolicyDeterministic
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyClock:
		return util.PolicyClock
	case PolicyLRU:
		return util.PolicyLRU
	case PolicyDeterministic:
		return util.PolicyDeterministic
	}
	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

func ParsePolicy(name string) (PolicyKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case util.PolicyClock:
		return PolicyClock, nil
	case util.PolicyLRU:
		return PolicyLRU, nil
	case util.PolicyDeterministic:
		return PolicyDeterministic, nil
	}
	return 0, errors.Wrapf(util.ErrInvalidPolicy, "%q", name)
}

// NewReplacer builds the policy for a pool of size frames. clockMaxUsage is
// only consulted by PolicyClock.
func NewReplacer(kind PolicyKind, size int, clockMaxUsage int) (Replacer, error) {
	if size <= 0 {
		return nil, util.ErrInvalidPoolSize
	}
	switch kind {
	case PolicyClock:
		if clockMaxUsage <= 0 {
			return nil, util.ErrInvalidClockUsage
		}
		return NewClockReplacer(size, clockMaxUsage), nil
	case PolicyLRU:
		return NewLRUReplacer(size), nil
	case PolicyDeterministic:
		return NewDeterministicReplacer(size), nil
	}
	return nil, errors.Wrapf(util.ErrInvalidPolicy, "%v", kind)
}
