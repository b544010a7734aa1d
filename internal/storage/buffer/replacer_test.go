package buffer

import (
	"testing"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name     string
		expected PolicyKind
		err      error
	}{
		{name: "clock", expected: PolicyClock},
		{name: "LRU", expected: PolicyLRU},
		{name: " deterministic ", expected: PolicyDeterministic},
		{name: "arc", err: util.ErrInvalidPolicy},
		{name: "", err: util.ErrInvalidPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := ParsePolicy(tt.name)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}

	assert.Equal(t, "lru", PolicyLRU.String())
	assert.Equal(t, "PolicyKind(9)", PolicyKind(9).String())
}

func TestNewReplacer(t *testing.T) {
	r, err := NewReplacer(PolicyClock, 4, 3)
	require.NoError(t, err)
	assert.IsType(t, &ClockReplacer{}, r)

	r, err = NewReplacer(PolicyLRU, 4, 0)
	require.NoError(t, err)
	assert.IsType(t, &LRUReplacer{}, r)

	r, err = NewReplacer(PolicyDeterministic, 4, 0)
	require.NoError(t, err)
	assert.IsType(t, &DeterministicReplacer{}, r)

	_, err = NewReplacer(PolicyClock, 4, 0)
	assert.ErrorIs(t, err, util.ErrInvalidClockUsage)
	_, err = NewReplacer(PolicyLRU, 0, 1)
	assert.ErrorIs(t, err, util.ErrInvalidPoolSize)

	assert.Panics(t, func() { NewLRUReplacer(0) })
}

// Contract every policy has to honour
func TestReplacerContract(t *testing.T) {
	const size = 4

	for _, policy := range allPolicies {
		t.Run(policy.String(), func(t *testing.T) {
			t.Run("Every frame starts as a candidate", func(t *testing.T) {
				r, err := NewReplacer(policy, size, 1)
				require.NoError(t, err)
				assert.Equal(t, size, r.Size())

				seen := make(map[int]bool)
				for i := 0; i < size; i++ {
					frameIdx, err := r.Evict()
					require.NoError(t, err)
					assert.False(t, seen[frameIdx], "frame %d evicted twice", frameIdx)
					seen[frameIdx] = true
				}
				_, err = r.Evict()
				assert.ErrorIs(t, err, util.ErrNoFreeFrame)
				assert.Zero(t, r.Size())
			})

			t.Run("Pinned frames are skipped", func(t *testing.T) {
				r, err := NewReplacer(policy, size, 1)
				require.NoError(t, err)

				require.NoError(t, r.Pin(0))
				require.NoError(t, r.Pin(2))
				require.NoError(t, r.Pin(2)) // idempotent
				assert.Equal(t, size-2, r.Size())

				for i := 0; i < size-2; i++ {
					frameIdx, err := r.Evict()
					require.NoError(t, err)
					assert.NotContains(t, []int{0, 2}, frameIdx)
				}
				_, err = r.Evict()
				assert.ErrorIs(t, err, util.ErrNoFreeFrame)

				require.NoError(t, r.Unpin(2))
				frameIdx, err := r.Evict()
				require.NoError(t, err)
				assert.Equal(t, 2, frameIdx)
			})

			t.Run("Freed frames return", func(t *testing.T) {
				r, err := NewReplacer(policy, size, 1)
				require.NoError(t, err)
				for i := 0; i < size; i++ {
					_, err := r.Evict()
					require.NoError(t, err)
				}

				require.NoError(t, r.Free(3))
				require.NoError(t, r.Free(3))
				assert.Equal(t, 1, r.Size())
				frameIdx, err := r.Evict()
				require.NoError(t, err)
				assert.Equal(t, 3, frameIdx)
			})

			t.Run("Out of range frames", func(t *testing.T) {
				r, err := NewReplacer(policy, size, 1)
				require.NoError(t, err)
				assert.ErrorIs(t, r.Pin(size), util.ErrOutBoundOfFrame)
				assert.ErrorIs(t, r.Unpin(-1), util.ErrOutBoundOfFrame)
				assert.ErrorIs(t, r.Free(size+3), util.ErrOutBoundOfFrame)
				assert.ErrorIs(t, r.Access(size), util.ErrOutBoundOfFrame)
				assert.Equal(t, size, r.Size())
			})
		})
	}
}
