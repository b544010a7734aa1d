package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to take every frame out of candidacy
func drainReplacer(t *testing.T, r Replacer, size int) {
	t.Helper()
	for i := 0; i < size; i++ {
		_, err := r.Evict()
		require.NoError(t, err)
	}
}

func TestClockReplacer(t *testing.T) {
	t.Run("Hand order from a fresh pool", func(t *testing.T) {
		cr := NewClockReplacer(3, 1)
		for i := 0; i < 3; i++ {
			frameIdx, err := cr.Evict()
			require.NoError(t, err)
			assert.Equal(t, i, frameIdx)
		}
	})

	t.Run("Used frames get a second chance", func(t *testing.T) {
		cr := NewClockReplacer(3, 2)
		drainReplacer(t, cr, 3)

		for i := 0; i < 3; i++ {
			require.NoError(t, cr.Unpin(i)) // usage 1
		}
		require.NoError(t, cr.Access(1)) // usage 2

		expected := []int{0, 2, 1}
		for _, want := range expected {
			frameIdx, err := cr.Evict()
			require.NoError(t, err)
			assert.Equal(t, want, frameIdx)
		}
		assert.Zero(t, cr.Size())
	})

	t.Run("Usage is capped", func(t *testing.T) {
		cr := NewClockReplacer(2, 1)
		drainReplacer(t, cr, 2)

		require.NoError(t, cr.Unpin(0))
		for i := 0; i < 10; i++ {
			require.NoError(t, cr.Access(0))
		}
		assert.EqualValues(t, 1, cr.frames[0].usageCount)

		// One sweep clears the bit, the next one takes the frame
		frameIdx, err := cr.Evict()
		require.NoError(t, err)
		assert.Equal(t, 0, frameIdx)
	})

	t.Run("Free resets usage", func(t *testing.T) {
		cr := NewClockReplacer(2, 3)
		drainReplacer(t, cr, 2)

		require.NoError(t, cr.Unpin(0))
		require.NoError(t, cr.Access(0))
		require.NoError(t, cr.Free(0))
		assert.Zero(t, cr.frames[0].usageCount)
		assert.Equal(t, 1, cr.Size())
	})

	t.Run("Concurrent evictions never repeat", func(t *testing.T) {
		const size = 64
		cr := NewClockReplacer(size, 1)

		var mu sync.Mutex
		seen := make(map[int]int)
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < size/8; i++ {
					frameIdx, err := cr.Evict()
					if err != nil {
						return
					}
					mu.Lock()
					seen[frameIdx]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, size)
		for frameIdx, n := range seen {
			assert.Equal(t, 1, n, "frame %d", frameIdx)
		}
	})
}
