package buffer

import (
	"testing"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUReplacer(t *testing.T) {
	t.Run("Free list first", func(t *testing.T) {
		lr := NewLRUReplacer(3)
		for i := 0; i < 3; i++ {
			frameIdx, err := lr.Evict()
			require.NoError(t, err)
			assert.Equal(t, i, frameIdx)
		}
		assert.Zero(t, lr.freeCount)
	})

	t.Run("Least recently used", func(t *testing.T) {
		lr := NewLRUReplacer(3)
		drainReplacer(t, lr, 3)

		require.NoError(t, lr.Unpin(0))
		require.NoError(t, lr.Unpin(1))
		require.NoError(t, lr.Unpin(2))
		require.NoError(t, lr.Access(0))

		for _, want := range []int{1, 2, 0} {
			frameIdx, err := lr.Evict()
			require.NoError(t, err)
			assert.Equal(t, want, frameIdx)
		}
		_, err := lr.Evict()
		assert.ErrorIs(t, err, util.ErrNoFreeFrame)
	})

	t.Run("Empty frames beat old ones", func(t *testing.T) {
		lr := NewLRUReplacer(3)
		drainReplacer(t, lr, 3)

		require.NoError(t, lr.Unpin(0))
		require.NoError(t, lr.Free(2))
		frameIdx, err := lr.Evict()
		require.NoError(t, err)
		assert.Equal(t, 2, frameIdx)
	})

	t.Run("Pin leaves the free list", func(t *testing.T) {
		lr := NewLRUReplacer(4)
		require.NoError(t, lr.Pin(2)) // middle of the list
		require.NoError(t, lr.Pin(0)) // head
		assert.Equal(t, 2, lr.Size())
		assert.False(t, lr.inFree[2])

		for _, want := range []int{1, 3} {
			frameIdx, err := lr.Evict()
			require.NoError(t, err)
			assert.Equal(t, want, frameIdx)
		}
	})

	t.Run("Pin after unpin", func(t *testing.T) {
		lr := NewLRUReplacer(2)
		drainReplacer(t, lr, 2)

		require.NoError(t, lr.Unpin(1))
		require.NoError(t, lr.Pin(1))
		assert.Zero(t, lr.Size())
		_, err := lr.Evict()
		assert.ErrorIs(t, err, util.ErrNoFreeFrame)
	})
}
