package buffer

import (
	"testing"

	"github.com/bietkhonhungvandi212/pagedb/internal/storage/page"
	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer(3)
	assert.Equal(t, 3, b.Size())
	assert.Zero(t, b.Resident())

	assert.Panics(t, func() { NewBuffer(0) })
	assert.Panics(t, func() { b.frame(3) })
	assert.Panics(t, func() { b.frame(-1) })
}

func TestBufferInstallDrop(t *testing.T) {
	b := NewBuffer(2)
	f := b.frame(1)

	gen := b.install(1, f, page.NewRelationPage(7))
	assert.EqualValues(t, 1, gen)
	frameIdx, ok := b.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, 1, frameIdx)
	assert.True(t, f.holds(7))
	assert.False(t, f.holds(8))

	// Replacing the page moves the mapping
	gen = b.install(1, f, page.NewRelationPage(8))
	assert.EqualValues(t, 2, gen)
	_, ok = b.Lookup(7)
	assert.False(t, ok)
	_, ok = b.lookupLocked(util.PageID(8))
	assert.True(t, ok)
	assert.Equal(t, 1, b.Resident())

	seq, resident := b.snapshot(7)
	assert.False(t, resident)
	assert.EqualValues(t, 1, seq)
	seq, resident = b.snapshot(8)
	assert.True(t, resident)
	assert.EqualValues(t, 1, seq)
	seq, _ = b.snapshot(7 + installStripes)
	assert.EqualValues(t, 1, seq, "ids share a stripe modulo installStripes")

	b.drop(f)
	assert.Nil(t, f.page)
	assert.EqualValues(t, 3, f.gen)
	assert.Zero(t, b.Resident())
	assert.False(t, f.holds(8))
}
