package page

import (
	"testing"

	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	for _, variant := range []Variant{VariantRelation, VariantDictionary} {
		t.Run(variant.String(), func(t *testing.T) {
			p := New(42, variant)
			copy(p.Data[:], "hello block")
			p.Data[DATA_SIZE-1] = 0xAB

			buf := p.Serialize()
			require.Len(t, buf, util.BlockSize)
			assert.NotZero(t, p.Header.Checksum, "checksum stamped on serialize")

			got, err := Deserialize(buf)
			require.NoError(t, err)
			assert.Equal(t, util.PageID(42), got.ID())
			assert.Equal(t, variant, got.Variant())
			assert.Equal(t, p.Data, got.Data)
			assert.Equal(t, p.Header.Checksum, got.Header.Checksum)
			assert.False(t, got.IsDirty(), "fresh from disk is clean")
			assert.Equal(t, int32(0), got.PinCount())
		})
	}
}

func TestDeserializeErrors(t *testing.T) {
	t.Run("WrongSize", func(t *testing.T) {
		_, err := Deserialize(make([]byte, 10))
		assert.ErrorIs(t, err, util.ErrInvalidBlockSize)
	})

	t.Run("ZeroBlock", func(t *testing.T) {
		_, err := Deserialize(make([]byte, util.BlockSize))
		assert.ErrorIs(t, err, util.ErrBlockNotWritten)
	})

	t.Run("FlippedPayloadByte", func(t *testing.T) {
		buf := CreateTestPage(3, []byte("payload")).Serialize()
		buf[HEADER_SIZE] ^= 0xFF
		_, err := Deserialize(buf)
		assert.ErrorIs(t, err, util.ErrChecksumMismatch)
	})

	t.Run("FlippedPageId", func(t *testing.T) {
		buf := CreateTestPage(3, []byte("payload")).Serialize()
		buf[0] ^= 0x01
		_, err := Deserialize(buf)
		assert.ErrorIs(t, err, util.ErrChecksumMismatch)
	})

	t.Run("UnknownVariant", func(t *testing.T) {
		buf := CreateTestPage(3, nil).Serialize()
		buf[12] = 9
		_, err := Deserialize(buf)
		assert.ErrorIs(t, err, util.ErrUnknownVariant)
	})
}

func TestPinCountAndDirty(t *testing.T) {
	p := NewRelationPage(1)

	_, err := p.DecrPinCount()
	assert.ErrorIs(t, err, util.ErrPageNotPinned)

	assert.Equal(t, int32(1), p.IncrPinCount())
	assert.Equal(t, int32(2), p.IncrPinCount())
	n, err := p.DecrPinCount()
	assert.NoError(t, err)
	assert.Equal(t, int32(1), n)

	assert.False(t, p.IsDirty())
	p.SetDirty()
	assert.True(t, p.IsDirty())
	p.ClearDirty()
	assert.False(t, p.IsDirty())
}

func TestCreateTestPageTruncates(t *testing.T) {
	big := make([]byte, util.BlockSize*2)
	for i := range big {
		big[i] = 0x5A
	}
	p := CreateTestPage(9, big)
	assert.Equal(t, byte(0x5A), p.Data[DATA_SIZE-1])
	assert.Equal(t, VariantRelation, p.Variant())
}
