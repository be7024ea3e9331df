package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDimensions(t *testing.T) {
	g := New(4, 6, 3)
	assert.Equal(t, 72, g.Samples())
	assert.Len(t, g.Pix, 72)
}

func TestFromPix(t *testing.T) {
	pix := make([]uint8, 12)
	g, err := FromPix(2, 2, 3, pix)
	require.NoError(t, err)

	// Wrapping, not copying: writes through the grid reach the caller's buffer.
	g.Set(0, 0, 0, 42)
	assert.EqualValues(t, 42, pix[0], "FromPix() copied the buffer instead of wrapping it")

	_, err = FromPix(2, 2, 3, make([]uint8, 11))
	assert.ErrorIs(t, err, ErrGridShape)
}

func TestAtSetRowMajorChannelInterleaved(t *testing.T) {
	g := New(2, 3, 3)
	g.Set(1, 2, 1, 99)

	// (y*Width + x)*Channels + c = (1*3+2)*3 + 1 = 16
	assert.EqualValues(t, 99, g.Pix[16])
	assert.EqualValues(t, 99, g.At(1, 2, 1))
}

func TestCloneIndependence(t *testing.T) {
	g := New(2, 2, 3)
	g.Pix[5] = 7

	c := g.Clone()
	require.True(t, g.Equal(c), "clone differs from the original")

	c.Pix[5] = 8
	assert.EqualValues(t, 7, g.Pix[5], "mutating the clone changed the original")
	assert.False(t, g.Equal(c), "Equal() missed a sample difference")
}

func TestEqualShapeMismatch(t *testing.T) {
	assert.False(t, New(2, 2, 3).Equal(New(2, 3, 2)))
}
