package ecc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, size := range []int{1, 8, 100, 222, 223, 224, 446, 500, 1000} {
		data := make([]byte, size)
		rng.Read(data)

		coded, err := Encode(data)
		require.NoError(t, err, "Encode(%d bytes)", size)
		assert.Len(t, coded, EncodedLen(size))

		recovered, corrected, err := Decode(coded)
		require.NoError(t, err, "Decode(%d bytes)", size)
		assert.Zero(t, corrected, "clean buffer needed corrections")
		assert.Equal(t, data, recovered, "round trip for %d bytes", size)
	}
}

func TestEncodeEmpty(t *testing.T) {
	coded, err := Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, coded)
}

func TestDecodeCorrectsUpToHalfParity(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	data := make([]byte, DataShards) // one full block
	rng.Read(data)

	coded, err := Encode(data)
	require.NoError(t, err)

	// Corrupt exactly floor(parity/2) = 16 symbols of the block.
	maxErrors := ParityShards / 2
	for i := 0; i < maxErrors; i++ {
		coded[i*3] ^= 0xFF
	}

	recovered, corrected, err := Decode(coded)
	require.NoError(t, err, "%d errors should be correctable", maxErrors)
	assert.Equal(t, maxErrors, corrected)
	assert.Equal(t, data, recovered)
}

func TestDecodeFailsBeyondCapacity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := make([]byte, DataShards)
	rng.Read(data)

	coded, err := Encode(data)
	require.NoError(t, err)

	// One symbol past the correction bound in a single block.
	for i := 0; i < ParityShards/2+1; i++ {
		coded[i*3] ^= 0xFF
	}

	_, _, err = Decode(coded)
	assert.ErrorIs(t, err, ErrUncorrectable)
}

func TestShortBlockCorrection(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	coded, err := Encode(data)
	require.NoError(t, err)
	// 8 data bytes carry 2 parity symbols: one error is correctable.
	require.Len(t, coded, 10)

	coded[4] ^= 0x55
	recovered, corrected, err := Decode(coded)
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
	assert.Equal(t, data, recovered)
}

func TestEncodedLenProportional(t *testing.T) {
	cases := []struct {
		data, coded int
	}{
		{0, 0},
		{1, 3},
		{8, 10},
		{223, 255},
		{224, 255 + 3},
		{446, 510},
		{230, 255 + 7 + 2},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.coded, EncodedLen(tc.data), "EncodedLen(%d)", tc.data)
	}
}

func TestDataLenForInvalid(t *testing.T) {
	for _, codedLen := range []int{1, 2} {
		_, err := dataLenFor(codedLen)
		assert.Error(t, err, "dataLenFor(%d)", codedLen)
	}
}
