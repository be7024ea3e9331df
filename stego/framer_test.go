package stego

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/vidsteg/frame"
)

func TestFrameHeader(t *testing.T) {
	framed, err := Frame([]byte{0xDE, 0xAD})
	require.NoError(t, err)

	assert.Equal(t, []byte{0, 0, 0, 2, 0xDE, 0xAD}, framed)
}

func TestFrameEmptyPayload(t *testing.T) {
	framed, err := Frame(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, framed)
}

func TestUnframeStopsAtDeclaredLength(t *testing.T) {
	p, _ := NewPacker(1)
	g := frame.New(8, 8, 3) // plenty of tail samples

	framed, _ := Frame([]byte{1, 2, 3})
	_, err := p.Embed([]*frame.Grid{g}, framed)
	require.NoError(t, err)

	src := newBitSource([]*frame.Grid{g}, 1)
	coded, err := Unframe(src)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, coded)
	// The source must sit exactly at the end of the declared payload,
	// having never read tail bits.
	assert.Equal(t, 56, src.si)
}
