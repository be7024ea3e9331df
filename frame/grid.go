// Package frame defines the pixel grid model shared by the embedding,
// extraction, and analysis packages.
//
// A Grid is a borrowed buffer: the video I/O layer owns the backing memory
// for the lifetime of a call, the codec reads it during extraction and
// mutates it in place during embedding. The codec never allocates or frees
// video-frame memory on its own beyond the Clone helper.
package frame

import (
	"errors"
	"fmt"
)

// ErrGridShape indicates pixel data that does not match the declared dimensions.
var ErrGridShape = errors.New("pixel data does not match grid dimensions")

// Grid is a single video frame: Height x Width x Channels unsigned 8-bit
// samples in row-major, channel-interleaved order. The sample for channel c
// of pixel (x, y) lives at Pix[(y*Width+x)*Channels+c].
type Grid struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed grid with the given dimensions.
func New(height, width, channels int) *Grid {
	return &Grid{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]uint8, height*width*channels),
	}
}

// FromPix wraps an existing sample buffer without copying it.
// Returns ErrGridShape if the buffer length does not equal
// height*width*channels.
func FromPix(height, width, channels int, pix []uint8) (*Grid, error) {
	if len(pix) != height*width*channels {
		return nil, fmt.Errorf("%w: have %d samples, want %d",
			ErrGridShape, len(pix), height*width*channels)
	}
	return &Grid{Height: height, Width: width, Channels: channels, Pix: pix}, nil
}

// Samples returns the number of 8-bit samples in the grid.
func (g *Grid) Samples() int {
	return g.Height * g.Width * g.Channels
}

// At returns the sample for channel c of pixel (x, y).
func (g *Grid) At(y, x, c int) uint8 {
	return g.Pix[(y*g.Width+x)*g.Channels+c]
}

// Set replaces the sample for channel c of pixel (x, y).
func (g *Grid) Set(y, x, c int, v uint8) {
	g.Pix[(y*g.Width+x)*g.Channels+c] = v
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	pix := make([]uint8, len(g.Pix))
	copy(pix, g.Pix)
	return &Grid{Height: g.Height, Width: g.Width, Channels: g.Channels, Pix: pix}
}

// Equal reports whether two grids have identical dimensions and samples.
func (g *Grid) Equal(other *Grid) bool {
	if g.Height != other.Height || g.Width != other.Width || g.Channels != other.Channels {
		return false
	}
	for i := range g.Pix {
		if g.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}
