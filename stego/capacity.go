package stego

import (
	"github.com/opd-ai/vidsteg/ecc"
	"github.com/opd-ai/vidsteg/frame"
)

// Dims describes the shape of a candidate carrier frame.
type Dims struct {
	Height   int
	Width    int
	Channels int
}

// CapacityBits returns the payload capacity in bits of the given frames at
// the given bits-per-channel: the raw sample capacity minus the 32-bit
// length header, clamped to zero. This is the size budget for the ECC-coded
// ciphertext, not for the caller's original payload.
func CapacityBits(dims []Dims, bpc int) int {
	total := 0
	for _, d := range dims {
		total += d.Height * d.Width * d.Channels * bpc
	}
	total -= HeaderBits
	if total < 0 {
		return 0
	}
	return total
}

// GridCapacityBits is CapacityBits over in-memory frames.
func GridCapacityBits(frames []*frame.Grid, bpc int) int {
	dims := make([]Dims, len(frames))
	for i, g := range frames {
		dims[i] = Dims{Height: g.Height, Width: g.Width, Channels: g.Channels}
	}
	return CapacityBits(dims, bpc)
}

// UsablePayloadBytes converts a raw capacity in bits to the caller-facing
// payload budget, discounting the Reed-Solomon expansion ratio. This is a
// convenience estimate, deliberately separate from the raw capacity; the
// byte-exact fit is still decided by the packer's pre-pass.
func UsablePayloadBytes(capacityBits int) int {
	return capacityBits / 8 * ecc.DataShards / ecc.BlockSize
}
