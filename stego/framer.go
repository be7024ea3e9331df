package stego

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderBits is the size of the length header preceding the coded payload.
const HeaderBits = 32

var (
	// ErrTruncatedStream indicates the carrier ran out of samples before the
	// declared payload length was satisfied: wrong frame range or wrong
	// carrier.
	ErrTruncatedStream = errors.New("truncated stream: carrier exhausted before declared length")

	// ErrPayloadTooLarge indicates a coded payload beyond the 32-bit length
	// header range.
	ErrPayloadTooLarge = errors.New("coded payload exceeds length header range")
)

// Frame prepends a 4-byte big-endian length header to the coded payload.
// The length counts bytes of the ECC-coded buffer, not of the original
// plaintext; the extractor reads exactly that many bytes and stops.
func Frame(coded []byte) ([]byte, error) {
	if len(coded) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(coded))
	}
	framed := make([]byte, 4+len(coded))
	binary.BigEndian.PutUint32(framed[:4], uint32(len(coded)))
	copy(framed[4:], coded)
	return framed, nil
}

// Unframe reads the 32-bit length header from a bit source, then exactly
// that many payload bytes. Returns ErrTruncatedStream when the source holds
// fewer than 32+8L bits.
func Unframe(src *bitSource) ([]byte, error) {
	header, err := src.readBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading length header: %w", err)
	}
	length := binary.BigEndian.Uint32(header)

	coded, err := src.readBytes(int(length))
	if err != nil {
		return nil, fmt.Errorf("reading %d payload bytes: %w", length, err)
	}
	return coded, nil
}
