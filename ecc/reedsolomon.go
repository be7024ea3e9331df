// Package ecc wraps a Reed-Solomon codec for forward error correction of the
// encrypted payload.
//
// The code operates block-wise on byte symbols: each 223-byte block is
// expanded to 255 bytes (32 parity symbols), correcting up to 16 corrupted
// symbols per block. A final partial block of k bytes is encoded as a
// shortened code with proportional parity, so the coded buffer stays close
// to len(data)*255/223 regardless of payload size. The exact coded byte
// count is carried by the payload framer; this package never pads the
// original data or infers its length.
package ecc

import (
	"errors"
	"fmt"

	"github.com/vivint/infectious"
)

const (
	// DataShards is the number of data symbols per full block.
	DataShards = 223
	// ParityShards is the number of parity symbols per full block.
	ParityShards = 32
	// BlockSize is the coded size of a full block.
	BlockSize = DataShards + ParityShards
)

// ErrUncorrectable indicates corruption beyond the correction capacity of
// at least one block, e.g. heavy recompression of the carrier.
var ErrUncorrectable = errors.New("reed-solomon: corruption exceeds correction capacity")

// parityFor returns the parity symbol count for a block of k data symbols.
// Full blocks carry ParityShards; a short final block carries a
// proportional share, never fewer than 2 so a single symbol error remains
// correctable.
func parityFor(k int) int {
	if k >= DataShards {
		return ParityShards
	}
	p := (k*ParityShards + DataShards - 1) / DataShards
	if p < 2 {
		p = 2
	}
	return p
}

// EncodedLen returns the coded length of a buffer of n data bytes.
func EncodedLen(n int) int {
	full := n / DataShards
	rem := n % DataShards
	coded := full * BlockSize
	if rem > 0 {
		coded += rem + parityFor(rem)
	}
	return coded
}

// Encode expands data into a coded buffer carrying redundant symbols.
// The coded length is EncodedLen(len(data)). Encoding never fails for
// well-formed parameters; the error return covers codec construction only.
func Encode(data []byte) ([]byte, error) {
	coded := make([]byte, 0, EncodedLen(len(data)))

	for off := 0; off < len(data); off += DataShards {
		end := off + DataShards
		if end > len(data) {
			end = len(data)
		}
		block, err := encodeBlock(data[off:end])
		if err != nil {
			return nil, err
		}
		coded = append(coded, block...)
	}
	return coded, nil
}

// Decode repairs a possibly-corrupted coded buffer and returns the original
// data along with the number of symbols corrected across all blocks.
// Returns ErrUncorrectable when any block has more corrupted symbols than
// its parity can repair.
func Decode(coded []byte) ([]byte, int, error) {
	data := make([]byte, 0, len(coded)/BlockSize*DataShards+DataShards)
	corrected := 0

	for off := 0; off < len(coded); {
		blockLen := BlockSize
		if rem := len(coded) - off; rem < BlockSize {
			blockLen = rem
		}
		block, n, err := decodeBlock(coded[off : off+blockLen])
		if err != nil {
			return nil, 0, err
		}
		data = append(data, block...)
		corrected += n
		off += blockLen
	}
	return data, corrected, nil
}

func encodeBlock(block []byte) ([]byte, error) {
	k := len(block)
	n := k + parityFor(k)

	fec, err := infectious.NewFEC(k, n)
	if err != nil {
		return nil, fmt.Errorf("failed to create codec (%d,%d): %w", n, k, err)
	}

	out := make([]byte, n)
	err = fec.Encode(block, func(s infectious.Share) {
		out[s.Number] = s.Data[0]
	})
	if err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}
	return out, nil
}

func decodeBlock(coded []byte) ([]byte, int, error) {
	k, err := dataLenFor(len(coded))
	if err != nil {
		return nil, 0, err
	}
	n := len(coded)

	fec, err := infectious.NewFEC(k, n)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create codec (%d,%d): %w", n, k, err)
	}

	shares := make([]infectious.Share, n)
	for i := range shares {
		shares[i] = infectious.Share{Number: i, Data: []byte{coded[i]}}
	}

	if err := fec.Correct(shares); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUncorrectable, err)
	}

	// The code is systematic: shares 0..k-1 hold the data symbols.
	corrected := 0
	data := make([]byte, k)
	for i, s := range shares {
		if s.Data[0] != coded[i] {
			corrected++
		}
		if i < k {
			data[i] = s.Data[0]
		}
	}
	return data, corrected, nil
}

// dataLenFor inverts k+parityFor(k) for a final short block. k+parityFor(k)
// is strictly increasing, so the solution is unique when it exists.
func dataLenFor(codedLen int) (int, error) {
	if codedLen == BlockSize {
		return DataShards, nil
	}
	for k := codedLen - ParityShards; k <= codedLen-2; k++ {
		if k > 0 && k+parityFor(k) == codedLen {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid coded block length %d", ErrUncorrectable, codedLen)
}
