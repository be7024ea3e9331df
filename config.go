package vidsteg

import (
	"errors"
	"fmt"

	"github.com/opd-ai/vidsteg/crypto"
)

// CipherMode re-exports the cipher mode enum so callers configure the
// pipeline without importing the crypto package.
type CipherMode = crypto.CipherMode

const (
	ModeCBC = crypto.ModeCBC
	ModeCTR = crypto.ModeCTR
	ModeGCM = crypto.ModeGCM
	ModeCFB = crypto.ModeCFB
)

// ParseMode converts a mode name like "gcm" or "CBC" to a CipherMode.
func ParseMode(s string) (CipherMode, error) {
	return crypto.ParseMode(s)
}

// ErrConfigInvalid indicates a bad key size, cipher mode, bits-per-channel,
// or frame index list. Rejected before any work begins.
var ErrConfigInvalid = errors.New("invalid configuration")

// Config is the immutable per-call configuration of the embed and extract
// pipelines. The extractor must be handed the identical configuration that
// produced the stego output.
type Config struct {
	// KeySize is the AES key size in bits: 128, 192, or 256.
	KeySize int

	// Mode is the block-cipher mode. Only GCM detects a wrong password.
	Mode CipherMode

	// BitsPerChannel is how many low bits of each sample carry payload,
	// 1 (default) through 4.
	BitsPerChannel int

	// FrameIndices lists the carrier frames used for embedding, in
	// embedding order. Indices must be unique and non-negative; the frame
	// slices passed to Embed and Extract follow this order.
	FrameIndices []int
}

// DefaultConfig returns the AES-256/GCM single-LSB configuration.
func DefaultConfig() Config {
	return Config{
		KeySize:        256,
		Mode:           ModeGCM,
		BitsPerChannel: 1,
	}
}

// Validate checks every configuration field and returns ErrConfigInvalid
// with context on the first violation.
func (c Config) Validate() error {
	switch c.KeySize {
	case 128, 192, 256:
	default:
		return fmt.Errorf("%w: key size %d (want 128, 192, or 256)", ErrConfigInvalid, c.KeySize)
	}

	if !c.Mode.Valid() {
		return fmt.Errorf("%w: cipher mode %d", ErrConfigInvalid, uint8(c.Mode))
	}

	if c.BitsPerChannel < 1 || c.BitsPerChannel > 4 {
		return fmt.Errorf("%w: bits per channel %d (want 1..4)", ErrConfigInvalid, c.BitsPerChannel)
	}

	seen := make(map[int]struct{}, len(c.FrameIndices))
	for _, idx := range c.FrameIndices {
		if idx < 0 {
			return fmt.Errorf("%w: negative frame index %d", ErrConfigInvalid, idx)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("%w: duplicate frame index %d", ErrConfigInvalid, idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// keyBytes returns the AES key length in bytes.
func (c Config) keyBytes() int {
	return c.KeySize / 8
}
