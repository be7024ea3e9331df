package vidsteg

import (
	"github.com/opd-ai/vidsteg/crypto"
	"github.com/opd-ai/vidsteg/ecc"
	"github.com/opd-ai/vidsteg/stego"
)

// The failure taxonomy of the codec, re-exported from the packages that
// raise them so callers can errors.Is against a single import.
var (
	// ErrCapacityExceeded: payload too large for the chosen frames.
	// Raised before any frame is mutated.
	ErrCapacityExceeded = stego.ErrCapacityExceeded

	// ErrTruncatedStream: the extractor ran out of carrier bits before the
	// declared length was satisfied. Wrong frame range or wrong carrier.
	ErrTruncatedStream = stego.ErrTruncatedStream

	// ErrAuthenticationFailed: GCM tag mismatch, i.e. wrong password or
	// settings. Reported deterministically; only GCM can detect this.
	ErrAuthenticationFailed = crypto.ErrAuthenticationFailed

	// ErrPaddingInvalid: CBC plaintext failed to unpad, usually a wrong
	// password surfacing through garbage plaintext.
	ErrPaddingInvalid = crypto.ErrPaddingInvalid

	// ErrUncorrectable: carrier corruption beyond the Reed-Solomon
	// correction capacity, e.g. heavy recompression.
	ErrUncorrectable = ecc.ErrUncorrectable
)
