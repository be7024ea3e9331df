package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CipherMode identifies the AES block-cipher mode used by the codec.
// The set is closed; adding a mode requires updating every switch in this
// package.
type CipherMode uint8

const (
	ModeCBC CipherMode = iota
	ModeCTR
	ModeGCM
	ModeCFB
)

const (
	// GCMNonceSize is the standard 96-bit GCM nonce length.
	GCMNonceSize = 12
	// GCMTagSize is the 128-bit GCM authentication tag length.
	GCMTagSize = 16
	// BlockSize is the AES block size, also the IV length for non-GCM modes.
	BlockSize = aes.BlockSize
)

var (
	// ErrAuthenticationFailed indicates a GCM tag mismatch: wrong password,
	// wrong settings, or a tampered ciphertext.
	ErrAuthenticationFailed = errors.New("authentication failed: wrong password or corrupted data")

	// ErrPaddingInvalid indicates CBC plaintext with invalid PKCS#7 padding.
	ErrPaddingInvalid = errors.New("invalid padding")

	// ErrUnknownMode indicates a CipherMode value outside the supported set.
	ErrUnknownMode = errors.New("unknown cipher mode")

	// ErrKeySize indicates a key length other than 16, 24, or 32 bytes.
	ErrKeySize = errors.New("key must be 16, 24, or 32 bytes")
)

// String returns the conventional name of the mode.
func (m CipherMode) String() string {
	switch m {
	case ModeCBC:
		return "CBC"
	case ModeCTR:
		return "CTR"
	case ModeGCM:
		return "GCM"
	case ModeCFB:
		return "CFB"
	default:
		return fmt.Sprintf("CipherMode(%d)", uint8(m))
	}
}

// ParseMode converts a mode name (case-insensitive) to a CipherMode.
func ParseMode(s string) (CipherMode, error) {
	switch strings.ToUpper(s) {
	case "CBC":
		return ModeCBC, nil
	case "CTR":
		return ModeCTR, nil
	case "GCM":
		return ModeGCM, nil
	case "CFB":
		return ModeCFB, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// IVSize returns the IV/nonce length in bytes for the mode.
func (m CipherMode) IVSize() int {
	if m == ModeGCM {
		return GCMNonceSize
	}
	return BlockSize
}

// TagSize returns the authentication tag length in bytes for the mode.
// Only GCM carries a tag.
func (m CipherMode) TagSize() int {
	if m == ModeGCM {
		return GCMTagSize
	}
	return 0
}

// Valid reports whether m is one of the four supported modes.
func (m CipherMode) Valid() bool {
	switch m {
	case ModeCBC, ModeCTR, ModeGCM, ModeCFB:
		return true
	default:
		return false
	}
}

// Encrypt encrypts plaintext under key with the given mode, generating a
// fresh random IV/nonce. The IV is not secret and must be carried alongside
// the stego output so the extractor can reproduce it. tag is empty for all
// modes except GCM.
func Encrypt(plaintext, key []byte, mode CipherMode) (iv, ciphertext, tag []byte, err error) {
	iv = make([]byte, mode.IVSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	ciphertext, tag, err = EncryptWithIV(plaintext, key, iv, mode)
	if err != nil {
		return nil, nil, nil, err
	}
	return iv, ciphertext, tag, nil
}

// EncryptWithIV encrypts plaintext under key with a caller-provided IV.
// Deterministic for fixed inputs; reusing an IV under the same key breaks
// the security of every supported mode, so production callers go through
// Encrypt. Exposed for reproducible pipelines and tests.
func EncryptWithIV(plaintext, key, iv []byte, mode CipherMode) (ciphertext, tag []byte, err error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != mode.IVSize() {
		return nil, nil, fmt.Errorf("invalid IV length for %s: have %d, want %d",
			mode, len(iv), mode.IVSize())
	}

	switch mode {
	case ModeGCM:
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		sealed := gcm.Seal(nil, iv, plaintext, nil)
		split := len(sealed) - GCMTagSize
		return sealed[:split], sealed[split:], nil

	case ModeCBC:
		padded := pkcs7Pad(plaintext, BlockSize)
		ciphertext = make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
		return ciphertext, nil, nil

	case ModeCTR:
		ciphertext = make([]byte, len(plaintext))
		cipher.NewCTR(block, iv).XORKeyStream(ciphertext, plaintext)
		return ciphertext, nil, nil

	case ModeCFB:
		ciphertext = make([]byte, len(plaintext))
		cipher.NewCFBEncrypter(block, iv).XORKeyStream(ciphertext, plaintext)
		return ciphertext, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownMode, mode)
	}
}

// Decrypt reverses Encrypt. For GCM a tag mismatch returns
// ErrAuthenticationFailed deterministically. For CBC, CTR, and CFB there is
// no integrity check: a wrong key yields garbage plaintext without error
// (or ErrPaddingInvalid for CBC when the garbage fails to unpad). That
// asymmetry is documented behavior, not a defect.
func Decrypt(iv, ciphertext, tag, key []byte, mode CipherMode) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != mode.IVSize() {
		return nil, fmt.Errorf("invalid IV length for %s: have %d, want %d",
			mode, len(iv), mode.IVSize())
	}

	switch mode {
	case ModeGCM:
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		if len(tag) != GCMTagSize {
			return nil, fmt.Errorf("%w: tag length %d", ErrAuthenticationFailed, len(tag))
		}
		sealed := make([]byte, 0, len(ciphertext)+GCMTagSize)
		sealed = append(sealed, ciphertext...)
		sealed = append(sealed, tag...)
		plaintext, err := gcm.Open(nil, iv, sealed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w", ErrAuthenticationFailed)
		}
		return plaintext, nil

	case ModeCBC:
		if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
			return nil, fmt.Errorf("%w: ciphertext length %d not a block multiple",
				ErrPaddingInvalid, len(ciphertext))
		}
		padded := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
		return pkcs7Unpad(padded, BlockSize)

	case ModeCTR:
		plaintext := make([]byte, len(ciphertext))
		cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)
		return plaintext, nil

	case ModeCFB:
		plaintext := make([]byte, len(ciphertext))
		cipher.NewCFBDecrypter(block, iv).XORKeyStream(plaintext, ciphertext)
		return plaintext, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, mode)
	}
}

func newBlock(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: have %d", ErrKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return block, nil
}

// pkcs7Pad appends 1..blockSize bytes, each equal to the pad length.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrPaddingInvalid, len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: pad byte %d", ErrPaddingInvalid, n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: inconsistent pad bytes", ErrPaddingInvalid)
		}
	}
	return data[:len(data)-n], nil
}
