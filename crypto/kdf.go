package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the iteration count for key derivation (NIST recommendation)
	PBKDF2Iterations = 100000
	// SaltSize is the size of the random salt fed to PBKDF2
	SaltSize = 16
)

// DeriveKey derives a symmetric key of keyLen bytes from a password and salt
// using PBKDF2-HMAC-SHA256. The function is deterministic: identical inputs
// always produce the identical key. A wrong password yields a valid-looking
// but different key, which is the intended security property.
func DeriveKey(password, salt []byte, keyLen int) []byte {
	return pbkdf2.Key(password, salt, PBKDF2Iterations, keyLen, sha256.New)
}

// GenerateSalt returns a cryptographically random SaltSize-byte salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
