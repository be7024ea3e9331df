// Package crypto implements the key derivation and cipher codec for the
// vidsteg payload pipeline.
//
// Keys are derived from a password with PBKDF2-HMAC-SHA256 (100,000
// iterations, NIST recommendation) and a random 16-byte salt generated per
// embed. The cipher codec supports AES in CBC, CTR, GCM, and CFB modes with
// 128-, 192-, or 256-bit keys. The mode set is closed: every switch over
// CipherMode is exhaustive.
//
// Only GCM provides integrity. Decrypting under a wrong key fails loudly
// with ErrAuthenticationFailed in GCM, while CBC, CTR, and CFB return
// pseudorandom-looking bytes without error (CBC may also surface
// ErrPaddingInvalid when the garbage plaintext happens to end in invalid
// padding). This asymmetry is inherent to unauthenticated modes and is
// preserved deliberately; callers that need wrong-password detection must
// choose GCM.
//
// All functions are pure and safe for concurrent use.
package crypto
