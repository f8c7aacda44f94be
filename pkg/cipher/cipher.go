// Package cipher implements the stash's authenticated symmetric
// encryption primitive: a passphrase-derived AES-256-GCM key sealing
// opaque byte strings.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/pbkdf2"
)

// Replaceable for testing error paths.
var (
	randRead              = rand.Read
	newGCMWithRandomNonce = func(block cipher.Block) (cipher.AEAD, error) { return cipher.NewGCMWithRandomNonce(block) }
)

const (
	// SaltSize is the number of random bytes used for PBKDF2 salt.
	SaltSize = 16

	// Iterations is the PBKDF2-SHA256 iteration count (OWASP 2023 floor).
	Iterations = 600_000

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
)

// ErrDecryptionFailed is returned by Decrypt when the ciphertext fails its
// authenticity check: tampering, truncation, or a wrong key.
var ErrDecryptionFailed = errors.New("cipher: decryption failed")

// Cipher seals and opens byte strings under a single derived key. All
// records in a stash share the key derived at construction time, so a
// restore under the same passphrase and salt reproduces it exactly.
type Cipher struct {
	key []byte
}

// DeriveKey derives a 32-byte AES-256 key from a passphrase and salt using
// PBKDF2-SHA256 with 600,000 iterations.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, Iterations, KeySize, sha256.New)
}

// New constructs a Cipher from a passphrase and salt.
func New(passphrase string, salt []byte) *Cipher {
	return &Cipher{key: DeriveKey(passphrase, salt)}
}

// GenerateSalt returns SaltSize cryptographically random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := randRead(salt); err != nil {
		return nil, fmt.Errorf("cipher: generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext with AES-256-GCM using a fresh random nonce
// embedded in the returned token. Two calls with identical plaintext
// produce different ciphertext with overwhelming probability.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("cipher: encrypt: new cipher: %w", err)
	}
	gcm, err := newGCMWithRandomNonce(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: encrypt: new gcm: %w", err)
	}
	return gcm.Seal(nil, nil, plaintext, nil), nil
}

// Decrypt opens a token produced by Encrypt. Any tampering, truncation, or
// key mismatch surfaces as ErrDecryptionFailed.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("cipher: decrypt: new cipher: %w", err)
	}
	gcm, err := newGCMWithRandomNonce(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: decrypt: new gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nil, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// alphanumeric is the character set GeneratePassphrase draws from:
// upper- and lower-case letters plus digits.
const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GeneratePassphrase returns a random alphanumeric passphrase of the given
// length. A length of 0 defaults to 12.
func GeneratePassphrase(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("cipher: generate passphrase: %w", err)
		}
		out[i] = alphanumeric[n.Int64()]
	}
	return string(out), nil
}
