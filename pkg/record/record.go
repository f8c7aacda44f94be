// Package record defines the canonical shape of a stored key record and
// its serialization to and from a storage backend document.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the second-resolution, 19-character timestamp format
// shared by CreatedAt and ModifiedAt.
const TimeLayout = "2006-01-02 15:04:05"

// Now returns the current time formatted per TimeLayout.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// ProbeName is the reserved record name holding the passphrase probe.
// It is excluded from user-visible listings and exports.
const ProbeName = "stored_passphrase"

// Record is the canonical in-memory form of a stored key. Value holds
// the ciphertext token produced by the Cipher; plaintext never persists.
type Record struct {
	Name        string            `json:"name"`
	Value       []byte            `json:"value"`
	Description *string           `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	UID         string            `json:"uid"`
	CreatedAt   string            `json:"created_at"`
	ModifiedAt  string            `json:"modified_at"`
}

// MarshalPlaintext produces the canonical serialization of a plaintext
// value mapping. It is deterministic (map keys sorted) so that the same
// input always serializes to the same bytes, which is required for the
// Cipher's ciphertext-differs-per-call property to be observable only in
// the nonce, not the plaintext encoding.
func MarshalPlaintext(value map[string]string) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("record: marshal plaintext: %w", err)
	}
	return b, nil
}

// UnmarshalPlaintext parses bytes produced by MarshalPlaintext back into
// a value mapping.
func UnmarshalPlaintext(data []byte) (map[string]string, error) {
	var value map[string]string
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("record: unmarshal plaintext: %w", err)
	}
	return value, nil
}
