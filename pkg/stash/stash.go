// Package stash implements the Stash Engine: the core that mediates
// every read and write against a secret stash, enforcing the
// cryptographic envelope, record invariants, and passphrase validation
// across pluggable storage backends.
package stash

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nir0s/clu/pkg/backend"
	"github.com/nir0s/clu/pkg/cipher"
	"github.com/nir0s/clu/pkg/record"
)

// probeSalt is the fixed PBKDF2 salt used to derive every stash's cipher
// key. Encryption under a given passphrase must be reproducible with no
// other stored secret than the passphrase itself: load() inserts
// exported ciphertext from a different medium and expects it to decrypt
// under the same passphrase alone, so the salt is a module-wide constant
// rather than randomly generated per stash.
var probeSalt = []byte("clu-stash-fixed-salt-v1")

// Stash mediates all access to one storage backend: it owns the backend
// handle and a Cipher derived from the stash passphrase for its entire
// lifetime.
type Stash struct {
	be         backend.Backend
	cipher     *cipher.Cipher
	passphrase string
}

// Entry is a record as returned to a caller of Get. Value is populated
// when decrypt was requested; Ciphertext holds the raw stored bytes
// otherwise.
type Entry struct {
	Name        string
	Value       map[string]string
	Ciphertext  []byte
	Description *string
	Metadata    map[string]string
	UID         string
	CreatedAt   string
	ModifiedAt  string
}

func generateUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// probePlaintext is the passphrase probe's known plaintext document: the
// effective passphrase itself, so a successful decrypt both validates
// the passphrase and (operationally) recovers it from the medium.
func probePlaintext(passphrase string) (map[string]string, error) {
	return map[string]string{"passphrase": passphrase}, nil
}

// Init initializes a fresh stash over be. If passphrase is empty, a
// 12-character random alphanumeric passphrase is generated. Returns the
// effective passphrase. Fails with the backend's ErrAlreadyInitialized if
// the medium already carries a stash.
func Init(be backend.Backend, passphrase string) (string, error) {
	effective := passphrase
	if effective == "" {
		generated, err := cipher.GeneratePassphrase(0)
		if err != nil {
			return "", newError(ErrInvalidPassphrase, fmt.Sprintf("could not generate a passphrase: %v", err))
		}
		effective = generated
	}

	if err := be.Init(); err != nil {
		if errors.Is(err, backend.ErrAlreadyInitialized) {
			return "", newError(ErrAlreadyInitialized, "Stash already initialized")
		}
		return "", wrapBackendFailure("init", err)
	}

	c := cipher.New(effective, probeSalt)

	plaintext, err := probePlaintext(effective)
	if err != nil {
		return "", err
	}
	plaintextBytes, err := record.MarshalPlaintext(plaintext)
	if err != nil {
		return "", err
	}
	ciphertext, err := c.Encrypt(plaintextBytes)
	if err != nil {
		return "", newError(ErrInvalidPassphrase, fmt.Sprintf("could not encrypt the passphrase probe: %v", err))
	}

	now := record.Now()
	probe := record.Record{
		Name:       record.ProbeName,
		Value:      ciphertext,
		UID:        generateUID(),
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if _, err := be.Put(probe); err != nil {
		return "", wrapBackendFailure("init", err)
	}

	return effective, nil
}

// Open attaches a Stash to an already-initialized backend and validates
// passphrase by decrypting the stash's passphrase probe. Failure to
// decrypt surfaces as InvalidPassphrase.
func Open(be backend.Backend, passphrase string) (*Stash, error) {
	if passphrase == "" {
		return nil, newError(ErrInvalidPassphrase, "passphrase must be a non-empty string")
	}

	if err := be.Open(); err != nil {
		return nil, wrapBackendFailure("open", err)
	}

	c := cipher.New(passphrase, probeSalt)

	probe, ok, err := be.Get(record.ProbeName)
	if err != nil {
		return nil, wrapBackendFailure("open", err)
	}
	if !ok {
		return nil, newError(ErrNotInitialized, "Stash has not been initialized")
	}

	if _, err := c.Decrypt(probe.Value); err != nil {
		return nil, newError(ErrInvalidPassphrase, "The passphrase provided is invalid")
	}

	return &Stash{be: be, cipher: c, passphrase: passphrase}, nil
}

// Close releases the underlying backend handle.
func (s *Stash) Close() error {
	return s.be.Close()
}

func wrapBackendFailure(op string, err error) *Error {
	return newError(ErrBackendFailure, fmt.Sprintf("%s: %v", op, err))
}
