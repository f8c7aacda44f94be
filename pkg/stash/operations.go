package stash

import (
	"fmt"

	"github.com/nir0s/clu/pkg/record"
)

// PutOptions carries the optional arguments to Put. Value is any so that
// passing a non-map (e.g. a plain string) can surface InvalidValueType
// the way a duck-typed value argument would; Go callers normally pass a
// map[string]string or nil.
type PutOptions struct {
	Value       any
	Modify      bool
	Metadata    map[string]string
	Description *string
}

// Put creates or, with Modify set, overwrites the record named name.
func (s *Stash) Put(name string, opts PutOptions) (int64, error) {
	if name == "" {
		return 0, newError(ErrInvalidName, "Key name must not be empty")
	}
	if name == record.ProbeName {
		return 0, newError(ErrInvalidName, fmt.Sprintf("%q is a reserved key name", record.ProbeName))
	}

	existing, found, err := s.be.Get(name)
	if err != nil {
		return 0, wrapBackendFailure("put", err)
	}

	var rec record.Record
	var plaintext map[string]string

	switch {
	case found:
		if !opts.Modify {
			return 0, newError(ErrKeyExists, fmt.Sprintf("Key %s already exists. Use the modify flag to overwrite", name))
		}

		existingPlaintext, err := s.decryptValue(existing.Value)
		if err != nil {
			return 0, err
		}

		plaintext = existingPlaintext
		if opts.Value != nil {
			v, ok := opts.Value.(map[string]string)
			if !ok {
				return 0, newError(ErrInvalidValueType, "Value must be of type dict")
			}
			plaintext = v
		}

		description := existing.Description
		if opts.Description != nil {
			description = opts.Description
		}
		metadata := existing.Metadata
		if opts.Metadata != nil {
			metadata = opts.Metadata
		}

		rec = record.Record{
			Name:        name,
			Description: description,
			Metadata:    metadata,
			UID:         existing.UID,
			CreatedAt:   existing.CreatedAt,
			ModifiedAt:  record.Now(),
		}

	default:
		if opts.Modify {
			return 0, newError(ErrKeyNotFound, fmt.Sprintf("Key %s does not exist, therefore cannot be modified", name))
		}
		if opts.Value == nil {
			return 0, newError(ErrMissingValue, "You must provide a value for new keys")
		}
		v, ok := opts.Value.(map[string]string)
		if !ok {
			return 0, newError(ErrInvalidValueType, "Value must be of type dict")
		}
		plaintext = v

		now := record.Now()
		rec = record.Record{
			Name:        name,
			Description: opts.Description,
			Metadata:    opts.Metadata,
			UID:         generateUID(),
			CreatedAt:   now,
			ModifiedAt:  now,
		}
	}

	plaintextBytes, err := record.MarshalPlaintext(plaintext)
	if err != nil {
		return 0, err
	}
	ciphertext, err := s.cipher.Encrypt(plaintextBytes)
	if err != nil {
		return 0, newError(ErrInvalidValueType, fmt.Sprintf("could not encrypt value: %v", err))
	}
	rec.Value = ciphertext

	id, err := s.be.Put(rec)
	if err != nil {
		return 0, wrapBackendFailure("put", err)
	}
	return id, nil
}

// Get returns the record named name, or nil if absent. When decrypt is
// true, Entry.Value holds the decrypted mapping and Entry.Ciphertext is
// nil; otherwise Entry.Ciphertext holds the raw stored bytes and
// Entry.Value is nil.
func (s *Stash) Get(name string, decrypt bool) (*Entry, error) {
	rec, found, err := s.be.Get(name)
	if err != nil {
		return nil, wrapBackendFailure("get", err)
	}
	if !found {
		return nil, nil
	}

	entry := &Entry{
		Name:        rec.Name,
		Description: rec.Description,
		Metadata:    rec.Metadata,
		UID:         rec.UID,
		CreatedAt:   rec.CreatedAt,
		ModifiedAt:  rec.ModifiedAt,
	}

	if decrypt {
		value, err := s.decryptValue(rec.Value)
		if err != nil {
			return nil, err
		}
		entry.Value = value
	} else {
		entry.Ciphertext = rec.Value
	}
	return entry, nil
}

// Delete removes the record named name. Fails with KeyNotFound if it
// does not exist, and with InvalidName if name is the passphrase probe:
// deleting it would leave the stash without its probe record, which
// Open requires to attach.
func (s *Stash) Delete(name string) error {
	if name == record.ProbeName {
		return newError(ErrInvalidName, fmt.Sprintf("%q is a reserved key name", record.ProbeName))
	}

	existed, err := s.be.Delete(name)
	if err != nil {
		return wrapBackendFailure("delete", err)
	}
	if !existed {
		return newError(ErrKeyNotFound, fmt.Sprintf("Key %s not found", name))
	}
	return nil
}

// List returns every user-visible key name in the backend's natural
// insertion order, excluding the passphrase probe.
func (s *Stash) List() ([]string, error) {
	records, err := s.be.List()
	if err != nil {
		return nil, wrapBackendFailure("list", err)
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Name == record.ProbeName {
			continue
		}
		names = append(names, rec.Name)
	}
	return names, nil
}

// Purge deletes every user record; the passphrase probe is never
// touched. Requires force=true.
func (s *Stash) Purge(force bool) error {
	if !force {
		return newError(ErrForceRequired, "The `force` flag must be provided to perform a stash purge")
	}

	records, err := s.be.List()
	if err != nil {
		return wrapBackendFailure("purge", err)
	}
	for _, rec := range records {
		if rec.Name == record.ProbeName {
			continue
		}
		if _, err := s.be.Delete(rec.Name); err != nil {
			return wrapBackendFailure("purge", err)
		}
	}
	return nil
}

func (s *Stash) decryptValue(ciphertext []byte) (map[string]string, error) {
	plaintext, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, newError(ErrDecryptionFailed, "The passphrase could not decrypt this value")
	}
	value, err := record.UnmarshalPlaintext(plaintext)
	if err != nil {
		return nil, newError(ErrDecryptionFailed, "The decrypted value is not a valid document")
	}
	return value, nil
}
