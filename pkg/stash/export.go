package stash

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nir0s/clu/pkg/record"
)

// exportDoc is the on-disk shape of an exported record: ciphertext
// base64-encoded into a string, matching the Embedded-JSON backend's
// document format so an export file can be loaded by any backend
// variant.
type exportDoc struct {
	Name        string            `json:"name"`
	Value       string            `json:"value"`
	Description *string           `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	UID         string            `json:"uid"`
	CreatedAt   string            `json:"created_at"`
	ModifiedAt  string            `json:"modified_at"`
}

func toExportDoc(rec record.Record) exportDoc {
	return exportDoc{
		Name:        rec.Name,
		Value:       base64.StdEncoding.EncodeToString(rec.Value),
		Description: rec.Description,
		Metadata:    rec.Metadata,
		UID:         rec.UID,
		CreatedAt:   rec.CreatedAt,
		ModifiedAt:  rec.ModifiedAt,
	}
}

func fromExportDoc(d exportDoc) (record.Record, error) {
	value, err := base64.StdEncoding.DecodeString(d.Value)
	if err != nil {
		return record.Record{}, fmt.Errorf("decode value: %w", err)
	}
	return record.Record{
		Name:        d.Name,
		Value:       value,
		Description: d.Description,
		Metadata:    d.Metadata,
		UID:         d.UID,
		CreatedAt:   d.CreatedAt,
		ModifiedAt:  d.ModifiedAt,
	}, nil
}

// Export collects every user record in its on-backend (ciphertext) form.
// Fails with EmptyExport if there are none. If path is non-empty, the
// records are additionally written there as a JSON array; the in-memory
// list is always returned.
func (s *Stash) Export(path string) ([]record.Record, error) {
	all, err := s.be.List()
	if err != nil {
		return nil, wrapBackendFailure("export", err)
	}

	records := make([]record.Record, 0, len(all))
	for _, rec := range all {
		if rec.Name == record.ProbeName {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, newError(ErrEmptyExport, "There are no keys to export")
	}

	if path != "" {
		docs := make([]exportDoc, len(records))
		for i, rec := range records {
			docs[i] = toExportDoc(rec)
		}
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("stash: export: marshal: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, wrapBackendFailure("export", err)
		}
	}

	return records, nil
}

// LoadOptions carries the optional arguments to Load. Exactly one of
// Keys or KeyFile must be set.
type LoadOptions struct {
	Keys    []record.Record
	KeyFile string

	// Verify, if true, attempts to decrypt every record under the
	// current passphrase before inserting any of them. Off by default:
	// no such check runs by default, leaving a decryption failure to
	// surface lazily on a subsequent Get.
	Verify bool
}

// Load inserts every record from the source into the backend without
// re-encrypting; the source must have been produced by a stash under the
// same passphrase. Fails with NoSource unless exactly one of Keys or
// KeyFile is given.
func (s *Stash) Load(opts LoadOptions) error {
	if (len(opts.Keys) == 0) == (opts.KeyFile == "") {
		return newError(ErrNoSource, "You must either provide a path to an exported stash or a list of keys")
	}

	records := opts.Keys
	if opts.KeyFile != "" {
		data, err := os.ReadFile(opts.KeyFile)
		if err != nil {
			return wrapBackendFailure("load", err)
		}
		var docs []exportDoc
		if err := json.Unmarshal(data, &docs); err != nil {
			return fmt.Errorf("stash: load: unmarshal: %w", err)
		}
		records = make([]record.Record, len(docs))
		for i, d := range docs {
			rec, err := fromExportDoc(d)
			if err != nil {
				return fmt.Errorf("stash: load: %w", err)
			}
			records[i] = rec
		}
	}

	if opts.Verify {
		for _, rec := range records {
			if _, err := s.cipher.Decrypt(rec.Value); err != nil {
				return newError(ErrDecryptionFailed, fmt.Sprintf("key %s does not decrypt under the current passphrase", rec.Name))
			}
		}
	}

	for _, rec := range records {
		if _, err := s.be.Put(rec); err != nil {
			return wrapBackendFailure("load", err)
		}
	}
	return nil
}
