// Package jsonfile implements the Embedded-JSON storage backend variant:
// a single JSON file holding every record under a "_default" table, keyed
// by a stringified auto-incrementing id — the layout of the original
// ghost stash's TinyDB-backed storage.
package jsonfile

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/nir0s/clu/pkg/backend"
	"github.com/nir0s/clu/pkg/record"
)

// defaultTable is the top-level key TinyDB used for its default table.
const defaultTable = "_default"

// doc is the on-disk shape of a record: ciphertext base64-encoded into a
// JSON string, everything else JSON-native.
type doc struct {
	Name        string            `json:"name"`
	Value       string            `json:"value"`
	Description *string           `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	UID         string            `json:"uid"`
	CreatedAt   string            `json:"created_at"`
	ModifiedAt  string            `json:"modified_at"`
}

// file is the top-level JSON shape of the stash file.
type file struct {
	Default map[string]doc `json:"_default"`
}

// Backend persists records as a single JSON file.
type Backend struct {
	mu     sync.Mutex
	path   string
	nextID int64
	data   map[string]doc
}

// New creates a Backend bound to path. Call Init before first use, or Open
// to attach to an already-initialized file.
func New(path string) *Backend {
	return &Backend{path: path, data: make(map[string]doc)}
}

// Init creates the parent directory if missing and writes a fresh, empty
// stash file. Returns backend.ErrAlreadyInitialized if the file already
// exists.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := os.Stat(b.path); err == nil {
		return backend.ErrAlreadyInitialized
	} else if !os.IsNotExist(err) {
		return backend.Fail("init", err)
	}

	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return backend.Fail("init", err)
		}
	}

	b.data = make(map[string]doc)
	b.nextID = 1
	return b.save()
}

// Open attaches to an existing stash file, loading its current contents
// and determining the next insertion id.
func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *Backend) load() error {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return backend.Fail("open", err)
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return backend.Fail("open", err)
	}
	if f.Default == nil {
		f.Default = make(map[string]doc)
	}
	b.data = f.Default

	var maxID int64
	for k := range b.data {
		if id, err := strconv.ParseInt(k, 10, 64); err == nil && id > maxID {
			maxID = id
		}
	}
	b.nextID = maxID + 1
	return nil
}

func (b *Backend) save() error {
	f := file{Default: b.data}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return backend.Fail("save", err)
	}
	if err := os.WriteFile(b.path, raw, 0o600); err != nil {
		return backend.Fail("save", err)
	}
	return nil
}

// Put assigns the next insertion id to doc and persists it.
func (b *Backend) Put(rec record.Record) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A put that modifies an existing record reuses its id.
	id := b.nextID
	for k, existing := range b.data {
		if existing.Name == rec.Name {
			parsedID, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				return 0, backend.Fail("put", err)
			}
			id = parsedID
			break
		}
	}
	if id == b.nextID {
		b.nextID++
	}

	b.data[strconv.FormatInt(id, 10)] = toDoc(rec)
	if err := b.save(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the record named name, or ok=false if absent.
func (b *Backend) Get(name string) (record.Record, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, d := range b.data {
		if d.Name == name {
			rec, err := fromDoc(d)
			if err != nil {
				return record.Record{}, false, backend.Fail("get", err)
			}
			return rec, true, nil
		}
	}
	return record.Record{}, false, nil
}

// List returns every record in ascending insertion-id order.
func (b *Backend) List() ([]record.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.data))
	for k := range b.data {
		ids = append(ids, k)
	}
	sortNumericStrings(ids)

	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := fromDoc(b.data[id])
		if err != nil {
			return nil, backend.Fail("list", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes the record named name and reports whether it existed.
func (b *Backend) Delete(name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, d := range b.data {
		if d.Name == name {
			delete(b.data, k)
			if err := b.save(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Close is a no-op: the backend holds no open file handle between calls.
func (b *Backend) Close() error {
	return nil
}

func toDoc(rec record.Record) doc {
	return doc{
		Name:        rec.Name,
		Value:       base64.StdEncoding.EncodeToString(rec.Value),
		Description: rec.Description,
		Metadata:    rec.Metadata,
		UID:         rec.UID,
		CreatedAt:   rec.CreatedAt,
		ModifiedAt:  rec.ModifiedAt,
	}
}

func fromDoc(d doc) (record.Record, error) {
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

// sortNumericStrings sorts string-encoded integers by numeric value.
func sortNumericStrings(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})
}
