// Package remotekv implements the Remote-KV storage backend variant: a
// blocking HTTP façade over a Consul-compatible key/value service,
// matching a Consul-compatible ConsulStorage wire protocol
// (GET/PUT/DELETE against /v1/kv/<prefix>/<name>).
package remotekv

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nir0s/clu/pkg/backend"
	"github.com/nir0s/clu/pkg/record"
)

// Config configures the Remote-KV backend. Addr and Prefix are
// configuration with a default, not constants: a default local Consul
// agent on the conventional "ghost" prefix.
type Config struct {
	// Addr is the "host:port" of the KV service.
	Addr string

	// Prefix is the key path prefix all records live under.
	Prefix string

	// Timeout bounds every HTTP round-trip. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultAddr and DefaultPrefix are the conventional local Consul agent
// defaults.
const (
	DefaultAddr   = "127.0.0.1:8500"
	DefaultPrefix = "ghost"
)

// DefaultTimeout bounds a Remote-KV round-trip when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// wireDoc is the JSON shape exchanged with the KV service: ciphertext
// base64-encoded into a string, same as the Embedded-JSON variant.
type wireDoc struct {
	Name        string            `json:"name"`
	Value       string            `json:"value"`
	Description *string           `json:"description"`
	Metadata    map[string]string `json:"metadata"`
	UID         string            `json:"uid"`
	CreatedAt   string            `json:"created_at"`
	ModifiedAt  string            `json:"modified_at"`
}

// kvEntry is a single element of a Consul-style GET response.
type kvEntry struct {
	Value string `json:"Value"`
}

// Backend speaks the Remote-KV wire protocol over HTTP.
type Backend struct {
	cfg    Config
	client *http.Client
}

// New creates a Backend. Zero-value Config fields fall back to
// DefaultAddr, DefaultPrefix, and DefaultTimeout.
func New(cfg Config) *Backend {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Backend{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (b *Backend) url(name string) string {
	return fmt.Sprintf("http://%s/v1/kv/%s/%s", b.cfg.Addr, b.cfg.Prefix, name)
}

func (b *Backend) listURL() string {
	return fmt.Sprintf("http://%s/v1/kv/%s/?keys", b.cfg.Addr, b.cfg.Prefix)
}

// Init is a no-op: the Remote-KV service owns its own lifecycle and has
// no stash-specific schema to create. It exists to satisfy the Backend
// interface.
func (b *Backend) Init() error {
	return nil
}

// Open is a no-op: every call already carries its own HTTP round-trip,
// so there is no connection state to establish ahead of time.
func (b *Backend) Open() error {
	return nil
}

// Put stores doc under its name, HTTP PUT with the document as the JSON
// body. The document's value field is already base64-encoded ciphertext.
// The KV service assigns no insertion id, so the returned id is always 0.
func (b *Backend) Put(rec record.Record) (int64, error) {
	doc := toWireDoc(rec)
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, backend.Fail("put", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPut, b.url(rec.Name), bytes.NewReader(body))
	if err != nil {
		return 0, backend.Fail("put", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, backend.Fail("put", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, backend.Fail("put", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return 0, nil
}

// Get returns the record named name, or ok=false on a 404.
func (b *Backend) Get(name string) (record.Record, bool, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, b.url(name), nil)
	if err != nil {
		return record.Record{}, false, backend.Fail("get", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return record.Record{}, false, backend.Fail("get", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return record.Record{}, false, nil
	case http.StatusOK:
		var entries []kvEntry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			return record.Record{}, false, backend.Fail("get", err)
		}
		if len(entries) == 0 {
			return record.Record{}, false, nil
		}
		docJSON, err := base64.StdEncoding.DecodeString(entries[0].Value)
		if err != nil {
			return record.Record{}, false, backend.Fail("get", err)
		}
		var doc wireDoc
		if err := json.Unmarshal(docJSON, &doc); err != nil {
			return record.Record{}, false, backend.Fail("get", err)
		}
		rec, err := fromWireDoc(doc)
		if err != nil {
			return record.Record{}, false, backend.Fail("get", err)
		}
		return rec, true, nil
	default:
		return record.Record{}, false, backend.Fail("get", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

// List returns every record under the configured prefix. The KV
// service's /?keys endpoint returns full paths; List strips the prefix
// and fetches each record to build the full document list.
func (b *Backend) List() ([]record.Record, error) {
	names, err := b.listNames()
	if err != nil {
		return nil, err
	}

	out := make([]record.Record, 0, len(names))
	for _, name := range names {
		rec, ok, err := b.Get(name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// listNames returns the leaf key names under the configured prefix.
func (b *Backend) listNames() ([]string, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, b.listURL(), nil)
	if err != nil {
		return nil, backend.Fail("list", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, backend.Fail("list", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
		var paths []string
		if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
			return nil, backend.Fail("list", err)
		}
		prefix := b.cfg.Prefix + "/"
		names := make([]string, 0, len(paths))
		for _, p := range paths {
			names = append(names, strings.TrimPrefix(p, prefix))
		}
		return names, nil
	default:
		return nil, backend.Fail("list", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

// Delete removes the record named name. 200 reports it existed; 404
// reports it did not.
func (b *Backend) Delete(name string) (bool, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, b.url(name), nil)
	if err != nil {
		return false, backend.Fail("delete", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return false, backend.Fail("delete", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, backend.Fail("delete", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

// Close is a no-op: the backend holds no persistent connection beyond
// the pooled *http.Client.
func (b *Backend) Close() error {
	return nil
}

func toWireDoc(rec record.Record) wireDoc {
	return wireDoc{
		Name:        rec.Name,
		Value:       base64.StdEncoding.EncodeToString(rec.Value),
		Description: rec.Description,
		Metadata:    rec.Metadata,
		UID:         rec.UID,
		CreatedAt:   rec.CreatedAt,
		ModifiedAt:  rec.ModifiedAt,
	}
}

func fromWireDoc(doc wireDoc) (record.Record, error) {
	value, err := base64.StdEncoding.DecodeString(doc.Value)
	if err != nil {
		return record.Record{}, fmt.Errorf("decode value: %w", err)
	}
	return record.Record{
		Name:        doc.Name,
		Value:       value,
		Description: doc.Description,
		Metadata:    doc.Metadata,
		UID:         doc.UID,
		CreatedAt:   doc.CreatedAt,
		ModifiedAt:  doc.ModifiedAt,
	}, nil
}
