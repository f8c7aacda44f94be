// Package backend defines the storage abstraction the Stash Engine uses
// to persist and retrieve key records, independent of the physical
// medium (embedded JSON file, SQL database, remote KV service).
package backend

import (
	"errors"

	"github.com/nir0s/clu/pkg/record"
)

// Sentinel errors shared by every backend variant.
var (
	// ErrAlreadyInitialized is returned by Init when the medium already
	// carries a stash schema.
	ErrAlreadyInitialized = errors.New("backend: stash already initialized")

	// ErrUnavailable names the case of a backend variant whose runtime
	// prerequisite is missing. None of the variants in this module
	// returns it: every driver is linked in, and an unreachable Remote-KV
	// service surfaces as a *Failure.
	ErrUnavailable = errors.New("backend: unavailable")
)

// Failure wraps an underlying storage error as a BackendFailure per the
// engine's error taxonomy, retaining the original cause.
type Failure struct {
	Op  string
	Err error
}

func (f *Failure) Error() string {
	return "backend: " + f.Op + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail wraps err as a *Failure tagged with the operation name that
// produced it.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Op: op, Err: err}
}

// Backend is the storage operation set every variant (Embedded-JSON,
// Relational, Remote-KV) implements. Records are passed and returned with
// Value already holding the ciphertext token; backends never interpret
// it.
type Backend interface {
	// Init prepares the medium for first use. Returns ErrAlreadyInitialized
	// if the medium already carries a stash schema.
	Init() error

	// Open attaches to a medium that Init already prepared, in an earlier
	// process or an earlier call. Backends with no connection state to
	// establish (Remote-KV) treat this as a no-op.
	Open() error

	// Put persists doc, which must carry a name unique within the medium,
	// and returns the backend's insertion id.
	Put(doc record.Record) (int64, error)

	// Get returns the document named name, or ok=false if absent.
	Get(name string) (doc record.Record, ok bool, err error)

	// List returns every document in the medium's natural insertion
	// order.
	List() ([]record.Record, error)

	// Delete removes the document named name and reports whether it
	// existed.
	Delete(name string) (existed bool, err error)

	// Close releases any resources held by the backend. Close is
	// idempotent.
	Close() error
}
