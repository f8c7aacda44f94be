package stash

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nir0s/clu/pkg/backend/jsonfile"
	"github.com/nir0s/clu/pkg/record"
)

const testPassphrase = "a"

func newTestStash(t *testing.T) (*Stash, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stash.json")
	be := jsonfile.New(path)

	effective, err := Init(be, testPassphrase)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if effective != testPassphrase {
		t.Fatalf("effective passphrase = %q, want %q", effective, testPassphrase)
	}

	s, err := Open(be, testPassphrase)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s, path
}

func TestInit_generatesPassphraseWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.json")
	be := jsonfile.New(path)

	effective, err := Init(be, "")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if len(effective) != 12 {
		t.Fatalf("generated passphrase length = %d, want 12", len(effective))
	}
}

func TestInit_alreadyInitialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.json")
	be := jsonfile.New(path)

	if _, err := Init(be, testPassphrase); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := Init(jsonfile.New(path), testPassphrase); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestOpen_invalidPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.json")
	be := jsonfile.New(path)
	if _, err := Init(be, testPassphrase); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, err := Open(jsonfile.New(path), "wrong-passphrase"); !errors.Is(err, ErrInvalidPassphrase) {
		t.Fatalf("expected ErrInvalidPassphrase, got %v", err)
	}
}

func TestOpen_emptyPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.json")
	be := jsonfile.New(path)
	if _, err := Init(be, testPassphrase); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, err := Open(jsonfile.New(path), ""); !errors.Is(err, ErrInvalidPassphrase) {
		t.Fatalf("expected ErrInvalidPassphrase, got %v", err)
	}
}

func assertStashInitialized(t *testing.T, path string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stash file: %v", err)
	}
	if !strings.Contains(string(raw), `"1"`) || !strings.Contains(string(raw), "stored_passphrase") {
		t.Fatalf("expected probe record at id 1 in %s", raw)
	}
}

func TestInit_scenario(t *testing.T) {
	_, path := newTestStash(t)
	assertStashInitialized(t, path)
}

func TestPut_newKey(t *testing.T) {
	s, _ := newTestStash(t)

	id, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if id != 2 {
		t.Fatalf("expected id 2, got %d", id)
	}

	entry, err := s.Get("aws", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry, got nil")
	}
	if entry.Description != nil {
		t.Fatalf("expected nil description, got %v", *entry.Description)
	}
	if entry.Metadata != nil {
		t.Fatalf("expected nil metadata, got %v", entry.Metadata)
	}
	if entry.Value["key"] != "value" {
		t.Fatalf("unexpected value: %v", entry.Value)
	}
}

func TestPut_existingNoModify(t *testing.T) {
	s, _ := newTestStash(t)

	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	_, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}})
	if !errors.Is(err, ErrKeyExists) {
		t.Fatalf("expected ErrKeyExists, got %v", err)
	}
}

func TestPut_modifyPreservesCreatedAt(t *testing.T) {
	s, _ := newTestStash(t)

	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	before, err := s.Get("aws", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := s.Put("aws", PutOptions{
		Value:  map[string]string{"modified_key": "modified_value"},
		Modify: true,
	}); err != nil {
		t.Fatalf("Put (modify) failed: %v", err)
	}

	after, err := s.Get("aws", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if after.Value["modified_key"] != "modified_value" {
		t.Fatalf("unexpected modified value: %v", after.Value)
	}
	if after.CreatedAt != before.CreatedAt {
		t.Fatalf("created_at changed: before=%q after=%q", before.CreatedAt, after.CreatedAt)
	}
	if after.ModifiedAt == before.ModifiedAt {
		t.Fatal("expected modified_at to advance")
	}
	if after.UID != before.UID {
		t.Fatal("expected uid to be preserved across modify")
	}
}

func TestPut_modifyNonexistent(t *testing.T) {
	s, _ := newTestStash(t)

	_, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}, Modify: true})
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestPut_missingValueOnCreate(t *testing.T) {
	s, _ := newTestStash(t)

	_, err := s.Put("new-key", PutOptions{})
	if !errors.Is(err, ErrMissingValue) {
		t.Fatalf("expected ErrMissingValue, got %v", err)
	}
}

func TestPut_invalidValueType(t *testing.T) {
	s, _ := newTestStash(t)

	_, err := s.Put("aws", PutOptions{Value: "not-a-map"})
	if !errors.Is(err, ErrInvalidValueType) {
		t.Fatalf("expected ErrInvalidValueType, got %v", err)
	}
}

func TestPut_withMetadataAndDescription(t *testing.T) {
	s, _ := newTestStash(t)

	desc := "my_key"
	_, err := s.Put("aws", PutOptions{
		Value:       map[string]string{"key": "value"},
		Metadata:    map[string]string{"meta": "data"},
		Description: &desc,
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := s.Get("aws", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Metadata["meta"] != "data" {
		t.Fatalf("unexpected metadata: %v", entry.Metadata)
	}
	if entry.Description == nil || *entry.Description != "my_key" {
		t.Fatalf("unexpected description: %v", entry.Description)
	}
}

func TestPut_reservedName(t *testing.T) {
	s, _ := newTestStash(t)

	_, err := s.Put(record.ProbeName, PutOptions{Value: map[string]string{"k": "v"}})
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestGet_nonexistent(t *testing.T) {
	s, _ := newTestStash(t)

	entry, err := s.Get("aws", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil entry, got %v", entry)
	}
}

func TestGet_noDecrypt(t *testing.T) {
	s, _ := newTestStash(t)

	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := s.Get("aws", false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Value != nil {
		t.Fatal("expected Value to be nil when decrypt=false")
	}
	if len(entry.Ciphertext) == 0 {
		t.Fatal("expected non-empty ciphertext")
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStash(t)

	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete("aws"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	entry, err := s.Get("aws", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestDelete_nonexistent(t *testing.T) {
	s, _ := newTestStash(t)

	err := s.Delete("aws")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestDelete_probeRejected(t *testing.T) {
	s, _ := newTestStash(t)

	err := s.Delete(record.ProbeName)
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	// the probe must still be there, and the stash must still open.
	entry, err := s.Get(record.ProbeName, false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected probe record to survive the rejected delete")
	}
}

func TestList_excludesProbe(t *testing.T) {
	s, _ := newTestStash(t)

	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "aws" {
		t.Fatalf("unexpected list: %v", names)
	}
	for _, n := range names {
		if n == record.ProbeName {
			t.Fatal("list must not contain the passphrase probe")
		}
	}
}

func TestList_empty(t *testing.T) {
	s, _ := newTestStash(t)

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty list, got %v", names)
	}
}

func TestPurge(t *testing.T) {
	s, _ := newTestStash(t)

	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.Purge(true); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty list after purge, got %v", names)
	}

	probe, err := s.Get(record.ProbeName, false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if probe == nil {
		t.Fatal("expected probe to survive purge")
	}
}

func TestPurge_noForce(t *testing.T) {
	s, _ := newTestStash(t)

	err := s.Purge(false)
	if !errors.Is(err, ErrForceRequired) {
		t.Fatalf("expected ErrForceRequired, got %v", err)
	}
}

func TestExport_toFile(t *testing.T) {
	s, _ := newTestStash(t)
	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "export.json")
	records, err := s.Export(exportPath)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "aws" {
		t.Fatalf("unexpected export result: %v", records)
	}

	if _, err := os.Stat(exportPath); err != nil {
		t.Fatalf("expected export file to exist: %v", err)
	}
}

func TestExport_empty(t *testing.T) {
	s, _ := newTestStash(t)

	_, err := s.Export("")
	if !errors.Is(err, ErrEmptyExport) {
		t.Fatalf("expected ErrEmptyExport, got %v", err)
	}
}

func TestLoad_roundTrip(t *testing.T) {
	s, _ := newTestStash(t)
	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	records, err := s.Export("")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if err := s.Purge(true); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	if err := s.Load(LoadOptions{Keys: records}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "aws" {
		t.Fatalf("unexpected list after load: %v", names)
	}

	entry, err := s.Get("aws", true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Value["key"] != "value" {
		t.Fatalf("unexpected value after load: %v", entry.Value)
	}
}

func TestLoad_fromFile(t *testing.T) {
	s, _ := newTestStash(t)
	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "export.json")
	if _, err := s.Export(exportPath); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if err := s.Purge(true); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	if err := s.Load(LoadOptions{KeyFile: exportPath}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "aws" {
		t.Fatalf("unexpected list after load from file: %v", names)
	}
}

func TestLoad_noSource(t *testing.T) {
	s, _ := newTestStash(t)

	err := s.Load(LoadOptions{})
	if !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

func TestDecryption_tamperedValuePropagates(t *testing.T) {
	s, _ := newTestStash(t)
	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, err := s.Get("aws", false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	tampered := append([]byte{}, entry.Ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := s.cipher.Decrypt(tampered); err == nil {
		t.Fatal("expected tampered ciphertext to fail to decrypt")
	}

	rec, ok, err := s.be.Get("aws")
	if err != nil || !ok {
		t.Fatalf("backend Get failed: ok=%v err=%v", ok, err)
	}
	rec.Value = tampered
	if _, err := s.be.Put(rec); err != nil {
		t.Fatalf("backend Put failed: %v", err)
	}
	if _, err := s.Get("aws", true); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed from Get, got %v", err)
	}
}

func TestPut_valueStoredEncrypted(t *testing.T) {
	s, _ := newTestStash(t)
	if _, err := s.Put("aws", PutOptions{Value: map[string]string{"key": "value"}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, err := s.Get("aws", false)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	plaintext, err := record.MarshalPlaintext(map[string]string{"key": "value"})
	if err != nil {
		t.Fatalf("MarshalPlaintext failed: %v", err)
	}
	if string(raw.Ciphertext) == string(plaintext) {
		t.Fatal("stored value must not equal the plaintext")
	}
}
