package storage

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func TestBatchAndScan(t *testing.T) {
	storage, err := NewBadgerStorage(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer storage.Close()

	batch, err := storage.NewBatch()
	if err != nil {
		t.Fatalf("failed to start batch: %v", err)
	}
	entries := map[string]string{
		"a/1": "one",
		"a/2": "two",
		"b/1": "three",
	}
	for k, v := range entries {
		if err := batch.Set(TableRows, []byte(k), []byte(v)); err != nil {
			t.Fatalf("failed to set %s: %v", k, err)
		}
	}
	if err := batch.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}

	txn, err := storage.Begin()
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	defer txn.Discard()

	it := txn.Scan(TableRows, []byte("a/"))
	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		if err := it.Value(func(val []byte) error {
			values = append(values, string(bytes.Clone(val)))
			return nil
		}); err != nil {
			t.Fatalf("failed to read value: %v", err)
		}
	}
	it.Close()

	if len(keys) != 2 || keys[0] != "a/1" || keys[1] != "a/2" {
		t.Errorf("expected [a/1 a/2], got %v", keys)
	}
	if len(values) != 2 || values[0] != "one" || values[1] != "two" {
		t.Errorf("expected [one two], got %v", values)
	}
}

func TestTempStorageRemovedOnClose(t *testing.T) {
	parent := t.TempDir()
	storage, err := NewTempStorage(parent, nil)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	dir := storage.Dir()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected spill dir to exist: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected spill dir to be removed, got %v", err)
	}
}

func TestPrefixKey(t *testing.T) {
	got := PrefixKey(TableRows, []byte{0xAA})
	if !bytes.Equal(got, []byte{byte(TableRows), 0xAA}) {
		t.Errorf("unexpected key %x", got)
	}
}

func TestClosedStorage(t *testing.T) {
	storage, err := NewTempStorage(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if _, err := storage.NewBatch(); !errors.Is(err, ErrClosed) {
		t.Errorf("NewBatch: expected ErrClosed, got %v", err)
	}
	if _, err := storage.Begin(); !errors.Is(err, ErrClosed) {
		t.Errorf("Begin: expected ErrClosed, got %v", err)
	}
	if err := storage.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close: expected ErrClosed, got %v", err)
	}
}
