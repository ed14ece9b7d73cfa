package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := store.Write(context.Background(), "./nested/job-1.png", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "nested/job-1.png" {
		t.Fatalf("key = %q, want nested/job-1.png", key)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "\x89PNG" {
		t.Fatalf("data mismatch: %v", data)
	}
}

func TestFileStoreDeleteIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	key, err := store.Write(context.Background(), "job-1.jpg", []byte("jpeg"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.BasePath(), key)); !os.IsNotExist(err) {
		t.Fatalf("file should be gone, stat err = %v", err)
	}
	if err := store.Delete(context.Background(), key); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := store.Read(context.Background(), key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", ".", "..", "../secret", "a/../../b"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("sanitizeKey(%q) should fail", key)
		}
	}
	got, err := sanitizeKey(`\uploads\job.png`)
	if err != nil {
		t.Fatalf("sanitizeKey: %v", err)
	}
	if got != "uploads/job.png" {
		t.Fatalf("got %q, want uploads/job.png", got)
	}
}
