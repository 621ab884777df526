package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSQLiteRepository(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "khata.db")

	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, k := range []string{"auto-backup-2", "auto-backup-1", "ledger-app-data", "AUTO-BACKUP-3"} {
		if err := repo.Put(ctx, k, []byte(k)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	if err := repo.Put(ctx, "ledger-app-data", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, err := repo.Get(ctx, "ledger-app-data")
	if err != nil || string(v) != "v2" {
		t.Fatalf("expected v2, got %q (err=%v)", v, err)
	}

	keys, err := repo.Keys(ctx, "auto-backup-")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "auto-backup-1" || keys[1] != "auto-backup-2" {
		t.Fatalf("unexpected keys %v", keys)
	}

	if err := repo.Delete(ctx, "auto-backup-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "auto-backup-1"); err != nil {
		t.Fatalf("deleting a missing key must not fail: %v", err)
	}
	if keys, _ := repo.Keys(ctx, "auto-backup-"); len(keys) != 1 {
		t.Fatalf("expected one key left, got %v", keys)
	}
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "khata.db")

	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	repo.Close()

	// Migrations must be idempotent across restarts.
	repo, err = NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if v, err := repo.Get(ctx, "k"); err != nil || string(v) != "v" {
		t.Fatalf("expected persisted value, got %q (err=%v)", v, err)
	}
}
