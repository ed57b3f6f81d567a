package localstore

import (
	"context"
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "access_token"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v err %v, want missing", ok, err)
	}
	if err := s.Set(ctx, "access_token", "a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "access_token", "b"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if err := s.Set(ctx, "user", `{"id":"u1"}`); err != nil {
		t.Fatalf("Set user: %v", err)
	}
	if v, ok, err := s.Get(ctx, "access_token"); err != nil || !ok || v != "b" {
		t.Fatalf("Get = %q %v %v, want b", v, ok, err)
	}
	if err := s.Delete(ctx, "access_token", "user", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, key := range []string{"access_token", "user"} {
		if _, ok, _ := s.Get(ctx, key); ok {
			t.Fatalf("%s still present after Delete", key)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "session.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Set(ctx, "user", "kept"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	if v, ok, err := reopened.Get(ctx, "user"); err != nil || !ok || v != "kept" {
		t.Fatalf("Get after reopen = %q %v %v", v, ok, err)
	}
}

func TestOpenSQLite_EmptyPathFails(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatalf("OpenSQLite returned nil error for empty path")
	}
}
