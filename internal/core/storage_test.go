package core

import (
	"path/filepath"
	"testing"

	"crmcore/internal/infra/persistence/sqlite"
)

func TestOpenStorageSelectsBackend(t *testing.T) {
	store, err := OpenStorage(StorageMemory, StorageSettings{}, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if store == nil {
		t.Fatalf("expected a store")
	}

	path := filepath.Join(t.TempDir(), "crm.db")
	store, err = OpenStorage(StorageSQLite, StorageSettings{SQLitePath: path}, nil)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	s, ok := store.(*sqlite.Store)
	if !ok || s.Path() != path {
		t.Fatalf("unexpected sqlite store: %T", store)
	}
	_ = s.Close()

	if _, err := OpenStorage("tape", StorageSettings{}, nil); err == nil {
		t.Fatalf("unknown driver must fail")
	}
}

func TestOpenPersistentStoreReadsEnv(t *testing.T) {
	t.Setenv("CRMCORE_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(nil)
	if err != nil || store == nil {
		t.Fatalf("env select: %v", err)
	}
}
