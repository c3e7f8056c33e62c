package core

import (
	"fmt"
	"os"

	"crmcore/internal/infra/persistence/memory"
	"crmcore/internal/infra/persistence/postgres"
	"crmcore/internal/infra/persistence/sqlite"
	"crmcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	CRMCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CRMCORE_SQLITE_PATH: path to sqlite file (default ./crmcore.db)
//	CRMCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *domain.RulesEngine) (domain.PersistentStore, error) {
	driver := os.Getenv("CRMCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	return OpenStorageDriver(StorageDriver(driver), engine)
}

// StorageSettings carries backend-specific locations. Empty fields
// fall back to each backend's default.
type StorageSettings struct {
	SQLitePath  string
	PostgresDSN string
}

// OpenStorageDriver opens the named backend, reading backend-specific
// settings from the environment.
func OpenStorageDriver(driver StorageDriver, engine *domain.RulesEngine) (domain.PersistentStore, error) {
	settings := StorageSettings{
		SQLitePath:  os.Getenv("CRMCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("CRMCORE_POSTGRES_DSN"),
	}
	return OpenStorage(driver, settings, engine)
}

// OpenStorage opens the named backend with explicit settings.
func OpenStorage(driver StorageDriver, settings StorageSettings, engine *domain.RulesEngine) (domain.PersistentStore, error) {
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(settings.SQLitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(settings.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
