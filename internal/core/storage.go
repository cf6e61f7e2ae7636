package core

import (
	"fmt"
	"os"

	"spreadsim/internal/infra/persistence/memory"
	"spreadsim/internal/infra/persistence/postgres"
	"spreadsim/internal/infra/persistence/sqlite"
	"spreadsim/pkg/domain"
)

// StorageDriver identifies a concrete run store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenRunStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	SPREADSIM_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	SPREADSIM_SQLITE_PATH: path to sqlite file (default ./spreadsim.db)
//	SPREADSIM_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenRunStore() (domain.RunStore, error) {
	driver := os.Getenv("SPREADSIM_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("SPREADSIM_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("SPREADSIM_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
