package core

import (
	"fmt"
	"os"

	"nwbview/internal/history"
	"nwbview/internal/infra/persistence/memory"
	"nwbview/internal/infra/persistence/postgres"
	"nwbview/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete history storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (default)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenHistoryStore selects a backend using environment variables.
//
//	NWBVIEW_HISTORY_DRIVER: memory|sqlite|postgres (default memory)
//	NWBVIEW_SQLITE_PATH: path to sqlite file (default ./nwbview.db)
//	NWBVIEW_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenHistoryStore() (history.Store, error) {
	driver := os.Getenv("NWBVIEW_HISTORY_DRIVER")
	if driver == "" {
		driver = string(StorageMemory)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(0), nil
	case StorageSQLite:
		st, err := sqlite.NewStore(os.Getenv("NWBVIEW_SQLITE_PATH"))
		if err != nil {
			return nil, err
		}
		return st, nil
	case StoragePostgres:
		st, err := postgres.NewStore(os.Getenv("NWBVIEW_POSTGRES_DSN"))
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown history driver %s", driver)
	}
}
