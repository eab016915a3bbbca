// Package postgres keeps the open history in a PostgreSQL table so several
// hosts can share one recent-files list.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"nwbview/internal/infra/persistence/sqlhist"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/nwbview?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var dialect = sqlhist.Dialect{
	Name: "postgres",
	DDL: `CREATE TABLE IF NOT EXISTS ` + sqlhist.Table + ` (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		plugin TEXT NOT NULL,
		reader TEXT NOT NULL,
		layers INTEGER NOT NULL,
		shape TEXT NOT NULL,
		bytes BIGINT NOT NULL,
		opened_at BIGINT NOT NULL
	)`,
	Placeholder: sqlhist.Dollar,
}

// Store is the Postgres history store.
type Store struct {
	*sqlhist.Store
}

// NewStore connects using dsn (defaultDSN when empty), pings the server and
// ensures the history table exists.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, multierror.Append(fmt.Errorf("ping postgres: %w", err), db.Close()).ErrorOrNil()
	}
	st, err := sqlhist.Open(ctx, db, dialect)
	if err != nil {
		return nil, err
	}
	return &Store{Store: st}, nil
}

// OverrideSQLOpen swaps the sql.Open hook for tests and returns a restore func.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
