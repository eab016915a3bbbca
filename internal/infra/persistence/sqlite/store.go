// Package sqlite keeps the open history in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"nwbview/internal/infra/persistence/sqlhist"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "nwbview.db"

var dialect = sqlhist.Dialect{
	Name: "sqlite",
	DDL: `CREATE TABLE IF NOT EXISTS ` + sqlhist.Table + ` (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		plugin TEXT NOT NULL,
		reader TEXT NOT NULL,
		layers INTEGER NOT NULL,
		shape TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		opened_at INTEGER NOT NULL
	)`,
	Placeholder: sqlhist.QuestionMark,
}

// Store is the SQLite history store.
type Store struct {
	*sqlhist.Store
	path string
}

// NewStore opens (creating if needed) the history database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	st, err := sqlhist.Open(context.Background(), db, dialect)
	if err != nil {
		return nil, err
	}
	return &Store{Store: st, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }
