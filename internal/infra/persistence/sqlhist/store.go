// Package sqlhist stores open-history entries in a database/sql table. The
// sqlite and postgres packages supply the dialect.
package sqlhist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"nwbview/internal/history"
)

// Table is the history table name shared by every dialect.
const Table = "open_history"

// Dialect carries the statements that differ between drivers.
type Dialect struct {
	Name string
	// DDL creates the table when missing.
	DDL string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// QuestionMark is the sqlite placeholder style.
func QuestionMark(int) string { return "?" }

// Dollar is the postgres placeholder style.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

var _ history.Store = (*Store)(nil)

// Store implements history.Store over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	insert  string
}

// Open applies the dialect DDL and returns the store. The database is closed
// when setup fails.
func Open(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, d.DDL); err != nil {
		var merr *multierror.Error
		merr = multierror.Append(merr, fmt.Errorf("%s: create %s: %w", d.Name, Table, err))
		merr = multierror.Append(merr, db.Close())
		return nil, merr.ErrorOrNil()
	}
	marks := make([]string, 8)
	for i := range marks {
		marks[i] = d.Placeholder(i + 1)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (id, path, plugin, reader, layers, shape, bytes, opened_at) VALUES (%s)`,
		Table, strings.Join(marks, ", "))
	return &Store{db: db, dialect: d, insert: insert}, nil
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Record inserts one entry.
func (s *Store) Record(ctx context.Context, e history.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	shape, err := json.Marshal(e.Shape)
	if err != nil {
		return fmt.Errorf("%s: encode shape: %w", s.dialect.Name, err)
	}
	_, err = s.db.ExecContext(ctx, s.insert,
		e.ID.String(), e.Path, e.Plugin, e.Reader, e.Layers, string(shape), e.Bytes, e.OpenedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("%s: insert history: %w", s.dialect.Name, err)
	}
	return nil
}

// Recent returns entries newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	q := fmt.Sprintf(`SELECT id, path, plugin, reader, layers, shape, bytes, opened_at FROM %s ORDER BY opened_at DESC`, Table)
	if limit > 0 {
		q += " LIMIT " + strconv.Itoa(limit)
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: select history: %w", s.dialect.Name, err)
	}
	return s.collect(rows)
}

// rowSource is the part of *sql.Rows that collect consumes.
type rowSource interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// collect drains and closes rows. Any failure, the close included, discards
// the entries read so far.
func (s *Store) collect(rows rowSource) (out []history.Entry, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("%s: close rows: %w", s.dialect.Name, cerr)).ErrorOrNil()
		}
		if err != nil {
			out = nil
		}
	}()

	for rows.Next() {
		var (
			id, shape string
			nanos     int64
			e         history.Entry
		)
		if err := rows.Scan(&id, &e.Path, &e.Plugin, &e.Reader, &e.Layers, &shape, &e.Bytes, &nanos); err != nil {
			return nil, fmt.Errorf("%s: scan history: %w", s.dialect.Name, err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%s: history id %q: %w", s.dialect.Name, id, err)
		}
		if err := json.Unmarshal([]byte(shape), &e.Shape); err != nil {
			return nil, fmt.Errorf("%s: history shape %q: %w", s.dialect.Name, shape, err)
		}
		e.OpenedAt = time.Unix(0, nanos).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate history: %w", s.dialect.Name, err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
