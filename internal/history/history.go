// Package history defines the recent-opens record kept by the host service.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEntry reports an entry that cannot be stored.
var ErrInvalidEntry = errors.New("history: invalid entry")

// Entry describes one successful read.
type Entry struct {
	ID       uuid.UUID
	Path     string
	Plugin   string
	Reader   string
	Layers   int
	Shape    [3]int
	Bytes    int64
	OpenedAt time.Time
}

// NewEntry stamps a fresh ID and normalises the timestamp to UTC.
func NewEntry(path, plugin, reader string, openedAt time.Time) Entry {
	return Entry{
		ID:       uuid.New(),
		Path:     path,
		Plugin:   plugin,
		Reader:   reader,
		OpenedAt: openedAt.UTC(),
	}
}

// Validate checks the fields every driver relies on.
func (e Entry) Validate() error {
	switch {
	case e.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	case e.Path == "":
		return fmt.Errorf("%w: missing path", ErrInvalidEntry)
	case e.OpenedAt.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEntry)
	}
	return nil
}

// Store persists entries. Recent returns newest first; limit <= 0 means all.
type Store interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}
