package history

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewEntry(t *testing.T) {
	loc := time.FixedZone("x", 3600)
	e := NewEntry("a.nwb", "nwb", "reader", time.Date(2024, 1, 2, 3, 4, 5, 0, loc))
	if e.ID == uuid.Nil {
		t.Fatalf("expected id")
	}
	if e.OpenedAt.Location() != time.UTC || e.OpenedAt.Hour() != 2 {
		t.Fatalf("timestamp not normalised: %v", e.OpenedAt)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := NewEntry("a.nwb", "nwb", "reader", time.Now())
	cases := map[string]func(*Entry){
		"id":   func(e *Entry) { e.ID = uuid.Nil },
		"path": func(e *Entry) { e.Path = "" },
		"time": func(e *Entry) { e.OpenedAt = time.Time{} },
	}
	for name, mutate := range cases {
		e := base
		mutate(&e)
		if err := e.Validate(); !errors.Is(err, ErrInvalidEntry) {
			t.Fatalf("%s: expected invalid entry, got %v", name, err)
		}
	}
}
