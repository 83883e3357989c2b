// Package planlog persists a history of built and edited calendars.
package planlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/vaxcal/core/schedule"
)

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown plan log backend")

// Record captures the calendar after one submission or edit.
type Record struct {
	ID               string               `json:"id"`
	SessionID        string               `json:"session_id"`
	Scheme           string               `json:"scheme"`
	Kind             string               `json:"kind"`
	Timestamp        time.Time            `json:"timestamp"`
	DateOfBirth      string               `json:"date_of_birth,omitempty"`
	FirstVaccination string               `json:"first_vaccination,omitempty"`
	Selected         []int                `json:"selected,omitempty"`
	Entries          []schedule.EntryView `json:"entries"`
}

// Query defines filters for retrieving records. Zero fields match
// everything.
type Query struct {
	Start     time.Time
	End       time.Time
	SessionID string
	Kind      string
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.SessionID != "" && r.SessionID != q.SessionID {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Backends.
const (
	BackendMemory = "memory"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Options select and configure a store.
type Options struct {
	Backend string
	Path    string
	// Rotation applies to the jsonl backend when MaxSizeMB is positive.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open builds the store described by o.
func Open(o Options) (Store, error) {
	switch o.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendJSONL:
		if o.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(o.Path, o.MaxSizeMB, o.MaxBackups, o.MaxAgeDays)
		}
		return NewJSONLStore(o.Path)
	case BackendSQLite:
		return NewSQLiteStore(o.Path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, o.Backend)
}
