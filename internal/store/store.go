package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/models"
)

// ErrMissingID is returned when an operation is called without an incident id.
var ErrMissingID = errors.New("incident id is required")

// ErrUnavailable is returned by mutations on a store that could not be opened.
var ErrUnavailable = errors.New("lifecycle store unavailable")

// Store persists incident lifecycle records. Implementations assume a single
// writer; concurrent processes race and the last writer wins.
type Store interface {
	// Get returns the record for id, or nil when none exists. It never creates one.
	Get(ctx context.Context, id string) (*models.LifecycleRecord, error)
	// GetOrCreate returns the record for id, creating a NEW one when absent.
	GetOrCreate(ctx context.Context, id string) (models.LifecycleRecord, error)
	// Update applies a partial mutation and persists the result before returning.
	Update(ctx context.Context, id string, update models.LifecycleUpdate) (models.LifecycleRecord, error)
	// List returns every known record in no particular order.
	List(ctx context.Context) ([]models.LifecycleRecord, error)
	Close() error
}

// applyUpdate mutates rec in place. A non-empty status is upper-cased and stored
// without validation, a non-nil owner overwrites (an empty owner clears it), a
// non-empty note is appended, and UpdatedAt always moves to now.
func applyUpdate(rec *models.LifecycleRecord, update models.LifecycleUpdate, now time.Time) {
	if strings.TrimSpace(update.Status) != "" {
		rec.Status = models.NormalizeStatus(update.Status)
	}
	if update.Owner != nil {
		owner := *update.Owner
		rec.Owner = &owner
	}
	if update.Note != "" {
		rec.Notes = append(rec.Notes, models.Note{At: now, Text: update.Note})
	}
	if rec.Notes == nil {
		rec.Notes = []models.Note{}
	}
	rec.UpdatedAt = now
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	return nil
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open constructs the store for backend. An empty backend selects the JSON file.
// A SQLite database that cannot be opened degrades to an empty read-only store
// so correlation still runs; only an unknown backend is an error.
func Open(backend, path string, logger zerolog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path, logger), nil
	case BackendSQLite:
		s, err := NewSQLiteStore(path, logger)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("lifecycle database unavailable, continuing without lifecycle state")
			return unavailableStore{cause: err}, nil
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// unavailableStore reads as empty and refuses writes.
type unavailableStore struct {
	cause error
}

func (u unavailableStore) Get(ctx context.Context, id string) (*models.LifecycleRecord, error) {
	return nil, ctx.Err()
}

func (u unavailableStore) GetOrCreate(ctx context.Context, id string) (models.LifecycleRecord, error) {
	return models.LifecycleRecord{}, u.err(id)
}

func (u unavailableStore) Update(ctx context.Context, id string, _ models.LifecycleUpdate) (models.LifecycleRecord, error) {
	return models.LifecycleRecord{}, u.err(id)
}

func (u unavailableStore) List(ctx context.Context) ([]models.LifecycleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.LifecycleRecord{}, nil
}

func (u unavailableStore) Close() error { return nil }

func (u unavailableStore) err(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.cause)
}
