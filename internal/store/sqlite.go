package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS incidents (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	owner TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS incident_notes (
	incident_id TEXT NOT NULL REFERENCES incidents(id),
	seq INTEGER NOT NULL,
	at TEXT NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY (incident_id, seq)
);
`

// SQLiteStore keeps lifecycle records in a SQLite database. Every update runs in
// a single transaction.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (and if needed creates) the database at path. A file
// that is not a usable SQLite database is moved aside and replaced with a fresh
// one; lifecycle state is advisory and must not block correlation.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &SQLiteStore{
		path:   path,
		logger: logger.With().Str("component", "store").Str("backend", "sqlite").Logger(),
		now:    utils.NowUTC,
	}

	db, err := openLifecycleDB(path)
	if isCorrupt(err) {
		aside, qerr := quarantine(path, s.now())
		if qerr != nil {
			return nil, fmt.Errorf("move corrupt lifecycle database aside: %w", qerr)
		}
		s.logger.Warn().Err(err).Str("path", path).Str("moved_to", aside).Msg("lifecycle database corrupt, starting empty")
		db, err = openLifecycleDB(path)
	}
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Debug().Str("path", path).Msg("lifecycle database ready")
	return s, nil
}

func openLifecycleDB(path string) (*sql.DB, error) {
	// pragmas in the DSN so every pool connection is configured
	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"foreign_keys(ON)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open lifecycle database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize lifecycle schema: %w", err)
	}
	return db, nil
}

// isCorrupt reports whether err means the file exists but is not a readable
// SQLite database. Busy or permission errors are not corruption.
func isCorrupt(err error) bool {
	var coded interface{ Code() int }
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code() & 0xff {
	case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return true
	}
	return false
}

// quarantine renames the database and its WAL sidecars to <path>.corrupt-<ts>.
func quarantine(path string, now time.Time) (string, error) {
	aside := path + ".corrupt-" + now.UTC().Format("20060102T150405Z")
	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Rename(path+suffix, aside+suffix)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return aside, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.LifecycleRecord, error) {
	rec, err := readRecord(ctx, s.db, id)
	if err != nil {
		return nil, utils.NewAppError("get lifecycle", id, "query", err)
	}
	return rec, nil
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, id string) (models.LifecycleRecord, error) {
	if err := checkID(id); err != nil {
		return models.LifecycleRecord{}, err
	}
	var out models.LifecycleRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := readRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec != nil {
			out = *rec
			return nil
		}
		out = models.NewLifecycleRecord(id, s.now())
		return writeRecord(ctx, tx, out, nil)
	})
	if err != nil {
		return models.LifecycleRecord{}, utils.NewAppError("create lifecycle", id, "transaction", err)
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, update models.LifecycleUpdate) (models.LifecycleRecord, error) {
	if err := checkID(id); err != nil {
		return models.LifecycleRecord{}, err
	}
	var out models.LifecycleRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		rec, err := readRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			fresh := models.NewLifecycleRecord(id, now)
			rec = &fresh
		}
		before := len(rec.Notes)
		applyUpdate(rec, update, now)
		out = *rec
		return writeRecord(ctx, tx, out, out.Notes[before:])
	})
	if err != nil {
		return models.LifecycleRecord{}, utils.NewAppError("update lifecycle", id, "transaction", err)
	}
	return out, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.LifecycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM incidents`)
	if err != nil {
		return nil, utils.NewAppError("list lifecycle", s.path, "query", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, utils.NewAppError("list lifecycle", s.path, "scan", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, utils.NewAppError("list lifecycle", s.path, "close rows", err)
	}

	out := make([]models.LifecycleRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := readRecord(ctx, s.db, id)
		if err != nil {
			return nil, utils.NewAppError("list lifecycle", id, "query", err)
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func readRecord(ctx context.Context, q queryer, id string) (*models.LifecycleRecord, error) {
	var (
		status, createdAt, updatedAt string
		owner                        sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT status, owner, created_at, updated_at FROM incidents WHERE id = ?`, id,
	).Scan(&status, &owner, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := &models.LifecycleRecord{
		ID:        id,
		Status:    models.Status(status),
		Notes:     []models.Note{},
		CreatedAt: parseStored(createdAt),
		UpdatedAt: parseStored(updatedAt),
	}
	if owner.Valid {
		value := owner.String
		rec.Owner = &value
	}

	rows, err := q.QueryContext(ctx,
		`SELECT at, text FROM incident_notes WHERE incident_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var at, text string
		if err := rows.Scan(&at, &text); err != nil {
			return nil, err
		}
		rec.Notes = append(rec.Notes, models.Note{At: parseStored(at), Text: text})
	}
	return rec, rows.Err()
}

// writeRecord upserts the incident row and appends newNotes after the notes
// already stored.
func writeRecord(ctx context.Context, tx *sql.Tx, rec models.LifecycleRecord, newNotes []models.Note) error {
	var owner sql.NullString
	if rec.Owner != nil {
		owner = sql.NullString{String: *rec.Owner, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO incidents (id, status, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			owner = excluded.owner,
			updated_at = excluded.updated_at`,
		rec.ID, string(rec.Status), owner, formatStored(rec.CreatedAt), formatStored(rec.UpdatedAt),
	)
	if err != nil {
		return err
	}

	seq := len(rec.Notes) - len(newNotes)
	for _, note := range newNotes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO incident_notes (incident_id, seq, at, text) VALUES (?, ?, ?, ?)`,
			rec.ID, seq, formatStored(note.At), note.Text,
		); err != nil {
			return err
		}
		seq++
	}
	return nil
}

func formatStored(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseStored(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
