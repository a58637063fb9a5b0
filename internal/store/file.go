package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/utils"
)

// FileStore keeps every lifecycle record in one JSON document keyed by incident
// id. Each call reads the whole document and each mutation rewrites it.
type FileStore struct {
	path   string
	logger zerolog.Logger
	now    func() time.Time
}

// NewFileStore returns a store backed by the JSON document at path. The file is
// created on the first mutation.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "store").Str("backend", "file").Logger(),
		now:    utils.NowUTC,
	}
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.LifecycleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := s.load()[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) GetOrCreate(ctx context.Context, id string) (models.LifecycleRecord, error) {
	if err := checkID(id); err != nil {
		return models.LifecycleRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.LifecycleRecord{}, err
	}
	records := s.load()
	if rec, ok := records[id]; ok {
		return rec, nil
	}
	rec := models.NewLifecycleRecord(id, s.now())
	records[id] = rec
	if err := s.save(records); err != nil {
		return models.LifecycleRecord{}, err
	}
	return rec, nil
}

func (s *FileStore) Update(ctx context.Context, id string, update models.LifecycleUpdate) (models.LifecycleRecord, error) {
	if err := checkID(id); err != nil {
		return models.LifecycleRecord{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.LifecycleRecord{}, err
	}
	now := s.now()
	records := s.load()
	rec, ok := records[id]
	if !ok {
		rec = models.NewLifecycleRecord(id, now)
	}
	applyUpdate(&rec, update, now)
	records[id] = rec
	if err := s.save(records); err != nil {
		return models.LifecycleRecord{}, err
	}
	return rec, nil
}

func (s *FileStore) List(ctx context.Context) ([]models.LifecycleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := s.load()
	out := make([]models.LifecycleRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

// load reads the document. Missing, unreadable and corrupt files all yield an
// empty store; lifecycle state is advisory and must not block correlation.
func (s *FileStore) load() map[string]models.LifecycleRecord {
	records := make(map[string]models.LifecycleRecord)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("lifecycle state unreadable, starting empty")
		}
		return records
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return records
	}
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("lifecycle state corrupt, starting empty")
		return make(map[string]models.LifecycleRecord)
	}
	for id, rec := range records {
		if rec.ID == "" {
			rec.ID = id
		}
		if rec.Status == "" {
			rec.Status = models.StatusNew
		}
		if rec.Notes == nil {
			rec.Notes = []models.Note{}
		}
		records[id] = rec
	}
	return records
}

// save replaces the document in full through a temp file in the same directory.
func (s *FileStore) save(records map[string]models.LifecycleRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return utils.NewAppError("save lifecycle", s.path, "encode", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return utils.NewAppError("save lifecycle", s.path, "create directory", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return utils.NewAppError("save lifecycle", s.path, "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return utils.NewAppError("save lifecycle", s.path, "write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return utils.NewAppError("save lifecycle", s.path, "close", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return utils.NewAppError("save lifecycle", s.path, "replace", err)
	}
	s.logger.Debug().Int("records", len(records)).Msg("lifecycle state saved")
	return nil
}
