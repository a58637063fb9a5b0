package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/utils"
)

// ErrNotObject is returned when a report's top-level value is not a JSON object.
var ErrNotObject = errors.New("top-level value is not an object")

// ReportRepo loads the four source reports from local files.
type ReportRepo struct {
	detectionPath string
	assetsPath    string
	intelPath     string
	forensicPath  string
	logger        zerolog.Logger
	readFile      func(string) ([]byte, error)
}

// NewReportRepo constructs a repo reading reports from the supplied paths. Empty
// paths are treated as absent reports.
func NewReportRepo(detectionPath, assetsPath, intelPath, forensicPath string, logger zerolog.Logger) *ReportRepo {
	return &ReportRepo{
		detectionPath: detectionPath,
		assetsPath:    assetsPath,
		intelPath:     intelPath,
		forensicPath:  forensicPath,
		logger:        logger.With().Str("component", "reports").Logger(),
		readFile:      os.ReadFile,
	}
}

// LoadSources reads all four reports. A report that cannot be loaded is returned
// empty and its error is joined into the returned error, so callers can report
// the failure and still correlate what was readable.
func (r *ReportRepo) LoadSources(ctx context.Context) (models.SourceDocuments, error) {
	var errs []error
	load := func(path string) models.Document {
		doc, err := r.LoadDocument(ctx, path)
		if err != nil {
			errs = append(errs, err)
		}
		return doc
	}

	docs := models.SourceDocuments{
		Detection: load(r.detectionPath),
		Assets:    load(r.assetsPath),
		Intel:     load(r.intelPath),
		Forensic:  load(r.forensicPath),
	}
	return docs, errors.Join(errs...)
}

// DetectionPath returns the configured detection report path.
func (r *ReportRepo) DetectionPath() string { return r.detectionPath }

// LoadDocument reads a single report. Missing and empty files yield an empty
// document without error; unreadable files and non-object JSON yield an empty
// document and an error.
func (r *ReportRepo) LoadDocument(ctx context.Context, path string) (models.Document, error) {
	if path == "" {
		return models.Document{}, nil
	}
	if err := ctx.Err(); err != nil {
		return models.Document{}, err
	}

	data, err := r.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn().Str("path", path).Msg("report not found, treating as empty")
			return models.Document{}, nil
		}
		return models.Document{}, utils.NewAppError("load report", path, "read file", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, nil
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			err = ErrNotObject
		}
		return models.Document{}, utils.NewAppError("load report", path, "decode json", err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	r.logger.Debug().Str("path", path).Int("keys", len(doc)).Msg("report loaded")
	return doc, nil
}
