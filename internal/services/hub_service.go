package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/socops/sochub/internal/engine"
	"github.com/socops/sochub/internal/metrics"
	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/stats"
	"github.com/socops/sochub/internal/store"
)

// ErrIncidentNotFound is returned when an incident id is absent from the
// current correlation result.
var ErrIncidentNotFound = errors.New("incident not found")

// SourceLoader provides the four parsed producer reports.
type SourceLoader interface {
	LoadSources(ctx context.Context) (models.SourceDocuments, error)
}

// HubService composes report loading, correlation, lifecycle state and the
// response engine into the operations the CLI exposes.
type HubService struct {
	logger     zerolog.Logger
	loader     SourceLoader
	correlator *engine.Correlator
	store      store.Store
}

// NewHubService constructs the hub facade. A nil correlator selects one with an
// empty rule table.
func NewHubService(logger zerolog.Logger, loader SourceLoader, correlator *engine.Correlator, lifecycle store.Store) *HubService {
	if correlator == nil {
		correlator = engine.NewCorrelator(logger, nil, nil, nil, nil, nil)
	}
	return &HubService{
		logger:     logger.With().Str("component", "hub").Logger(),
		loader:     loader,
		correlator: correlator,
		store:      lifecycle,
	}
}

// Correlate loads the reports and returns the ranked incidents. Reports that fail
// to load are logged and treated as empty; only cancellation is returned as an error.
func (s *HubService) Correlate(ctx context.Context) (models.CorrelationResult, error) {
	start := time.Now()
	docs, outcome, err := s.load(ctx)
	if err != nil {
		return models.CorrelationResult{}, err
	}

	result := s.correlator.Correlate(docs)
	metrics.ObserveCorrelation(time.Since(start), outcome, len(result.Incidents))
	s.logger.Info().
		Str("run_id", result.RunID).
		Int("incidents", len(result.Incidents)).
		Str("outcome", outcome).
		Msg("correlation run finished")
	return result, nil
}

func (s *HubService) load(ctx context.Context) (models.SourceDocuments, string, error) {
	if err := ctx.Err(); err != nil {
		return models.SourceDocuments{}, "", err
	}
	if s.loader == nil {
		return models.SourceDocuments{}, metrics.OutcomeSuccess, nil
	}
	docs, err := s.loader.LoadSources(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.SourceDocuments{}, "", ctxErr
		}
		s.logger.Warn().Err(err).Msg("some reports could not be loaded, continuing with the rest")
		return docs, metrics.OutcomeDegraded, nil
	}
	return docs, metrics.OutcomeSuccess, nil
}

// Board returns every incident with its lifecycle state and suggested actions.
func (s *HubService) Board(ctx context.Context) ([]models.IncidentView, error) {
	result, err := s.Correlate(ctx)
	if err != nil {
		return nil, err
	}
	lifecycles := s.lifecycleSnapshot(ctx)
	views := make([]models.IncidentView, 0, len(result.Incidents))
	for _, inc := range result.Incidents {
		views = append(views, s.view(inc, lifecycles))
	}
	return views, nil
}

// Snapshot is one correlation run rendered for export.
type Snapshot struct {
	RunID       string
	GeneratedAt time.Time
	Incidents   []models.IncidentView
	Stats       models.Stats
}

// Snapshot runs correlation once and returns the board with its summary.
func (s *HubService) Snapshot(ctx context.Context) (Snapshot, error) {
	result, err := s.Correlate(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	lifecycles := s.lifecycleSnapshot(ctx)
	lookup := stats.StatusMap{}
	views := make([]models.IncidentView, 0, len(result.Incidents))
	for _, inc := range result.Incidents {
		views = append(views, s.view(inc, lifecycles))
	}
	for id, rec := range lifecycles {
		lookup[id] = rec.Status
	}
	return Snapshot{
		RunID:       result.RunID,
		GeneratedAt: result.GeneratedAt,
		Incidents:   views,
		Stats:       stats.NewSummarizer(s.logger, lookup).Summarize(result.Incidents),
	}, nil
}

// Incident returns a single incident view.
func (s *HubService) Incident(ctx context.Context, id string) (models.IncidentView, error) {
	inc, err := s.find(ctx, id)
	if err != nil {
		return models.IncidentView{}, err
	}
	return s.view(inc, s.lifecycleSnapshot(ctx)), nil
}

// Hunt returns the incidents matching criteria in ranked order.
func (s *HubService) Hunt(ctx context.Context, criteria engine.HuntCriteria) ([]models.UnifiedIncident, error) {
	result, err := s.Correlate(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Hunt(result.Incidents, criteria), nil
}

// Playbook builds the remediation playbook for incident id.
func (s *HubService) Playbook(ctx context.Context, id string) (models.Playbook, error) {
	inc, err := s.find(ctx, id)
	if err != nil {
		return models.Playbook{}, err
	}
	return engine.BuildPlaybook(inc, s.lifecycle(ctx, id)), nil
}

// Stats summarises the current incident set.
func (s *HubService) Stats(ctx context.Context) (models.Stats, error) {
	result, err := s.Correlate(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	lookup := stats.StatusMap{}
	for id, rec := range s.lifecycleSnapshot(ctx) {
		lookup[id] = rec.Status
	}
	return stats.NewSummarizer(s.logger, lookup).Summarize(result.Incidents), nil
}

// Timeline returns the chronological events for entity, or all events when
// entity is empty.
func (s *HubService) Timeline(ctx context.Context, entity string) ([]models.TimelineEvent, error) {
	docs, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	events := s.correlator.Timeline(docs)
	if entity == "" {
		return events, nil
	}
	return engine.FilterTimeline(events, entity), nil
}

// UpdateLifecycle applies a lifecycle mutation. The incident need not be present
// in the current reports; unknown status labels are stored as given.
func (s *HubService) UpdateLifecycle(ctx context.Context, id string, update models.LifecycleUpdate) (models.LifecycleRecord, error) {
	if s.store == nil {
		return models.LifecycleRecord{}, errors.New("lifecycle store not configured")
	}
	if update.Status != "" {
		if status := models.NormalizeStatus(update.Status); !status.Known() {
			s.logger.Warn().Str("incident_id", id).Str("status", string(status)).Msg("storing non-standard lifecycle status")
		}
	}
	rec, err := s.store.Update(ctx, id, update)
	if err != nil {
		return models.LifecycleRecord{}, err
	}
	metrics.ObserveLifecycleUpdate(string(rec.Status))
	s.logger.Info().
		Str("incident_id", id).
		Str("status", string(rec.Status)).
		Int("notes", len(rec.Notes)).
		Msg("lifecycle updated")
	return rec, nil
}

// GetOrCreateLifecycle returns the lifecycle record for id, creating a NEW one.
func (s *HubService) GetOrCreateLifecycle(ctx context.Context, id string) (models.LifecycleRecord, error) {
	if s.store == nil {
		return models.LifecycleRecord{}, errors.New("lifecycle store not configured")
	}
	return s.store.GetOrCreate(ctx, id)
}

// Lifecycles returns every stored lifecycle record ordered by incident id.
func (s *HubService) Lifecycles(ctx context.Context) ([]models.LifecycleRecord, error) {
	if s.store == nil {
		return []models.LifecycleRecord{}, nil
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (s *HubService) find(ctx context.Context, id string) (models.UnifiedIncident, error) {
	result, err := s.Correlate(ctx)
	if err != nil {
		return models.UnifiedIncident{}, err
	}
	for _, inc := range result.Incidents {
		if inc.ID == id {
			return inc, nil
		}
	}
	return models.UnifiedIncident{}, ErrIncidentNotFound
}

func (s *HubService) view(inc models.UnifiedIncident, lifecycles map[string]models.LifecycleRecord) models.IncidentView {
	v := models.IncidentView{Incident: inc, Actions: engine.SuggestActions(inc)}
	if rec, ok := lifecycles[inc.ID]; ok {
		v.Lifecycle = &rec
	}
	return v
}

// lifecycleSnapshot reads all lifecycle state once. Store failures degrade to
// no state; lifecycle data is advisory.
func (s *HubService) lifecycleSnapshot(ctx context.Context) map[string]models.LifecycleRecord {
	out := make(map[string]models.LifecycleRecord)
	if s.store == nil {
		return out
	}
	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("lifecycle state unavailable")
		return out
	}
	for _, rec := range records {
		out[rec.ID] = rec
	}
	return out
}

func (s *HubService) lifecycle(ctx context.Context, id string) *models.LifecycleRecord {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("incident_id", id).Msg("lifecycle state unavailable")
		return nil
	}
	return rec
}
