package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socops/sochub/internal/engine"
	"github.com/socops/sochub/internal/models"
	"github.com/socops/sochub/internal/store"
)

type loaderStub struct {
	docs models.SourceDocuments
	err  error
}

func (l *loaderStub) LoadSources(ctx context.Context) (models.SourceDocuments, error) {
	return l.docs, l.err
}

// memoryStore is an in-process store.Store for service tests.
type memoryStore struct {
	records map[string]models.LifecycleRecord
	listErr error
	updates int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]models.LifecycleRecord{}}
}

func (m *memoryStore) Get(ctx context.Context, id string) (*models.LifecycleRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryStore) GetOrCreate(ctx context.Context, id string) (models.LifecycleRecord, error) {
	if id == "" {
		return models.LifecycleRecord{}, store.ErrMissingID
	}
	rec, ok := m.records[id]
	if !ok {
		rec = models.NewLifecycleRecord(id, testTime)
		m.records[id] = rec
	}
	return rec, nil
}

func (m *memoryStore) Update(ctx context.Context, id string, update models.LifecycleUpdate) (models.LifecycleRecord, error) {
	if id == "" {
		return models.LifecycleRecord{}, store.ErrMissingID
	}
	m.updates++
	rec, ok := m.records[id]
	if !ok {
		rec = models.NewLifecycleRecord(id, testTime)
	}
	if update.Status != "" {
		rec.Status = models.NormalizeStatus(update.Status)
	}
	if update.Owner != nil {
		rec.Owner = update.Owner
	}
	if update.Note != "" {
		rec.Notes = append(rec.Notes, models.Note{At: testTime, Text: update.Note})
	}
	m.records[id] = rec
	return rec, nil
}

func (m *memoryStore) List(ctx context.Context) ([]models.LifecycleRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.LifecycleRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryStore) Close() error { return nil }

func doc(t *testing.T, raw string) models.Document {
	t.Helper()
	var d models.Document
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

func sampleDocs(t *testing.T) models.SourceDocuments {
	return models.SourceDocuments{
		Detection: doc(t, `{
			"incidents": [
				{"id": "INC_0001", "severity": "HIGH", "risk_score": 50, "entities": {"user": "alice", "ip": "10.0.0.5"}},
				{"id": "INC_0002", "severity": "LOW", "risk_score": 20, "entities": {"user": "bob"}}
			],
			"alerts": [{"threat_id": "TH-1", "user": "alice", "ts_first": "2024-01-10T03:00:00"}]
		}`),
		Forensic: doc(t, `{"users": [{"user": "alice", "risk_score": 95, "findings": [
			{"category": "MALICIOUS_PATTERN", "ts": "2024-01-10T03:05:00", "evidence": "nc -e"}
		]}]}`),
	}
}

func newService(t *testing.T, loader SourceLoader, st store.Store) *HubService {
	rules := engine.NewRuleTable(map[models.Category]models.TechniqueMapping{
		models.CategoryMaliciousPattern: {MitreID: "T1059", Tactic: "Execution"},
	}, nil)
	correlator := engine.NewCorrelator(zerolog.Nop(), rules, nil, nil, nil, nil)
	return NewHubService(zerolog.Nop(), loader, correlator, st)
}

func TestBoardMergesLifecycleAndActions(t *testing.T) {
	st := newMemoryStore()
	svc := newService(t, &loaderStub{docs: sampleDocs(t)}, st)
	ctx := context.Background()

	_, err := svc.UpdateLifecycle(ctx, "INC_0001", models.LifecycleUpdate{Status: "contained"})
	require.NoError(t, err)

	board, err := svc.Board(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)

	assert.Equal(t, "INC_0001", board[0].Incident.ID)
	assert.Equal(t, 80, board[0].Incident.FinalRisk)
	assert.Equal(t, models.StatusContained, board[0].Status())
	assert.Contains(t, board[0].Actions, "Harden script execution policies and restrict unnecessary interpreters.")

	assert.Nil(t, board[1].Lifecycle)
	assert.Equal(t, models.StatusNew, board[1].Status())
	assert.Empty(t, st.records["INC_0002"], "board must not create lifecycle records")
}

func TestCorrelateDegradesOnLoadErrors(t *testing.T) {
	svc := newService(t, &loaderStub{docs: sampleDocs(t), err: errors.New("intel unreadable")}, newMemoryStore())

	result, err := svc.Correlate(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Incidents, 2)
}

func TestCorrelateReturnsCancellation(t *testing.T) {
	svc := newService(t, &loaderStub{docs: sampleDocs(t)}, newMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Correlate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIncidentAndPlaybook(t *testing.T) {
	st := newMemoryStore()
	svc := newService(t, &loaderStub{docs: sampleDocs(t)}, st)
	ctx := context.Background()

	owner := "carol"
	_, err := svc.UpdateLifecycle(ctx, "INC_0001", models.LifecycleUpdate{Owner: &owner})
	require.NoError(t, err)

	view, err := svc.Incident(ctx, "INC_0001")
	require.NoError(t, err)
	require.NotNil(t, view.Lifecycle)
	assert.Equal(t, "carol", view.Lifecycle.OwnerName())

	pb, err := svc.Playbook(ctx, "INC_0001")
	require.NoError(t, err)
	assert.Equal(t, "carol", pb.Context.Owner)
	assert.Len(t, pb.Phases, 4)

	_, err = svc.Incident(ctx, "INC_9999")
	assert.ErrorIs(t, err, ErrIncidentNotFound)
	_, err = svc.Playbook(ctx, "INC_9999")
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestHuntStatsAndTimeline(t *testing.T) {
	st := newMemoryStore()
	svc := newService(t, &loaderStub{docs: sampleDocs(t)}, st)
	ctx := context.Background()

	hits, err := svc.Hunt(ctx, engine.HuntCriteria{Technique: "T1059"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "INC_0001", hits[0].ID)

	_, err = svc.UpdateLifecycle(ctx, "INC_0002", models.LifecycleUpdate{Status: "closed"})
	require.NoError(t, err)
	summary, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.ElementsMatch(t, []models.LabelCount{{Label: "NEW", Count: 1}, {Label: "CLOSED", Count: 1}}, summary.ByStatus)

	events, err := svc.Timeline(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "DETECTION:TH-1", events[0].Category)

	all, err := svc.Timeline(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStoreFailuresDegradeToNoState(t *testing.T) {
	st := newMemoryStore()
	st.listErr = errors.New("database is locked")
	svc := newService(t, &loaderStub{docs: sampleDocs(t)}, st)
	ctx := context.Background()

	board, err := svc.Board(ctx)
	require.NoError(t, err)
	assert.Len(t, board, 2)

	pb, err := svc.Playbook(ctx, "INC_0001")
	require.NoError(t, err)
	assert.Empty(t, pb.Context.Status)

	_, err = svc.Lifecycles(ctx)
	assert.Error(t, err, "explicit listing surfaces store errors")
}

func TestLifecyclesSortedAndMissingID(t *testing.T) {
	st := newMemoryStore()
	svc := newService(t, nil, st)
	ctx := context.Background()

	for _, id := range []string{"INC_0003", "INC_0001", "INC_0002"} {
		_, err := svc.GetOrCreateLifecycle(ctx, id)
		require.NoError(t, err)
	}
	records, err := svc.Lifecycles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "INC_0001", records[0].ID)
	assert.Equal(t, "INC_0003", records[2].ID)

	_, err = svc.UpdateLifecycle(ctx, "", models.LifecycleUpdate{Note: "x"})
	assert.ErrorIs(t, err, store.ErrMissingID)

	rec, err := svc.UpdateLifecycle(ctx, "INC_0001", models.LifecycleUpdate{Status: "weird"})
	require.NoError(t, err)
	assert.Equal(t, models.Status("WEIRD"), rec.Status)
}

func TestServiceWithoutStore(t *testing.T) {
	svc := newService(t, &loaderStub{docs: sampleDocs(t)}, nil)
	ctx := context.Background()

	board, err := svc.Board(ctx)
	require.NoError(t, err)
	assert.Len(t, board, 2)

	_, err = svc.UpdateLifecycle(ctx, "INC_0001", models.LifecycleUpdate{})
	assert.Error(t, err)
}

var testTime = mustTime("2024-01-10T04:00:00Z")

func mustTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }

func TestSnapshotRunsCorrelationOnce(t *testing.T) {
	st := newMemoryStore()
	svc := newService(t, &loaderStub{docs: sampleDocs(t)}, st)
	ctx := context.Background()

	_, err := svc.UpdateLifecycle(ctx, "INC_0001", models.LifecycleUpdate{Status: "triaged", Owner: strPtr("alice")})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.RunID)
	require.Len(t, snap.Incidents, 2)
	assert.Equal(t, models.StatusTriaged, snap.Incidents[0].Status())
	assert.Equal(t, 2, snap.Stats.Total)
	assert.Contains(t, snap.Stats.ByStatus, models.LabelCount{Label: "TRIAGED", Count: 1})
}
