package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/nearspot/locationd/internal/adapter/http"
	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/scheduler"
)

type mockService struct {
	snapshot    *domain.LocationSnapshot
	fresh       bool
	forceErr    error
	slots       []scheduler.SlotTime
	stats       domain.UpdateStats
	records     []domain.UpdateRecord
	readyErr    error
	historyErr  error
	historyArgs []int
}

func (m *mockService) CurrentBestLocation() (domain.LocationSnapshot, bool) {
	if m.snapshot == nil {
		return domain.LocationSnapshot{}, false
	}
	return *m.snapshot, true
}

func (m *mockService) IsFresh(_ domain.LocationSnapshot) bool { return m.fresh }

func (m *mockService) ForceUpdate(_ context.Context) (domain.LocationSnapshot, error) {
	if m.forceErr != nil {
		return domain.LocationSnapshot{}, m.forceErr
	}
	return *m.snapshot, nil
}

func (m *mockService) NextUpdateTimes() []scheduler.SlotTime { return m.slots }

func (m *mockService) Stats() (domain.UpdateStats, error) { return m.stats, nil }

func (m *mockService) History(n int) ([]domain.UpdateRecord, error) {
	m.historyArgs = append(m.historyArgs, n)
	return m.records, m.historyErr
}

func (m *mockService) CheckReadiness(_ context.Context) error { return m.readyErr }

func sampleSnapshot() *domain.LocationSnapshot {
	ts := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	return &domain.LocationSnapshot{
		Coordinates: &domain.Coordinates{Latitude: 38.7223, Longitude: -9.1393},
		City:        domain.CityInfo{City: "Lisbon", Country: "Portugal", Accuracy: domain.AccuracyHigh},
		Timestamp:   ts,
		AcquiredAt:  ts,
		Source:      domain.SourceLive,
	}
}

func doRequest(svc *mockService, method, target string) *httptest.ResponseRecorder {
	srv := httpadapter.NewServer(":0", svc, slog.Default())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := doRequest(&mockService{}, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := doRequest(&mockService{}, http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := doRequest(&mockService{readyErr: fmt.Errorf("no location update has completed yet")}, http.MethodGet, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no location update has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(&mockService{}, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLocationReturnsSnapshotWithFreshness(t *testing.T) {
	rec := doRequest(&mockService{snapshot: sampleSnapshot(), fresh: true}, http.MethodGet, "/location")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		City  domain.CityInfo   `json:"city"`
		Src   domain.SourceKind `json:"source"`
		Fresh bool              `json:"fresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Lisbon", body.City.City)
	assert.Equal(t, domain.SourceLive, body.Src)
	assert.True(t, body.Fresh)
}

func TestLocationMarksStaleSnapshot(t *testing.T) {
	rec := doRequest(&mockService{snapshot: sampleSnapshot(), fresh: false}, http.MethodGet, "/location")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fresh":false`)
}

func TestLocationReturns404WhenUnknown(t *testing.T) {
	rec := doRequest(&mockService{}, http.MethodGet, "/location")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateReturnsFreshSnapshot(t *testing.T) {
	rec := doRequest(&mockService{snapshot: sampleSnapshot()}, http.MethodPost, "/update")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fresh":true`)
	assert.Contains(t, rec.Body.String(), "Lisbon")
}

func TestUpdateReturns502OnTerminalFailure(t *testing.T) {
	terminal := fmt.Errorf("%w: %w", domain.ErrNoFreshFallback, domain.ErrPositionTimeout)
	rec := doRequest(&mockService{forceErr: terminal}, http.MethodPost, "/update")

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "no fresh cached snapshot")
}

func TestUpdateReturns403WhenPermissionDenied(t *testing.T) {
	terminal := fmt.Errorf("%w: %w", domain.ErrNoFreshFallback, domain.ErrPositionPermissionDenied)
	rec := doRequest(&mockService{forceErr: terminal}, http.MethodPost, "/update")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestScheduleListsSlots(t *testing.T) {
	svc := &mockService{slots: []scheduler.SlotTime{
		{Label: "Morning", NextFire: time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)},
		{Label: "Afternoon", NextFire: time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)},
	}}
	rec := doRequest(svc, http.MethodGet, "/schedule")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Slots []scheduler.SlotTime `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Slots, 2)
	assert.Equal(t, "Morning", body.Slots[0].Label)
}

func TestStatsEndpoint(t *testing.T) {
	ts := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	svc := &mockService{stats: domain.UpdateStats{Total: 3, Successes: 2, Failures: 1, LastSuccessAt: &ts}}
	rec := doRequest(svc, http.MethodGet, "/stats")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body domain.UpdateStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 2, body.Successes)
}

func TestHistoryDefaultsToRingLimit(t *testing.T) {
	svc := &mockService{}
	rec := doRequest(svc, http.MethodGet, "/history")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{domain.HistoryLimit}, svc.historyArgs)
	assert.Contains(t, rec.Body.String(), `"records":[]`)
}

func TestHistoryHonorsLimit(t *testing.T) {
	svc := &mockService{records: []domain.UpdateRecord{
		{Timestamp: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC), Outcome: domain.OutcomeSuccess},
	}}
	rec := doRequest(svc, http.MethodGet, "/history?limit=3")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int{3}, svc.historyArgs)
	assert.Contains(t, rec.Body.String(), `"outcome":"success"`)
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	rec := doRequest(&mockService{}, http.MethodGet, "/history?limit=zero")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
