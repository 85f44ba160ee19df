package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nearspot/locationd/internal/domain"
)

// --- mock provider ---

type mockProvider struct {
	name   string
	result domain.CityInfo
	err    error
	calls  int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) ReverseGeocode(_ context.Context, _ domain.Coordinates) (domain.CityInfo, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testCoords = domain.Coordinates{Latitude: 38.7223, Longitude: -9.1393}

// --- tests ---

func TestResolver_PrimarySucceeds(t *testing.T) {
	primary := &mockProvider{
		name:   "google",
		result: domain.CityInfo{City: "Lisbon", Country: "Portugal", Accuracy: domain.AccuracyHigh},
	}
	secondary := &mockProvider{name: "nominatim"}

	r := NewResolver(primary, secondary, discardLogger())
	info := r.Resolve(context.Background(), testCoords)

	assert.Equal(t, "Lisbon", info.City)
	assert.Equal(t, domain.AccuracyHigh, info.Accuracy)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls, "secondary must not be called when primary succeeds")
}

func TestResolver_FallsBackToSecondary(t *testing.T) {
	primary := &mockProvider{name: "google", err: errors.New("quota exceeded")}
	secondary := &mockProvider{
		name:   "nominatim",
		result: domain.CityInfo{City: "Lisbon", Country: "Portugal", Accuracy: domain.AccuracyMedium},
	}

	r := NewResolver(primary, secondary, discardLogger())
	info := r.Resolve(context.Background(), testCoords)

	assert.Equal(t, "Lisbon", info.City)
	assert.Equal(t, domain.AccuracyMedium, info.Accuracy)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestResolver_EmptyResultFallsThrough(t *testing.T) {
	primary := &mockProvider{name: "google", err: ErrNoResult}
	secondary := &mockProvider{
		name:   "nominatim",
		result: domain.CityInfo{City: "Porto", Country: "Portugal", Accuracy: domain.AccuracyMedium},
	}

	r := NewResolver(primary, secondary, discardLogger())
	info := r.Resolve(context.Background(), testCoords)

	assert.Equal(t, "Porto", info.City)
}

func TestResolver_BothFail_ReturnsSentinel(t *testing.T) {
	primary := &mockProvider{name: "google", err: errors.New("timeout")}
	secondary := &mockProvider{name: "nominatim", err: errors.New("unreachable")}

	r := NewResolver(primary, secondary, discardLogger())
	info := r.Resolve(context.Background(), testCoords)

	assert.True(t, info.IsUnknown())
	assert.Equal(t, domain.AccuracyLow, info.Accuracy)
}

func TestResolver_NilPrimary_UsesSecondary(t *testing.T) {
	secondary := &mockProvider{
		name:   "nominatim",
		result: domain.CityInfo{City: "Lisbon", Country: "Portugal", Accuracy: domain.AccuracyMedium},
	}

	r := NewResolver(nil, secondary, discardLogger())
	info := r.Resolve(context.Background(), testCoords)

	assert.Equal(t, "Lisbon", info.City)
}

func TestResolver_NoProviders_ReturnsSentinel(t *testing.T) {
	r := NewResolver(nil, nil, discardLogger())
	info := r.Resolve(context.Background(), testCoords)
	assert.True(t, info.IsUnknown())
}
