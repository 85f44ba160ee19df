//go:build smoke

package geocode

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/observability"
)

// These tests hit real provider APIs. Run with:
//
//	go test -tags=smoke ./internal/geocode/ -v -count=1
//
// The Google test additionally requires GOOGLE_MAPS_API_KEY.

var lisbon = domain.Coordinates{Latitude: 38.7223, Longitude: -9.1393}

func TestSmoke_Nominatim(t *testing.T) {
	p := NewNominatimProvider("https://nominatim.openstreetmap.org", "locationd-smoke/1.0",
		10*time.Second, observability.NewMetricsForTesting())

	info, err := p.ReverseGeocode(context.Background(), lisbon)
	require.NoError(t, err)
	assert.NotEmpty(t, info.City)
	assert.Equal(t, domain.AccuracyMedium, info.Accuracy)
}

func TestSmoke_Google(t *testing.T) {
	key := os.Getenv("GOOGLE_MAPS_API_KEY")
	if key == "" {
		t.Skip("GOOGLE_MAPS_API_KEY must be set to run this smoke test")
	}

	p, err := NewGoogleProvider(key, 10*time.Second, observability.NewMetricsForTesting())
	require.NoError(t, err)

	info, err := p.ReverseGeocode(context.Background(), lisbon)
	require.NoError(t, err)
	assert.NotEmpty(t, info.City)
	assert.NotEmpty(t, info.Country)
}
