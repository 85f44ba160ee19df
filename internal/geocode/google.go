package geocode

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"googlemaps.github.io/maps"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/observability"
)

// Google feature types used for accuracy classification.
const (
	typePremise       = "premise"
	typeStreetAddress = "street_address"
	typeAdminLevel2   = "administrative_area_level_2"
)

// Address component types used for field extraction.
const (
	componentLocality   = "locality"
	componentAdminArea1 = "administrative_area_level_1"
	componentCountry    = "country"
)

// GoogleProvider is the primary reverse-geocoding provider. Its results carry
// feature-type tags, so accuracy can be classified from match granularity.
type GoogleProvider struct {
	client  *maps.Client
	timeout time.Duration
	metrics *observability.Metrics
}

// NewGoogleProvider creates the primary provider. Extra options (base URL
// overrides for tests) are appended after the API key.
func NewGoogleProvider(apiKey string, timeout time.Duration, metrics *observability.Metrics, opts ...maps.ClientOption) (*GoogleProvider, error) {
	options := append([]maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}, opts...)

	client, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("create google maps client: %w", err)
	}
	return &GoogleProvider{client: client, timeout: timeout, metrics: metrics}, nil
}

func (g *GoogleProvider) Name() string { return "google" }

// ReverseGeocode resolves coordinates through the Google Geocoding API and
// classifies accuracy from the first result's feature types.
func (g *GoogleProvider) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.CityInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: coords.Latitude, Lng: coords.Longitude},
	})
	g.metrics.GeocodeDuration.WithLabelValues(g.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		g.metrics.GeocodeRequests.WithLabelValues(g.Name(), "error").Inc()
		return domain.CityInfo{}, fmt.Errorf("google reverse geocode: %w", err)
	}
	if len(results) == 0 {
		g.metrics.GeocodeRequests.WithLabelValues(g.Name(), "empty").Inc()
		return domain.CityInfo{}, ErrNoResult
	}

	best := results[0]
	info := domain.CityInfo{
		City:        extractComponent(best.AddressComponents, componentLocality, componentAdminArea1, componentCountry),
		Country:     extractComponent(best.AddressComponents, componentCountry),
		FullAddress: best.FormattedAddress,
		Accuracy:    classifyAccuracy(best.Types),
	}
	if info.City == "" && info.Country == "" {
		g.metrics.GeocodeRequests.WithLabelValues(g.Name(), "empty").Inc()
		return domain.CityInfo{}, ErrNoResult
	}

	g.metrics.GeocodeRequests.WithLabelValues(g.Name(), "success").Inc()
	return info, nil
}

// extractComponent returns the long name of the first address component
// matching any of the wanted types, walked in precedence order.
func extractComponent(components []maps.AddressComponent, wanted ...string) string {
	for _, want := range wanted {
		for _, c := range components {
			for _, t := range c.Types {
				if t == want {
					return c.LongName
				}
			}
		}
	}
	return ""
}

// classifyAccuracy maps the result's feature granularity to a tier:
// street/premise-level match is high, a bare county-grade match is low,
// everything else is medium.
func classifyAccuracy(types []string) domain.AccuracyTier {
	onlyAdmin2 := len(types) > 0
	for _, t := range types {
		switch t {
		case typePremise, typeStreetAddress:
			return domain.AccuracyHigh
		case typeAdminLevel2, "political":
			// "political" rides along on administrative matches and does not
			// change the granularity.
		default:
			onlyAdmin2 = false
		}
	}
	if onlyAdmin2 && slices.Contains(types, typeAdminLevel2) {
		return domain.AccuracyLow
	}
	return domain.AccuracyMedium
}
