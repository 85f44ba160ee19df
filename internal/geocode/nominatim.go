package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/observability"
)

// NominatimProvider is the secondary reverse-geocoding provider. Nominatim
// returns address fields without feature-type granularity, so every result is
// classified at a fixed medium accuracy.
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// NewNominatimProvider creates the secondary provider. The base URL is
// overridable so tests can point it at a local server.
func NewNominatimProvider(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics) *NominatimProvider {
	return &NominatimProvider{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
	}
}

func (n *NominatimProvider) Name() string { return "nominatim" }

// ReverseGeocode resolves coordinates via the Nominatim /reverse endpoint.
func (n *NominatimProvider) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.CityInfo, error) {
	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(coords.Latitude, 'f', 6, 64)},
		"lon":            {strconv.FormatFloat(coords.Longitude, 'f', 6, 64)},
		"addressdetails": {"1"},
		"zoom":           {"10"}, // city-level detail
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return domain.CityInfo{}, fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", n.userAgent)

	start := time.Now()
	resp, err := n.httpClient.Do(req)
	n.metrics.GeocodeDuration.WithLabelValues(n.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		n.metrics.GeocodeRequests.WithLabelValues(n.Name(), "error").Inc()
		return domain.CityInfo{}, fmt.Errorf("nominatim reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		n.metrics.GeocodeRequests.WithLabelValues(n.Name(), "error").Inc()
		return domain.CityInfo{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var nr nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		n.metrics.GeocodeRequests.WithLabelValues(n.Name(), "error").Inc()
		return domain.CityInfo{}, fmt.Errorf("decode response: %w", err)
	}

	city := firstNonEmpty(nr.Address.City, nr.Address.Town, nr.Address.Village, nr.Address.Municipality, nr.Address.State)
	if city == "" && nr.Address.Country == "" {
		n.metrics.GeocodeRequests.WithLabelValues(n.Name(), "empty").Inc()
		return domain.CityInfo{}, ErrNoResult
	}

	n.metrics.GeocodeRequests.WithLabelValues(n.Name(), "success").Inc()
	return domain.CityInfo{
		City:        city,
		Country:     nr.Address.Country,
		FullAddress: nr.DisplayName,
		Accuracy:    domain.AccuracyMedium,
	}, nil
}

// Nominatim API response types.

type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
