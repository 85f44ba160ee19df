package domain

import "time"

// DefaultFreshnessWindow is how long a cached snapshot may substitute for a
// live acquisition.
const DefaultFreshnessWindow = 12 * time.Hour

// Sentinel values returned when every geocoding provider has been exhausted.
const (
	UnknownCity    = "Unknown City"
	UnknownCountry = "Unknown Country"
)

// Coordinates is a WGS-84 latitude/longitude pair. Raw sensor output,
// ephemeral, never persisted on its own.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AccuracyTier classifies how precisely a geocoding result matched the
// queried coordinates.
type AccuracyTier string

const (
	AccuracyHigh   AccuracyTier = "high"
	AccuracyMedium AccuracyTier = "medium"
	AccuracyLow    AccuracyTier = "low"
)

// CityInfo is a resolved city/country value. Immutable once constructed.
type CityInfo struct {
	City        string       `json:"city"`
	Country     string       `json:"country"`
	FullAddress string       `json:"full_address,omitempty"`
	Accuracy    AccuracyTier `json:"accuracy"`
}

// UnknownCityInfo is the never-fail fallback produced when both geocoding
// providers are exhausted.
func UnknownCityInfo() CityInfo {
	return CityInfo{City: UnknownCity, Country: UnknownCountry, Accuracy: AccuracyLow}
}

// IsUnknown reports whether the value is the exhausted-providers sentinel.
func (c CityInfo) IsUnknown() bool {
	return c.City == UnknownCity && c.Country == UnknownCountry
}

// SourceKind records which stage of the fallback chain produced a snapshot.
type SourceKind string

const (
	SourceLive     SourceKind = "live"
	SourceCached   SourceKind = "cached"
	SourceFallback SourceKind = "fallback"
)

// LocationSnapshot is the canonical unit of location state handed to
// consumers. Source is SourceCached if and only if the snapshot was served
// from the snapshot store rather than a just-completed resolution.
type LocationSnapshot struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	City        CityInfo     `json:"city"`
	Timestamp   time.Time    `json:"timestamp"`
	AcquiredAt  time.Time    `json:"acquired_at"`
	Source      SourceKind   `json:"source"`
}

// IsFresh reports whether the snapshot is still inside the freshness window
// at the given instant. Evaluated at read time: a snapshot can go stale
// without any write occurring. Exactly window-old is stale.
func IsFresh(s LocationSnapshot, now time.Time, window time.Duration) bool {
	if s.Timestamp.IsZero() {
		return false
	}
	return now.Sub(s.Timestamp) < window
}
