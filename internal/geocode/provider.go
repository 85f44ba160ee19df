// Package geocode resolves coordinates to city/country values through a
// primary/secondary provider fallback chain that never fails outright.
package geocode

import (
	"context"
	"errors"

	"github.com/nearspot/locationd/internal/domain"
)

// ErrNoResult is returned by a provider when the request succeeded but no
// usable address came back. The resolver treats it like any other provider
// failure and moves down the chain.
var ErrNoResult = errors.New("geocode: no result for coordinates")

// Provider is a single reverse-geocoding backend.
type Provider interface {
	Name() string
	ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.CityInfo, error)
}
