package geocode

import (
	"context"
	"log/slog"

	"github.com/nearspot/locationd/internal/domain"
)

// Resolver walks the provider fallback chain. It implements
// domain.CityResolver and never returns an error: when every provider is
// exhausted it yields the Unknown sentinel so downstream consumers always
// receive a usable value. Error semantics are reserved for the position and
// cache-freshness stages of the pipeline.
type Resolver struct {
	primary   Provider
	secondary Provider
	logger    *slog.Logger
}

// NewResolver creates a fallback-chain resolver. Either provider may be nil;
// its slot in the chain is then skipped.
func NewResolver(primary, secondary Provider, logger *slog.Logger) *Resolver {
	return &Resolver{primary: primary, secondary: secondary, logger: logger}
}

// Resolve tries the primary provider, then the secondary with the same
// coordinates, then gives up with the Unknown sentinel at tier low.
func (r *Resolver) Resolve(ctx context.Context, coords domain.Coordinates) domain.CityInfo {
	for _, p := range []Provider{r.primary, r.secondary} {
		if p == nil {
			continue
		}
		info, err := p.ReverseGeocode(ctx, coords)
		if err != nil {
			r.logger.Warn("geocoding provider failed",
				"provider", p.Name(),
				"lat", coords.Latitude,
				"lon", coords.Longitude,
				"error", err,
			)
			continue
		}
		return info
	}
	return domain.UnknownCityInfo()
}
