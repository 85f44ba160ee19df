// Command loccheck runs the acquisition pipeline once and prints the
// resulting snapshot as JSON. It talks to the same gpsd and geocoding
// providers as the daemon and is meant for checking a deployment by hand.
//
// Usage:
//
//	go run ./cmd/loccheck \
//	  -gpsd localhost:2947 \
//	  -mode precise \
//	  -nominatim https://nominatim.openstreetmap.org
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/geocode"
	"github.com/nearspot/locationd/internal/observability"
	"github.com/nearspot/locationd/internal/position"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	gpsdAddr := flag.String("gpsd", "localhost:2947", "gpsd address")
	mode := flag.String("mode", "quick", "acquisition mode: quick, precise, or scheduled")
	googleKey := flag.String("google-key", os.Getenv("GOOGLE_MAPS_API_KEY"), "Google Maps API key (optional)")
	nominatimURL := flag.String("nominatim", "https://nominatim.openstreetmap.org", "Nominatim base URL")
	timeout := flag.String("timeout", "30s", "overall deadline")
	verbose := flag.Bool("v", false, "log provider activity to stderr")
	flag.Parse()

	var acquireMode domain.AcquireMode
	switch *mode {
	case "quick":
		acquireMode = domain.AcquireQuick
	case "precise":
		acquireMode = domain.AcquirePrecise
	case "scheduled":
		acquireMode = domain.AcquireScheduled
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	deadline, err := time.ParseDuration(*timeout)
	if err != nil {
		return fmt.Errorf("invalid -timeout: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewRealClock()

	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	source := position.NewGPSD(*gpsdAddr, clock, logger, metrics)
	coords, err := source.Acquire(ctx, acquireMode)
	if err != nil {
		return fmt.Errorf("acquire position: %w", err)
	}

	var primary geocode.Provider
	if *googleKey != "" {
		primary, err = geocode.NewGoogleProvider(*googleKey, 10*time.Second, metrics)
		if err != nil {
			return fmt.Errorf("create google geocoder: %w", err)
		}
	}
	secondary := geocode.NewNominatimProvider(*nominatimURL, "loccheck/1.0", 10*time.Second, metrics)
	resolver := geocode.NewResolver(primary, secondary, logger)

	now := clock.Now()
	snapshot := domain.LocationSnapshot{
		Coordinates: &coords,
		City:        resolver.Resolve(ctx, coords),
		Timestamp:   now,
		AcquiredAt:  now,
		Source:      domain.SourceLive,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}
