// Package position acquires one-shot device position fixes from a gpsd
// daemon with tiered accuracy/timeout policy.
package position

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/observability"
)

// watchCommand enables JSON report streaming on the gpsd connection.
const watchCommand = `?WATCH={"enable":true,"json":true};` + "\n"

// modePolicy is the accuracy/timeout tier for one acquire mode.
type modePolicy struct {
	timeout   time.Duration
	maxFixAge time.Duration
}

// policies: quick accepts an old cached fix fast, precise waits longer for a
// tighter one, scheduled is a single fixed-budget attempt with no tier walk.
var policies = map[domain.AcquireMode]modePolicy{
	domain.AcquireQuick:     {timeout: 4 * time.Second, maxFixAge: 60 * time.Second},
	domain.AcquirePrecise:   {timeout: 12 * time.Second, maxFixAge: 5 * time.Minute},
	domain.AcquireScheduled: {timeout: 15 * time.Second, maxFixAge: 2 * time.Minute},
}

// GPSD implements domain.PositionSource over the gpsd JSON line protocol.
//
// gpsd has no permission prompt of its own; an empty device list is the
// daemon's way of saying location access is not available to this client, so
// it maps to ErrPositionPermissionDenied and latches: subsequent acquires in
// the same session fail fast without redialing.
type GPSD struct {
	addr    string
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	denied bool
}

// NewGPSD creates a gpsd-backed position source.
func NewGPSD(addr string, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *GPSD {
	return &GPSD{addr: addr, clock: clock, logger: logger, metrics: metrics}
}

// Acquire requests a single position fix under the mode's policy. It has no
// side effects beyond the gpsd session; permission state is surfaced, not
// mutated.
func (g *GPSD) Acquire(ctx context.Context, mode domain.AcquireMode) (domain.Coordinates, error) {
	policy, ok := policies[mode]
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("unknown acquire mode %q", mode)
	}

	g.mu.Lock()
	denied := g.denied
	g.mu.Unlock()
	if denied {
		g.metrics.PositionRequests.WithLabelValues("denied").Inc()
		return domain.Coordinates{}, domain.ErrPositionPermissionDenied
	}

	ctx, cancel := context.WithTimeout(ctx, policy.timeout)
	defer cancel()

	coords, err := g.acquire(ctx, policy)
	switch {
	case err == nil:
		g.metrics.PositionRequests.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrPositionTimeout):
		g.metrics.PositionRequests.WithLabelValues("timeout").Inc()
	case errors.Is(err, domain.ErrPositionPermissionDenied):
		g.metrics.PositionRequests.WithLabelValues("denied").Inc()
	default:
		g.metrics.PositionRequests.WithLabelValues("unavailable").Inc()
	}
	return coords, err
}

func (g *GPSD) acquire(ctx context.Context, policy modePolicy) (domain.Coordinates, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Coordinates{}, fmt.Errorf("%w: dialing %s", domain.ErrPositionTimeout, g.addr)
		}
		return domain.Coordinates{}, fmt.Errorf("%w: %v", domain.ErrPositionUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: watch: %v", domain.ErrPositionUnavailable, err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var report gpsdReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			// gpsd occasionally emits partial lines on reconnect; skip them.
			continue
		}

		switch report.Class {
		case "DEVICES":
			if len(report.Devices) == 0 {
				g.mu.Lock()
				g.denied = true
				g.mu.Unlock()
				g.logger.Warn("gpsd reports no devices; latching permission denial")
				return domain.Coordinates{}, domain.ErrPositionPermissionDenied
			}
		case "ERROR":
			return domain.Coordinates{}, fmt.Errorf("%w: gpsd: %s", domain.ErrPositionUnavailable, report.Message)
		case "TPV":
			if report.Mode < 2 {
				continue // no fix yet
			}
			if !report.Time.IsZero() && g.clock.Since(report.Time) > policy.maxFixAge {
				continue // stale device fix for this tier
			}
			return domain.Coordinates{Latitude: report.Lat, Longitude: report.Lon}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || ctx.Err() != nil {
			return domain.Coordinates{}, domain.ErrPositionTimeout
		}
		return domain.Coordinates{}, fmt.Errorf("%w: %v", domain.ErrPositionUnavailable, err)
	}
	return domain.Coordinates{}, fmt.Errorf("%w: gpsd closed the session without a fix", domain.ErrPositionUnavailable)
}

// gpsdReport is the union of the report classes this adapter cares about.
type gpsdReport struct {
	Class   string    `json:"class"`
	Mode    int       `json:"mode"`
	Time    time.Time `json:"time"`
	Lat     float64   `json:"lat"`
	Lon     float64   `json:"lon"`
	Devices []any     `json:"devices"`
	Message string    `json:"message"`
}
