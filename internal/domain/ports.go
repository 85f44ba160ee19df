package domain

import "context"

// AcquireMode selects the accuracy/timeout tier for a position request.
type AcquireMode string

const (
	// AcquireQuick: low accuracy, short timeout, accepts a recent cached
	// device fix. Used for interactive lookups.
	AcquireQuick AcquireMode = "quick"
	// AcquirePrecise: high accuracy, longer timeout, accepts a fix up to a
	// few minutes old.
	AcquirePrecise AcquireMode = "precise"
	// AcquireScheduled: single attempt with a fixed timeout, no tier
	// degradation. Scheduled runs either succeed or fall through to the
	// cache path.
	AcquireScheduled AcquireMode = "scheduled"
)

// PositionSource abstracts one-shot device position acquisition.
// Implementations surface permission state, they never mutate it.
type PositionSource interface {
	Acquire(ctx context.Context, mode AcquireMode) (Coordinates, error)
}

// CityResolver resolves coordinates to city/country. Resolve never fails:
// exhausting every provider yields the Unknown sentinel instead of an error.
type CityResolver interface {
	Resolve(ctx context.Context, coords Coordinates) CityInfo
}

// SnapshotStore persists the single last-known snapshot. Put always
// overwrites; the store survives process restarts.
type SnapshotStore interface {
	Get() (LocationSnapshot, bool, error)
	Put(snapshot LocationSnapshot) error
}

// HistoryStore persists the bounded update history. Append trims the ring to
// HistoryLimit; Recent returns at most n records, most recent first.
type HistoryStore interface {
	Append(record UpdateRecord) error
	Recent(n int) ([]UpdateRecord, error)
}
