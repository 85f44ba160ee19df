package domain

import "errors"

// Position acquisition failure kinds. All of them leave the pipeline on the
// cache-fallback path; none is fatal to the process.
var (
	ErrPositionTimeout          = errors.New("position: fix timed out")
	ErrPositionPermissionDenied = errors.New("position: permission denied")
	ErrPositionUnavailable      = errors.New("position: source unavailable")
)

// ErrNoFreshFallback means live acquisition failed and no cached snapshot
// inside the freshness window exists. Combined with the position error it
// forms the only terminal pipeline error.
var ErrNoFreshFallback = errors.New("no fresh cached snapshot available")

// IsPositionError reports whether err is one of the position acquisition
// failure kinds.
func IsPositionError(err error) bool {
	return errors.Is(err, ErrPositionTimeout) ||
		errors.Is(err, ErrPositionPermissionDenied) ||
		errors.Is(err, ErrPositionUnavailable)
}
