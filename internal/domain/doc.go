// Package domain models the location state of a single tracked subject.
//
// # Snapshots
//
// The canonical unit of state is the [LocationSnapshot]: a city-granularity
// "where the user currently is believed to be", produced by the update
// pipeline and consumed by the notification layer. A snapshot carries two
// instants:
//
//	Timestamp   when the value was last confirmed (serve time for a
//	            cache-served snapshot, acquisition time for a live one)
//	AcquiredAt  when the underlying position fix was actually taken
//
// The two diverge only when a fresh cached snapshot substitutes for a failed
// live acquisition: the pipeline re-stamps Timestamp to "now" so the
// freshness shown to the user reflects last-confirmed, while AcquiredAt keeps
// the original fix time for diagnostics.
//
// # Freshness
//
// A cached snapshot may substitute for a live result only while younger than
// the freshness window (default 12h), evaluated against Timestamp at read
// time. The boundary is exclusive: a snapshot exactly one window old is stale.
//
// # Accuracy tiers
//
// Reverse-geocoding results are classified into three tiers from the primary
// provider's feature granularity:
//
//	high    street- or premise-level match (premise, street_address)
//	low     second-level administrative match only (county-grade)
//	medium  everything else, and all secondary-provider results
//
// Exhausting both providers yields the "Unknown City"/"Unknown Country"
// sentinel at tier low rather than an error; geocoding never fails the
// pipeline on its own.
//
// # Update history
//
// Every pipeline run appends an [UpdateRecord]. History is a FIFO ring
// bounded at [HistoryLimit] entries; statistics are always derived from the
// records, never stored, so they cannot drift.
package domain
