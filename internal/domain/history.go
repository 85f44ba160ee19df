package domain

import "time"

// HistoryLimit bounds the update history ring. Inserting beyond the limit
// evicts the oldest record.
const HistoryLimit = 10

// Outcome is the terminal result of one pipeline run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// UpdateRecord is one entry in the update history. Created only by the
// scheduler after each pipeline run.
type UpdateRecord struct {
	Timestamp    time.Time         `json:"timestamp"`
	Outcome      Outcome           `json:"outcome"`
	Snapshot     *LocationSnapshot `json:"snapshot,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// UpdateStats summarizes the update history. Always derived from the records
// so it cannot drift from them.
type UpdateStats struct {
	Total         int        `json:"total"`
	Successes     int        `json:"successes"`
	Failures      int        `json:"failures"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

// ComputeStats derives statistics from history records. Order does not
// matter; the latest timestamps win.
func ComputeStats(records []UpdateRecord) UpdateStats {
	var stats UpdateStats
	for i := range records {
		r := records[i]
		stats.Total++
		switch r.Outcome {
		case OutcomeSuccess:
			stats.Successes++
			if stats.LastSuccessAt == nil || r.Timestamp.After(*stats.LastSuccessAt) {
				ts := r.Timestamp
				stats.LastSuccessAt = &ts
			}
		case OutcomeFailure:
			stats.Failures++
			if stats.LastFailureAt == nil || r.Timestamp.After(*stats.LastFailureAt) {
				ts := r.Timestamp
				stats.LastFailureAt = &ts
			}
		}
	}
	return stats
}
