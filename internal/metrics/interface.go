package metrics

import "context"

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncBackfillRuns()
	IncBackfillFailures()
	AddMatchesRanked(n int)
	ObserveBackfillDuration(duration float64)
	IncLeaderboardQueries()
	SetStartupTime(duration float64)
}

// Store persists lifetime counters in the database.
type Store interface {
	Add(ctx context.Context, key string, n int) error
	GetAll(ctx context.Context) (map[string]int, error)
}

// Persistent counter keys.
const (
	KeyBackfillRuns  = "backfill_runs"
	KeyMatchesRanked = "matches_ranked"
)
