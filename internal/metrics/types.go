package metrics

import (
	"database/sql"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Service holds all the Prometheus metrics for the application.
type Service struct {
	BackfillRuns       prometheus.Counter
	BackfillFailures   prometheus.Counter
	MatchesRanked      prometheus.Counter
	BackfillDuration   prometheus.Histogram
	LeaderboardQueries prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}

// store handles counter-related database operations.
type store struct {
	db *sql.DB
	mu sync.Mutex
}
