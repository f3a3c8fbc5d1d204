package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		BackfillRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_backfill_runs_total",
			Help: "The total number of completed backfill runs.",
		}),
		BackfillFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_backfill_failures_total",
			Help: "The total number of backfill runs that stopped on an error.",
		}),
		MatchesRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_ranked_total",
			Help: "The total number of rating deltas written by the backfill job.",
		}),
		BackfillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ladder_backfill_duration_seconds",
			Help:    "The duration of a backfill run.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		LeaderboardQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_leaderboard_queries_total",
			Help: "The total number of leaderboard aggregations served.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ladder_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.BackfillRuns,
		s.BackfillFailures,
		s.MatchesRanked,
		s.BackfillDuration,
		s.LeaderboardQueries,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncBackfillRuns() {
	s.BackfillRuns.Inc()
}

func (s *Service) IncBackfillFailures() {
	s.BackfillFailures.Inc()
}

func (s *Service) AddMatchesRanked(n int) {
	s.MatchesRanked.Add(float64(n))
}

func (s *Service) ObserveBackfillDuration(duration float64) {
	s.BackfillDuration.Observe(duration)
}

func (s *Service) IncLeaderboardQueries() {
	s.LeaderboardQueries.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
