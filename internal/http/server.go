package http

import (
	"net/http"

	"github.com/mauv0809/naseliga/internal/config"
	"github.com/mauv0809/naseliga/internal/league"
	"github.com/mauv0809/naseliga/internal/ledger"
	"github.com/mauv0809/naseliga/internal/metrics"
	"github.com/mauv0809/naseliga/internal/processor"
	"github.com/mauv0809/naseliga/internal/pubsub"
	"github.com/mauv0809/naseliga/internal/standings"
)

func NewServer(leagueStore league.Store, ledgerStore ledger.Store, counters metrics.Store, standingsSvc *standings.Service, proc *processor.Processor, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		League:         leagueStore,
		Ledger:         ledgerStore,
		Counters:       counters,
		Standings:      standingsSvc,
		Processor:      proc,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// Writes to the league additionally require the admin token.
	params := paramsMiddleware
	auth := privilegeMiddleware(s.Cfg.AdminToken)

	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), params))
	s.Router.Handle("GET /stats", Chain(s.StatsHandler(), params))

	s.Router.Handle("GET /players", Chain(s.ListPlayersHandler(), params))
	s.Router.Handle("POST /players", Chain(s.CreatePlayerHandler(), params, auth, requireAdmin))
	s.Router.Handle("GET /players/{id}", Chain(s.GetPlayerHandler(), params))
	s.Router.Handle("PUT /players/{id}", Chain(s.UpdatePlayerHandler(), params, auth, requireAdmin))
	s.Router.Handle("DELETE /players/{id}", Chain(s.DeletePlayerHandler(), params, auth, requireAdmin))
	s.Router.Handle("GET /players/{id}/rating", Chain(s.PlayerRatingHandler(), params))

	s.Router.Handle("GET /events", Chain(s.ListEventsHandler(), params))
	s.Router.Handle("POST /events", Chain(s.CreateEventHandler(), params, auth, requireAdmin))
	s.Router.Handle("GET /events/unranked", Chain(s.ListUnrankedEventsHandler(), params))
	s.Router.Handle("GET /events/{id}", Chain(s.GetEventHandler(), params))
	s.Router.Handle("DELETE /events/{id}", Chain(s.DeleteEventHandler(), params, auth, requireAdmin))

	s.Router.Handle("POST /matches", Chain(s.CreateMatchHandler(), params, auth, requireAdmin))
	s.Router.Handle("DELETE /matches/{id}", Chain(s.DeleteMatchHandler(), params, auth, requireAdmin))

	s.Router.Handle("GET /leaderboard", Chain(s.LeaderboardHandler(), params))
	s.Router.Handle("POST /leaderboard/recompute", Chain(s.RecomputeHandler(), params, auth))
	s.Router.Handle("POST /pubsub/recompute", Chain(s.PushRecomputeHandler(), params))

	if s.Cfg.Slack.SigningSecret != "" {
		s.Router.Handle("POST /slack/command/leaderboard", Chain(s.LeaderboardCommandHandler(), params))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
