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

type Server struct {
	League         league.Store
	Ledger         ledger.Store
	Counters       metrics.Store
	Standings      *standings.Service
	Processor      *processor.Processor
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
}

type playerRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type eventRequest struct {
	Title string `json:"title"`
	// Date is either YYYY-MM-DD or RFC 3339.
	Date string `json:"date"`
}

type ratingResponse struct {
	PlayerID      int64 `json:"player_id"`
	BeforeMatchID int64 `json:"before_match_id,omitempty"`
	Rating        int   `json:"rating"`
}

type errorResponse struct {
	Error string `json:"error"`
}
