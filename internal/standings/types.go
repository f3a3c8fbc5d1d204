package standings

import (
	"time"

	"github.com/mauv0809/naseliga/internal/ledger"
	"github.com/mauv0809/naseliga/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Entry is one leaderboard row.
type Entry = ledger.Standing

// Query selects a leaderboard.
type Query struct {
	// AsOfEventID limits the leaderboard to events up to this one. Zero means
	// every ranked match.
	AsOfEventID int64
	// IncludeInactive keeps players without a match in the activity window.
	IncludeInactive bool
}

// Service answers leaderboard queries.
type Service struct {
	events  EventStore
	scores  Scorer
	metrics metrics.Metrics
	months  int
	now     func() time.Time
	group   singleflight.Group
}
