package standings

import (
	"context"

	"github.com/mauv0809/naseliga/internal/league"
	"github.com/mauv0809/naseliga/internal/ledger"
)

// EventStore resolves the reference event of a point-in-time leaderboard.
type EventStore interface {
	GetEvent(ctx context.Context, id int64) (*league.Event, error)
}

// Scorer runs the per-player aggregate over the ledger.
type Scorer interface {
	Scores(ctx context.Context, q ledger.ScoreQuery) ([]ledger.Standing, error)
}
