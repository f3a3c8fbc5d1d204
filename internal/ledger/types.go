package ledger

import (
	"database/sql"
	"sync"
	"time"

	"github.com/mauv0809/naseliga/internal/rating"
)

// store handles the rating_deltas table and the queries folding over it.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Entry is one match of the event log as seen by the backfill job.
type Entry struct {
	MatchID int64
	EventID int64
	PlayerA int64
	PlayerB int64
	ScoreA  int
	ScoreB  int
	// Delta is nil for an unranked match.
	Delta *rating.Delta
	// Pending marks matches of events holding at least one unranked match.
	Pending bool
}

// Result returns the part of the entry the rating ladder folds over.
func (e Entry) Result() rating.Result {
	return rating.Result{
		MatchID: e.MatchID,
		PlayerA: e.PlayerA,
		PlayerB: e.PlayerB,
		ScoreA:  e.ScoreA,
		ScoreB:  e.ScoreB,
	}
}

// Standing is one leaderboard row.
type Standing struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Score   int    `json:"score"`
}

// ScoreQuery scopes a leaderboard aggregation.
type ScoreQuery struct {
	// MaxEventID limits the sum to matches of events up to and including it.
	// Zero means every ranked match.
	MaxEventID int64
	// When ActiveFrom and ActiveTo are both set, only players with a match in
	// an event dated within [ActiveFrom, ActiveTo] are kept.
	ActiveFrom time.Time
	ActiveTo   time.Time
}

func (q ScoreQuery) activityFilter() bool {
	return !q.ActiveFrom.IsZero() && !q.ActiveTo.IsZero()
}
