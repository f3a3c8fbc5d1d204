package ledger

import (
	"context"
	"time"

	"github.com/mauv0809/naseliga/internal/rating"
)

// Store is the rating delta ledger. The backfill job is its only writer.
type Store interface {
	// Timeline returns every match in ascending id order with its current delta.
	Timeline(ctx context.Context) ([]Entry, error)
	// Upsert creates or overwrites the delta of a match.
	Upsert(ctx context.Context, matchID int64, delta rating.Delta) error
	// Deltas returns the whole ledger keyed by match id.
	Deltas(ctx context.Context) (map[int64]rating.Delta, error)
	// Scores sums deltas per player and ranks them, highest first.
	Scores(ctx context.Context, q ScoreQuery) ([]Standing, error)
	// PlayerRating returns the cumulative rating of a player before the given
	// match; zero means after every ranked match.
	PlayerRating(ctx context.Context, playerID int64, beforeMatchID int64) (int, error)
	// Claim takes the backfill lease for holder. It reports false while
	// another holder's claim has not expired.
	Claim(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	// Release drops the lease if holder still owns it.
	Release(ctx context.Context, holder string) error
}
