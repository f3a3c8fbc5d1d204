package processor

import (
	"context"
	"time"

	"github.com/mauv0809/naseliga/internal/ledger"
	"github.com/mauv0809/naseliga/internal/rating"
)

// Store defines the ledger operations required by the processor.
type Store interface {
	Timeline(ctx context.Context) ([]ledger.Entry, error)
	Upsert(ctx context.Context, matchID int64, delta rating.Delta) error
	Claim(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, holder string) error
}

// Counters persists lifetime run counters.
type Counters interface {
	Add(ctx context.Context, key string, n int) error
}
