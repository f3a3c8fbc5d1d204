package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/mauv0809/naseliga/internal/rating"
)

// MockStore is a mock implementation of Store for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	TimelineFunc     func(ctx context.Context) ([]Entry, error)
	UpsertFunc       func(ctx context.Context, matchID int64, delta rating.Delta) error
	DeltasFunc       func(ctx context.Context) (map[int64]rating.Delta, error)
	ScoresFunc       func(ctx context.Context, q ScoreQuery) ([]Standing, error)
	PlayerRatingFunc func(ctx context.Context, playerID int64, beforeMatchID int64) (int, error)
	ClaimFunc        func(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	ReleaseFunc      func(ctx context.Context, holder string) error

	TimelineCalls     int
	UpsertCalls       []UpsertCall
	DeltasCalls       int
	ScoresCalls       []ScoreQuery
	PlayerRatingCalls []PlayerRatingCall
	ClaimCalls        []string
	ReleaseCalls      []string
}

// UpsertCall holds the arguments for a call to Upsert.
type UpsertCall struct {
	MatchID int64
	Delta   rating.Delta
}

// PlayerRatingCall holds the arguments for a call to PlayerRating.
type PlayerRatingCall struct {
	PlayerID      int64
	BeforeMatchID int64
}

// NewMock creates a new mock Store.
func NewMock() *MockStore {
	return &MockStore{}
}

// Calls returns the total number of calls made on the mock.
func (m *MockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TimelineCalls + len(m.UpsertCalls) + m.DeltasCalls + len(m.ScoresCalls) + len(m.PlayerRatingCalls) +
		len(m.ClaimCalls) + len(m.ReleaseCalls)
}

func (m *MockStore) Timeline(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	m.TimelineCalls++
	fn := m.TimelineFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil, nil
}

func (m *MockStore) Upsert(ctx context.Context, matchID int64, delta rating.Delta) error {
	m.mu.Lock()
	m.UpsertCalls = append(m.UpsertCalls, UpsertCall{MatchID: matchID, Delta: delta})
	fn := m.UpsertFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, matchID, delta)
	}
	return nil
}

func (m *MockStore) Deltas(ctx context.Context) (map[int64]rating.Delta, error) {
	m.mu.Lock()
	m.DeltasCalls++
	fn := m.DeltasFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return map[int64]rating.Delta{}, nil
}

func (m *MockStore) Scores(ctx context.Context, q ScoreQuery) ([]Standing, error) {
	m.mu.Lock()
	m.ScoresCalls = append(m.ScoresCalls, q)
	fn := m.ScoresFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, q)
	}
	return []Standing{}, nil
}

func (m *MockStore) PlayerRating(ctx context.Context, playerID int64, beforeMatchID int64) (int, error) {
	m.mu.Lock()
	m.PlayerRatingCalls = append(m.PlayerRatingCalls, PlayerRatingCall{PlayerID: playerID, BeforeMatchID: beforeMatchID})
	fn := m.PlayerRatingFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, playerID, beforeMatchID)
	}
	return rating.Baseline, nil
}

// Claim always succeeds unless ClaimFunc says otherwise.
func (m *MockStore) Claim(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.ClaimCalls = append(m.ClaimCalls, holder)
	fn := m.ClaimFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, holder, ttl)
	}
	return true, nil
}

func (m *MockStore) Release(ctx context.Context, holder string) error {
	m.mu.Lock()
	m.ReleaseCalls = append(m.ReleaseCalls, holder)
	fn := m.ReleaseFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, holder)
	}
	return nil
}
