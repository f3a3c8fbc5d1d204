package metrics

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                 sync.Mutex
	backfillRuns       int
	backfillFailures   int
	matchesRanked      int
	backfillDurations  []float64
	leaderboardQueries int
	startupTime        float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		backfillDurations: make([]float64, 0),
	}
}

func (m *Mock) IncBackfillRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfillRuns++
}

func (m *Mock) IncBackfillFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfillFailures++
}

func (m *Mock) AddMatchesRanked(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesRanked += n
}

func (m *Mock) ObserveBackfillDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfillDurations = append(m.backfillDurations, duration)
}

func (m *Mock) IncLeaderboardQueries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaderboardQueries++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// BackfillRuns returns the number of times IncBackfillRuns was called.
func (m *Mock) BackfillRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backfillRuns
}

// BackfillFailures returns the number of times IncBackfillFailures was called.
func (m *Mock) BackfillFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backfillFailures
}

// MatchesRanked returns the sum passed to AddMatchesRanked.
func (m *Mock) MatchesRanked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesRanked
}

// BackfillDurations returns every observed duration.
func (m *Mock) BackfillDurations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.backfillDurations...)
}

// LeaderboardQueries returns the number of times IncLeaderboardQueries was called.
func (m *Mock) LeaderboardQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaderboardQueries
}

// MockStore is an in-memory Store for testing.
type MockStore struct {
	mu       sync.Mutex
	counters map[string]int
	AddErr   error
}

// NewMockStore creates an empty counter store.
func NewMockStore() *MockStore {
	return &MockStore{counters: make(map[string]int)}
}

func (m *MockStore) Add(_ context.Context, key string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return m.AddErr
	}
	m.counters[key] += n
	return nil
}

func (m *MockStore) GetAll(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out, nil
}
