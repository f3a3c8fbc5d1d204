package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mauv0809/naseliga/internal/database"
	"github.com/mauv0809/naseliga/internal/league"
	"github.com/mauv0809/naseliga/internal/ledger"
	"github.com/mauv0809/naseliga/internal/metrics"
	"github.com/mauv0809/naseliga/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	league   league.Store
	ledger   ledger.Store
	counters metrics.Store
	metrics  *metrics.Mock
	p        *Processor
}

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (*env, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	e := &env{
		league:   league.New(db),
		ledger:   ledger.New(db),
		counters: metrics.New(db),
		metrics:  metrics.NewMock(),
	}
	e.p = New(e.ledger, e.counters, e.metrics)
	return e, teardown
}

func (e *env) player(t *testing.T, name string) *league.Player {
	t.Helper()
	p, err := e.league.CreatePlayer(context.Background(), name, "SK")
	require.NoError(t, err)
	return p
}

func (e *env) event(t *testing.T, title string) *league.Event {
	t.Helper()
	ev, err := e.league.CreateEvent(context.Background(), title, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return ev
}

func (e *env) match(t *testing.T, ev *league.Event, a, b *league.Player, scoreA, scoreB int) *league.Match {
	t.Helper()
	m, err := e.league.CreateMatch(context.Background(), league.NewMatch{
		EventID: ev.ID, PlayerAID: a.ID, PlayerBID: b.ID, ScoreA: scoreA, ScoreB: scoreB,
	})
	require.NoError(t, err)
	return m
}

func (e *env) deltas(t *testing.T) map[int64]rating.Delta {
	t.Helper()
	d, err := e.ledger.Deltas(context.Background())
	require.NoError(t, err)
	return d
}

func (e *env) scores(t *testing.T) map[int64]int {
	t.Helper()
	standings, err := e.ledger.Scores(context.Background(), ledger.ScoreQuery{})
	require.NoError(t, err)
	out := make(map[int64]int)
	for _, s := range standings {
		out[s.ID] = s.Score
	}
	return out
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()

	t.Run("two new players and one match", func(t *testing.T) {
		e, teardown := setupTestDB(t)
		defer teardown()
		a, b := e.player(t, "A"), e.player(t, "B")
		m1 := e.match(t, e.event(t, "Round 1"), a, b, 3, 1)

		_, err := e.p.Recompute(ctx, true, Options{})
		require.NoError(t, err)

		assert.Equal(t, map[int64]rating.Delta{m1.ID: {A: 25, B: -25}}, e.deltas(t))
		assert.Equal(t, map[int64]int{a.ID: 1525, b.ID: 1475}, e.scores(t))
	})

	t.Run("second match uses the carried ratings", func(t *testing.T) {
		e, teardown := setupTestDB(t)
		defer teardown()
		a, b := e.player(t, "A"), e.player(t, "B")
		m1 := e.match(t, e.event(t, "Round 1"), a, b, 3, 1)
		_, err := e.p.Recompute(ctx, true, Options{})
		require.NoError(t, err)

		m2 := e.match(t, e.event(t, "Round 2"), a, b, 0, 4)
		summary, err := e.p.Backfill(ctx, Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Scanned)
		assert.Equal(t, 1, summary.Ranked)

		d := e.deltas(t)
		assert.Equal(t, rating.Delta{A: 25, B: -25}, d[m1.ID])
		assert.Equal(t, rating.Delta{A: -57, B: 57}, d[m2.ID])
		assert.Equal(t, map[int64]int{a.ID: 1468, b.ID: 1532}, e.scores(t))
	})

	t.Run("rerun is a no-op", func(t *testing.T) {
		e, teardown := setupTestDB(t)
		defer teardown()
		a, b, c := e.player(t, "A"), e.player(t, "B"), e.player(t, "C")
		ev := e.event(t, "Round 1")
		e.match(t, ev, a, b, 3, 1)
		e.match(t, ev, b, c, 2, 2)
		e.match(t, e.event(t, "Round 2"), c, a, 5, 0)

		first, err := e.p.Backfill(ctx, Options{})
		require.NoError(t, err)
		assert.Equal(t, 3, first.Ranked)
		before := e.deltas(t)

		second, err := e.p.Backfill(ctx, Options{})
		require.NoError(t, err)
		assert.Equal(t, 0, second.Ranked)
		assert.Equal(t, before, e.deltas(t))
		assert.NotEqual(t, first.RunID, second.RunID)

		counters, err := e.counters.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{metrics.KeyBackfillRuns: 2, metrics.KeyMatchesRanked: 3}, counters)
		assert.Equal(t, 2, e.metrics.BackfillRuns())
		assert.Equal(t, 3, e.metrics.MatchesRanked())
	})

	t.Run("unranked event is re-ranked as a whole", func(t *testing.T) {
		e, teardown := setupTestDB(t)
		defer teardown()
		a, b := e.player(t, "A"), e.player(t, "B")
		ev := e.event(t, "Round 1")
		m1 := e.match(t, ev, a, b, 3, 1)
		require.NoError(t, e.ledger.Upsert(ctx, m1.ID, rating.Delta{A: 99, B: -99}))
		m2 := e.match(t, ev, a, b, 0, 4)

		summary, err := e.p.Backfill(ctx, Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Ranked)

		d := e.deltas(t)
		assert.Equal(t, rating.Delta{A: 25, B: -25}, d[m1.ID], "stale delta overwritten")
		assert.Equal(t, rating.Delta{A: -57, B: 57}, d[m2.ID])
	})

	t.Run("fully ranked events keep their deltas unless rebuilt", func(t *testing.T) {
		e, teardown := setupTestDB(t)
		defer teardown()
		a, b := e.player(t, "A"), e.player(t, "B")
		m1 := e.match(t, e.event(t, "Round 1"), a, b, 3, 1)
		require.NoError(t, e.ledger.Upsert(ctx, m1.ID, rating.Delta{A: 10, B: -10}))
		m2 := e.match(t, e.event(t, "Round 2"), a, b, 2, 2)

		_, err := e.p.Backfill(ctx, Options{})
		require.NoError(t, err)
		d := e.deltas(t)
		assert.Equal(t, rating.Delta{A: 10, B: -10}, d[m1.ID])
		assert.Equal(t, rating.ComputeDelta(1510, 1490, 2, 4), d[m2.ID], "ranked on top of the stored delta")

		summary, err := e.p.Backfill(ctx, Options{Rebuild: true})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Ranked)
		d = e.deltas(t)
		assert.Equal(t, rating.Delta{A: 25, B: -25}, d[m1.ID])
		assert.Equal(t, rating.ComputeDelta(1525, 1475, 2, 4), d[m2.ID])
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		e, teardown := setupTestDB(t)
		defer teardown()
		a, b := e.player(t, "A"), e.player(t, "B")
		e.match(t, e.event(t, "Round 1"), a, b, 3, 1)

		summary, err := e.p.Backfill(ctx, Options{DryRun: true})
		require.NoError(t, err)
		assert.True(t, summary.DryRun)
		assert.Equal(t, 1, summary.Ranked)
		assert.Empty(t, e.deltas(t))

		counters, err := e.counters.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, counters)
	})

	t.Run("scoreless match ranks as zero", func(t *testing.T) {
		e, teardown := setupTestDB(t)
		defer teardown()
		a, b := e.player(t, "A"), e.player(t, "B")
		m := e.match(t, e.event(t, "Round 1"), a, b, 0, 0)

		_, err := e.p.Recompute(ctx, true, Options{})
		require.NoError(t, err)
		assert.Equal(t, map[int64]rating.Delta{m.ID: {}}, e.deltas(t))
		assert.Equal(t, map[int64]int{a.ID: 1500, b.ID: 1500}, e.scores(t))
	})
}

func TestRecompute_Unauthorized(t *testing.T) {
	store := ledger.NewMock()
	metr := metrics.NewMock()
	p := New(store, metrics.NewMockStore(), metr)

	_, err := p.Recompute(context.Background(), false, Options{DryRun: true})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, store.Calls(), "nothing may be read before authorization")
	assert.Zero(t, metr.BackfillRuns())
}

func TestBackfill_RejectsOutOfOrderTimeline(t *testing.T) {
	store := ledger.NewMock()
	store.TimelineFunc = func(ctx context.Context) ([]ledger.Entry, error) {
		return []ledger.Entry{
			{MatchID: 2, EventID: 1, PlayerA: 1, PlayerB: 2, ScoreA: 0, ScoreB: 4, Pending: true},
			{MatchID: 1, EventID: 1, PlayerA: 1, PlayerB: 2, ScoreA: 3, ScoreB: 1, Pending: true},
		}, nil
	}
	metr := metrics.NewMock()
	p := New(store, metrics.NewMockStore(), metr)

	_, err := p.Backfill(context.Background(), Options{})

	assert.ErrorIs(t, err, rating.ErrOutOfOrder)
	require.Len(t, store.UpsertCalls, 1, "the earlier write stays, nothing after the rejection")
	assert.Equal(t, int64(2), store.UpsertCalls[0].MatchID)
	assert.Equal(t, 1, metr.BackfillFailures())
	assert.Zero(t, metr.BackfillRuns())
}

func TestBackfill_StopsOnUpsertFailure(t *testing.T) {
	store := ledger.NewMock()
	store.TimelineFunc = func(ctx context.Context) ([]ledger.Entry, error) {
		return []ledger.Entry{
			{MatchID: 1, PlayerA: 1, PlayerB: 2, ScoreA: 3, ScoreB: 1, Pending: true},
			{MatchID: 2, PlayerA: 1, PlayerB: 2, ScoreA: 3, ScoreB: 1, Pending: true},
		}, nil
	}
	boom := errors.New("disk full")
	store.UpsertFunc = func(ctx context.Context, matchID int64, delta rating.Delta) error {
		return boom
	}
	p := New(store, metrics.NewMockStore(), metrics.NewMock())

	summary, err := p.Backfill(context.Background(), Options{})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, store.UpsertCalls, 1)
	assert.Zero(t, summary.Ranked)
}

func TestBackfill_IsSerialized(t *testing.T) {
	store := ledger.NewMock()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.TimelineFunc = func(ctx context.Context) ([]ledger.Entry, error) {
		once.Do(func() {
			close(entered)
			<-release
		})
		return nil, nil
	}
	p := New(store, metrics.NewMockStore(), metrics.NewMock())

	done := make(chan error, 1)
	go func() {
		_, err := p.Backfill(context.Background(), Options{})
		done <- err
	}()
	<-entered

	t.Run("a waiting run gives up with its context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := p.Backfill(ctx, Options{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	close(release)
	require.NoError(t, <-done)

	t.Run("the next run proceeds once the first is done", func(t *testing.T) {
		_, err := p.Backfill(context.Background(), Options{})
		assert.NoError(t, err)
		assert.Equal(t, 2, store.TimelineCalls)
	})
}

func TestBackfill_WaitsForLeaseHeldByAnotherProcess(t *testing.T) {
	e, teardown := setupTestDB(t)
	defer teardown()
	e.p.leasePoll = 5 * time.Millisecond
	ctx := context.Background()

	a, b := e.player(t, "A"), e.player(t, "B")
	ev := e.event(t, "Round 1")
	e.match(t, ev, a, b, 3, 1)

	// Another process, such as the importer, is mid-run on the same database.
	ok, err := e.ledger.Claim(ctx, "importer-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("waits until its context ends", func(t *testing.T) {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()
		_, err := e.p.Backfill(waitCtx, Options{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		deltas, err := e.ledger.Deltas(ctx)
		require.NoError(t, err)
		assert.Empty(t, deltas, "nothing written while the lease is held elsewhere")
	})

	t.Run("runs once the other process releases", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			_, err := e.p.Backfill(ctx, Options{})
			done <- err
		}()
		require.NoError(t, e.ledger.Release(ctx, "importer-run"))
		require.NoError(t, <-done)

		deltas, err := e.ledger.Deltas(ctx)
		require.NoError(t, err)
		assert.Len(t, deltas, 1)
	})

	t.Run("lease is released after the run", func(t *testing.T) {
		ok, err := e.ledger.Claim(ctx, "importer-run", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestBackfill_ReleasesLeaseOnFailure(t *testing.T) {
	store := ledger.NewMock()
	store.TimelineFunc = func(ctx context.Context) ([]ledger.Entry, error) {
		return nil, errors.New("timeline unavailable")
	}
	p := New(store, metrics.NewMockStore(), metrics.NewMock())

	summary, err := p.Backfill(context.Background(), Options{})

	require.Error(t, err)
	require.Len(t, store.ClaimCalls, 1)
	assert.Equal(t, []string{summary.RunID}, store.ReleaseCalls)
}
