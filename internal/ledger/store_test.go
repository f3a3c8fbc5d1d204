package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/mauv0809/naseliga/internal/database"
	"github.com/mauv0809/naseliga/internal/league"
	"github.com/mauv0809/naseliga/internal/ledger"
	"github.com/mauv0809/naseliga/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (ledger.Store, league.Store, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return ledger.New(db), league.New(db), dbTeardown
}

type fixture struct {
	a, b, c *league.Player
	e1, e2  *league.Event
	m1, m2  *league.Match
	m3      *league.Match
}

// seed creates two events: e1 (A beats B 3-1) and e2 (B beats A 2-2, C vs A 1-3).
func seed(t *testing.T, ctx context.Context, ls league.Store) fixture {
	t.Helper()
	var f fixture
	var err error

	f.a, err = ls.CreatePlayer(ctx, "A", "SK")
	require.NoError(t, err)
	f.b, err = ls.CreatePlayer(ctx, "B", "CZ")
	require.NoError(t, err)
	f.c, err = ls.CreatePlayer(ctx, "C", "AT")
	require.NoError(t, err)

	f.e1, err = ls.CreateEvent(ctx, "Round 1", time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	f.e2, err = ls.CreateEvent(ctx, "Round 2", time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f.m1, err = ls.CreateMatch(ctx, league.NewMatch{EventID: f.e1.ID, PlayerAID: f.a.ID, PlayerBID: f.b.ID, ScoreA: 3, ScoreB: 1})
	require.NoError(t, err)
	f.m2, err = ls.CreateMatch(ctx, league.NewMatch{EventID: f.e2.ID, PlayerAID: f.b.ID, PlayerBID: f.a.ID, ScoreA: 2, ScoreB: 2})
	require.NoError(t, err)
	f.m3, err = ls.CreateMatch(ctx, league.NewMatch{EventID: f.e2.ID, PlayerAID: f.c.ID, PlayerBID: f.a.ID, ScoreA: 1, ScoreB: 3})
	require.NoError(t, err)
	return f
}

func TestTimelineAndUpsert(t *testing.T) {
	store, ls, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	f := seed(t, ctx, ls)

	t.Run("fresh log is entirely pending", func(t *testing.T) {
		entries, err := store.Timeline(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i, e := range entries {
			assert.True(t, e.Pending)
			assert.Nil(t, e.Delta)
			if i > 0 {
				assert.Greater(t, e.MatchID, entries[i-1].MatchID)
			}
		}
		assert.Equal(t, rating.Result{MatchID: f.m1.ID, PlayerA: f.a.ID, PlayerB: f.b.ID, ScoreA: 3, ScoreB: 1}, entries[0].Result())
	})

	require.NoError(t, store.Upsert(ctx, f.m1.ID, rating.Delta{A: 25, B: -25}))
	require.NoError(t, store.Upsert(ctx, f.m2.ID, rating.Delta{A: 4, B: -4}))

	t.Run("event with one unranked match stays pending", func(t *testing.T) {
		entries, err := store.Timeline(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		assert.False(t, entries[0].Pending)
		require.NotNil(t, entries[0].Delta)
		assert.Equal(t, rating.Delta{A: 25, B: -25}, *entries[0].Delta)

		assert.True(t, entries[1].Pending, "ranked match of an unranked event")
		require.NotNil(t, entries[1].Delta)
		assert.True(t, entries[2].Pending)
		assert.Nil(t, entries[2].Delta)
	})

	t.Run("upsert overwrites instead of duplicating", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, f.m2.ID, rating.Delta{A: 1, B: -1}))
		deltas, err := store.Deltas(ctx)
		require.NoError(t, err)
		assert.Len(t, deltas, 2)
		assert.Equal(t, rating.Delta{A: 1, B: -1}, deltas[f.m2.ID])
	})

	t.Run("upsert for an unknown match fails", func(t *testing.T) {
		err := store.Upsert(ctx, 9999, rating.Delta{A: 1, B: -1})
		assert.Error(t, err)
	})
}

func TestScores(t *testing.T) {
	store, ls, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()
	f := seed(t, ctx, ls)

	t.Run("empty ledger gives empty leaderboard", func(t *testing.T) {
		standings, err := store.Scores(ctx, ledger.ScoreQuery{})
		require.NoError(t, err)
		assert.Empty(t, standings)
	})

	require.NoError(t, store.Upsert(ctx, f.m1.ID, rating.Delta{A: 25, B: -25}))
	require.NoError(t, store.Upsert(ctx, f.m2.ID, rating.Delta{A: 4, B: -4}))
	require.NoError(t, store.Upsert(ctx, f.m3.ID, rating.Delta{A: -30, B: 30}))

	t.Run("sums both sides over every ranked match", func(t *testing.T) {
		standings, err := store.Scores(ctx, ledger.ScoreQuery{})
		require.NoError(t, err)
		require.Len(t, standings, 3)
		assert.Equal(t, ledger.Standing{ID: f.a.ID, Name: "A", Country: "SK", Score: 1500 + 25 - 4 + 30}, standings[0])
		assert.Equal(t, ledger.Standing{ID: f.b.ID, Name: "B", Country: "CZ", Score: 1500 - 25 + 4}, standings[1])
		assert.Equal(t, ledger.Standing{ID: f.c.ID, Name: "C", Country: "AT", Score: 1500 - 30}, standings[2])
	})

	t.Run("limits the sum to events up to as-of", func(t *testing.T) {
		standings, err := store.Scores(ctx, ledger.ScoreQuery{MaxEventID: f.e1.ID})
		require.NoError(t, err)
		require.Len(t, standings, 2)
		assert.Equal(t, 1525, standings[0].Score)
		assert.Equal(t, 1475, standings[1].Score)
	})

	t.Run("activity window drops players without recent events", func(t *testing.T) {
		standings, err := store.Scores(ctx, ledger.ScoreQuery{
			ActiveFrom: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			ActiveTo:   time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Len(t, standings, 3, "every player played in June")

		standings, err = store.Scores(ctx, ledger.ScoreQuery{
			ActiveFrom: time.Date(2023, time.October, 10, 0, 0, 0, 0, time.UTC),
			ActiveTo:   time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Len(t, standings, 2, "C only played in June")
		assert.Equal(t, f.a.ID, standings[0].ID)
		assert.Equal(t, f.b.ID, standings[1].ID)
		assert.Equal(t, 1500+25-4+30, standings[0].Score, "the window filters players, not deltas")
	})

	t.Run("player rating before a match", func(t *testing.T) {
		r, err := store.PlayerRating(ctx, f.a.ID, f.m3.ID)
		require.NoError(t, err)
		assert.Equal(t, 1500+25-4, r)

		r, err = store.PlayerRating(ctx, f.a.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 1500+25-4+30, r)

		r, err = store.PlayerRating(ctx, f.c.ID, f.m1.ID)
		require.NoError(t, err)
		assert.Equal(t, 1500, r)
	})

	t.Run("activity after the as-of event does not count", func(t *testing.T) {
		// Entered late but dated before Round 1.
		late, err := ls.CreateEvent(ctx, "Late entry", time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		_, err = ls.CreateMatch(ctx, league.NewMatch{EventID: late.ID, PlayerAID: f.b.ID, PlayerBID: f.c.ID, ScoreA: 2, ScoreB: 1})
		require.NoError(t, err)

		window := ledger.ScoreQuery{
			ActiveFrom: time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC),
			ActiveTo:   time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
		}
		standings, err := store.Scores(ctx, window)
		require.NoError(t, err)
		require.Len(t, standings, 2, "without as-of the late event counts")
		assert.Equal(t, f.b.ID, standings[0].ID)
		assert.Equal(t, f.c.ID, standings[1].ID)

		window.MaxEventID = f.e1.ID
		standings, err = store.Scores(ctx, window)
		require.NoError(t, err)
		assert.Empty(t, standings)
	})
}

func TestBackfillLease(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	ok, err := store.Claim(ctx, "server", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("holder can renew its own claim", func(t *testing.T) {
		ok, err := store.Claim(ctx, "server", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("a live claim keeps others out", func(t *testing.T) {
		ok, err := store.Claim(ctx, "importer", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("release by a non-holder is ignored", func(t *testing.T) {
		require.NoError(t, store.Release(ctx, "importer"))
		ok, err := store.Claim(ctx, "importer", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("released lease is free", func(t *testing.T) {
		require.NoError(t, store.Release(ctx, "server"))
		ok, err := store.Claim(ctx, "importer", -time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired claim can be taken over", func(t *testing.T) {
		ok, err := store.Claim(ctx, "server", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
