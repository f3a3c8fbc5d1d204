package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/naseliga/internal/rating"
)

// New creates a new ledger Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) Timeline(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.event_id, m.player_a, m.player_b, m.score_a, m.score_b, r.delta_a, r.delta_b,
			m.event_id IN (
				SELECT um.event_id FROM matches um
				LEFT JOIN rating_deltas ur ON ur.match_id = um.id
				WHERE ur.match_id IS NULL
			) AS pending
		FROM matches m
		LEFT JOIN rating_deltas r ON r.match_id = m.id
		ORDER BY m.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var deltaA, deltaB sql.NullInt64
		if err := rows.Scan(&e.MatchID, &e.EventID, &e.PlayerA, &e.PlayerB, &e.ScoreA, &e.ScoreB, &deltaA, &deltaB, &e.Pending); err != nil {
			return nil, fmt.Errorf("failed to scan timeline row: %w", err)
		}
		if deltaA.Valid && deltaB.Valid {
			e.Delta = &rating.Delta{A: int(deltaA.Int64), B: int(deltaB.Int64)}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Upsert writes both sides of a delta in a single statement, so a match is
// never half ranked.
func (s *store) Upsert(ctx context.Context, matchID int64, delta rating.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rating_deltas (match_id, delta_a, delta_b) VALUES (?, ?, ?)
		ON CONFLICT(match_id) DO UPDATE SET
			delta_a = excluded.delta_a,
			delta_b = excluded.delta_b;
	`, matchID, delta.A, delta.B)
	if err != nil {
		return fmt.Errorf("failed to upsert rating delta for match %d: %w", matchID, err)
	}
	log.FromContext(ctx).Debug("Upserted rating delta", "matchID", matchID, "deltaA", delta.A, "deltaB", delta.B)
	return nil
}

func (s *store) Deltas(ctx context.Context) (map[int64]rating.Delta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT match_id, delta_a, delta_b FROM rating_deltas")
	if err != nil {
		return nil, fmt.Errorf("failed to query rating deltas: %w", err)
	}
	defer rows.Close()

	deltas := make(map[int64]rating.Delta)
	for rows.Next() {
		var matchID int64
		var d rating.Delta
		if err := rows.Scan(&matchID, &d.A, &d.B); err != nil {
			return nil, fmt.Errorf("failed to scan rating delta: %w", err)
		}
		deltas[matchID] = d
	}
	return deltas, rows.Err()
}

func (s *store) Scores(ctx context.Context, q ScoreQuery) ([]Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		WITH sides AS (
			SELECT m.player_a AS player_id, r.delta_a AS delta, m.event_id AS event_id
			FROM rating_deltas r
			JOIN matches m ON m.id = r.match_id
			UNION ALL
			SELECT m.player_b, r.delta_b, m.event_id
			FROM rating_deltas r
			JOIN matches m ON m.id = r.match_id
		)
		SELECT p.id, p.name, p.country, ? + SUM(s.delta) AS score
		FROM sides s
		JOIN players p ON p.id = s.player_id`
	args := []any{rating.Baseline}

	var conds []string
	if q.MaxEventID > 0 {
		conds = append(conds, "s.event_id <= ?")
		args = append(args, q.MaxEventID)
	}
	if q.activityFilter() {
		// Activity is about participation, so unranked matches count too.
		// Events after the as-of event never count, whatever their date.
		activity := `EXISTS (
			SELECT 1 FROM matches am
			JOIN events ae ON ae.id = am.event_id
			WHERE (am.player_a = p.id OR am.player_b = p.id)
				AND ae.date >= ? AND ae.date <= ?`
		args = append(args, q.ActiveFrom.Unix(), q.ActiveTo.Unix())
		if q.MaxEventID > 0 {
			activity += "\n\t\t\t\tAND ae.id <= ?"
			args = append(args, q.MaxEventID)
		}
		conds = append(conds, activity+"\n\t\t)")
	}
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += `
		GROUP BY p.id, p.name, p.country
		ORDER BY score DESC, p.name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	standings := []Standing{}
	for rows.Next() {
		var st Standing
		if err := rows.Scan(&st.ID, &st.Name, &st.Country, &st.Score); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		standings = append(standings, st)
	}
	return standings, rows.Err()
}

func (s *store) PlayerRating(ctx context.Context, playerID int64, beforeMatchID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if beforeMatchID <= 0 {
		beforeMatchID = math.MaxInt64
	}
	var sum int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(
			CASE WHEN m.player_a = ? THEN r.delta_a ELSE 0 END +
			CASE WHEN m.player_b = ? THEN r.delta_b ELSE 0 END
		), 0)
		FROM rating_deltas r
		JOIN matches m ON m.id = r.match_id
		WHERE (m.player_a = ? OR m.player_b = ?) AND m.id < ?
	`, playerID, playerID, playerID, playerID, beforeMatchID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum deltas of player %d: %w", playerID, err)
	}
	return rating.Baseline + sum, nil
}

// Claim is a single upsert, so two processes racing for an expired lease
// cannot both win it.
func (s *store) Claim(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backfill_lease (id, holder, expires_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE backfill_lease.expires_at <= ? OR backfill_lease.holder = excluded.holder;
	`, holder, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to claim backfill lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read backfill lease claim: %w", err)
	}
	return n == 1, nil
}

func (s *store) Release(ctx context.Context, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM backfill_lease WHERE holder = ?", holder); err != nil {
		return fmt.Errorf("failed to release backfill lease: %w", err)
	}
	return nil
}
