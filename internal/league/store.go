package league

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/naseliga/internal/rating"
)

// New creates a new league Store.
func New(db *sql.DB) Store {
	return &store{
		db: db,
	}
}

func (s *store) ListPlayers(ctx context.Context) ([]Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, country FROM players ORDER BY name")
	if err != nil {
		log.Error("Failed to query all players", "error", err)
		return nil, err
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Country); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *store) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayer(ctx, "id = ?", id)
}

func (s *store) getPlayer(ctx context.Context, where string, arg any) (*Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx, "SELECT id, name, country FROM players WHERE "+where, arg).Scan(&p.ID, &p.Name, &p.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: player %v", ErrNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (s *store) CreatePlayer(ctx context.Context, name, country string) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "INSERT INTO players (name, country) VALUES (?, ?)", name, country)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a player named %q already exists", ErrConflict, name)
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	log.Info("Created player", "playerID", id, "name", name, "country", country)
	return &Player{ID: id, Name: name, Country: country}, nil
}

// FindOrCreatePlayer is used by bulk imports where players are named, not numbered.
func (s *store) FindOrCreatePlayer(ctx context.Context, name string) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "INSERT INTO players (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name); err != nil {
		return nil, fmt.Errorf("failed to ensure player %q: %w", name, err)
	}
	return s.getPlayer(ctx, "name = ?", name)
}

func (s *store) UpdatePlayer(ctx context.Context, player Player) (*Player, error) {
	player.Name = strings.TrimSpace(player.Name)
	if player.Name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE players SET name = ?, country = ? WHERE id = ?", player.Name, player.Country, player.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: another player named %q already exists", ErrConflict, player.Name)
		}
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	if err := expectOneRow(res, "player", player.ID); err != nil {
		return nil, err
	}
	log.Info("Updated player", "playerID", player.ID, "name", player.Name, "country", player.Country)
	return &player, nil
}

func (s *store) DeletePlayer(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM players WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: player %d has recorded matches", ErrConflict, id)
		}
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if err := expectOneRow(res, "player", id); err != nil {
		return err
	}
	log.Info("Deleted player", "playerID", id)
	return nil
}

func (s *store) ListEvents(ctx context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEvents(ctx, "", "DESC")
}

func (s *store) ListUnrankedEvents(ctx context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEvents(ctx, `
		WHERE EXISTS (
			SELECT 1 FROM matches um
			LEFT JOIN rating_deltas ur ON ur.match_id = um.id
			WHERE um.event_id = e.id AND ur.match_id IS NULL
		)`, "ASC")
}

func (s *store) GetEvent(ctx context.Context, id int64) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events, err := s.listEvents(ctx, "WHERE e.id = ?", "ASC", id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	return &events[0], nil
}

// listEvents loads the selected events and attaches their matches, ordered
// by match id.
func (s *store) listEvents(ctx context.Context, where string, order string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT e.id, e.title, e.date FROM events e "+where+" ORDER BY e.id "+order, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events := []Event{}
	index := make(map[int64]int)
	for rows.Next() {
		var e Event
		var date int64
		if err := rows.Scan(&e.ID, &e.Title, &date); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Date = time.Unix(date, 0).UTC()
		e.Matches = []Match{}
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Close before the next query: a local database runs on a single connection.
	rows.Close()
	if len(events) == 0 {
		return events, nil
	}

	matches, err := s.queryMatches(ctx, "WHERE m.event_id IN (SELECT e.id FROM events e "+where+")", args...)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if i, ok := index[m.EventID]; ok {
			events[i].Matches = append(events[i].Matches, m)
		}
	}
	return events, nil
}

func (s *store) queryMatches(ctx context.Context, where string, args ...any) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.event_id,
			pa.id, pa.name, pa.country,
			pb.id, pb.name, pb.country,
			m.score_a, m.score_b, r.delta_a, r.delta_b
		FROM matches m
		JOIN players pa ON pa.id = m.player_a
		JOIN players pb ON pb.id = m.player_b
		LEFT JOIN rating_deltas r ON r.match_id = m.id
		`+where+`
		ORDER BY m.id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// scanMatch is a helper function to scan a single match row.
func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var m Match
	var deltaA, deltaB sql.NullInt64
	err := scanner.Scan(
		&m.ID, &m.EventID,
		&m.PlayerA.ID, &m.PlayerA.Name, &m.PlayerA.Country,
		&m.PlayerB.ID, &m.PlayerB.Name, &m.PlayerB.Country,
		&m.ScoreA, &m.ScoreB, &deltaA, &deltaB,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan match row: %w", err)
	}
	if deltaA.Valid && deltaB.Valid {
		m.Ranking = &rating.Delta{A: int(deltaA.Int64), B: int(deltaB.Int64)}
	}
	return &m, nil
}

func (s *store) CreateEvent(ctx context.Context, title string, date time.Time) (*Event, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: event date is required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "INSERT INTO events (title, date) VALUES (?, ?)", title, date.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	log.Info("Created event", "eventID", id, "title", title, "date", date.Format(time.DateOnly))
	return &Event{ID: id, Title: title, Date: time.Unix(date.Unix(), 0).UTC(), Matches: []Match{}}, nil
}

func (s *store) DeleteEvent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: event %d still contains matches", ErrConflict, id)
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if err := expectOneRow(res, "event", id); err != nil {
		return err
	}
	log.Info("Deleted event", "eventID", id)
	return nil
}

func (s *store) CreateMatch(ctx context.Context, nm NewMatch) (*Match, error) {
	if nm.ScoreA < 0 || nm.ScoreB < 0 {
		return nil, fmt.Errorf("%w: scores must not be negative", ErrInvalid)
	}
	if nm.PlayerAID == nm.PlayerBID {
		return nil, fmt.Errorf("%w: a player cannot play against themselves", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO matches (event_id, player_a, player_b, score_a, score_b) VALUES (?, ?, ?, ?, ?)",
		nm.EventID, nm.PlayerAID, nm.PlayerBID, nm.ScoreA, nm.ScoreB)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: event %d or one of players %d, %d", ErrNotFound, nm.EventID, nm.PlayerAID, nm.PlayerBID)
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	log.Info("Recorded match", "matchID", id, "eventID", nm.EventID, "playerA", nm.PlayerAID, "playerB", nm.PlayerBID, "score", fmt.Sprintf("%d:%d", nm.ScoreA, nm.ScoreB))

	matches, err := s.queryMatches(ctx, "WHERE m.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	return &matches[0], nil
}

func (s *store) DeleteMatch(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: match %d is already ranked", ErrConflict, id)
		}
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if err := expectOneRow(res, "match", id); err != nil {
		return err
	}
	log.Info("Deleted match", "matchID", id)
	return nil
}

func expectOneRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	return nil
}
