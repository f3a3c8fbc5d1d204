package league

import (
	"database/sql"
	"sync"
	"time"

	"github.com/mauv0809/naseliga/internal/rating"
)

// store handles all database operations for players, events and matches.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Player is a league member.
type Player struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Event is a playing session. Its ID defines chronological order.
type Event struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Date    time.Time `json:"date"`
	Matches []Match   `json:"matches"`
}

// Match is a single result between two players within an event.
type Match struct {
	ID      int64  `json:"id"`
	EventID int64  `json:"event_id"`
	PlayerA Player `json:"player_a"`
	PlayerB Player `json:"player_b"`
	ScoreA  int    `json:"score_a"`
	ScoreB  int    `json:"score_b"`
	// Ranking is nil while the match is unranked.
	Ranking *rating.Delta `json:"ranking,omitempty"`
}

// Ranked reports whether a rating delta has been persisted for the match.
func (m Match) Ranked() bool {
	return m.Ranking != nil
}

// NewMatch carries the fields needed to record a match.
type NewMatch struct {
	EventID   int64 `json:"event_id"`
	PlayerAID int64 `json:"player_a_id"`
	PlayerBID int64 `json:"player_b_id"`
	ScoreA    int   `json:"score_a"`
	ScoreB    int   `json:"score_b"`
}
