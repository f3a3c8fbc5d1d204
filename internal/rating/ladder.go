package rating

import (
	"errors"
	"fmt"
)

// ErrOutOfOrder is returned when a match is folded at or before a match the
// ladder has already seen.
var ErrOutOfOrder = errors.New("match out of chronological order")

// Result is the part of a match the ladder needs.
type Result struct {
	MatchID int64
	PlayerA int64
	PlayerB int64
	ScoreA  int
	ScoreB  int
}

// Ladder carries every player's running rating through an ordered scan of
// match results. It is not safe for concurrent use.
type Ladder struct {
	totals map[int64]int
	last   int64
}

// NewLadder returns a ladder on which every player sits at Baseline.
func NewLadder() *Ladder {
	return &Ladder{totals: make(map[int64]int)}
}

// Rating returns the player's cumulative rating before the next match.
func (l *Ladder) Rating(playerID int64) int {
	return Baseline + l.totals[playerID]
}

// LastMatchID returns the id of the last folded match, zero if none.
func (l *Ladder) LastMatchID() int64 {
	return l.last
}

// Apply folds an already known delta into the running totals.
func (l *Ladder) Apply(r Result, d Delta) error {
	if r.MatchID <= l.last {
		return fmt.Errorf("%w: match %d after match %d", ErrOutOfOrder, r.MatchID, l.last)
	}
	l.totals[r.PlayerA] += d.A
	l.totals[r.PlayerB] += d.B
	l.last = r.MatchID
	return nil
}

// Rank computes the delta of r from the current ratings and folds it in.
func (l *Ladder) Rank(r Result) (Delta, error) {
	if r.MatchID <= l.last {
		return Delta{}, fmt.Errorf("%w: match %d after match %d", ErrOutOfOrder, r.MatchID, l.last)
	}
	d := ComputeDelta(float64(l.Rating(r.PlayerA)), float64(l.Rating(r.PlayerB)), r.ScoreA, r.ScoreA+r.ScoreB)
	if err := l.Apply(r, d); err != nil {
		return Delta{}, err
	}
	return d, nil
}
