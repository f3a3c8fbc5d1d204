// Package rating turns match results into Elo-style rating movements.
//
// A player's rating is never stored: it is Baseline plus the sum of the
// player's deltas over every ranked match, folded in match id order.
package rating

import "math"

// Baseline is the rating of a player with no ranked matches.
const Baseline = 1500

// Delta is the signed rating change of both sides of one match.
type Delta struct {
	A int `json:"delta_a"`
	B int `json:"delta_b"`
}

// Expected returns the share of rounds side A is expected to win against B.
func Expected(ratingA, ratingB float64) float64 {
	qa := math.Pow(10, ratingA/400)
	qb := math.Pow(10, ratingB/400)
	return qa / (qa + qb)
}

// RawDelta returns the unrounded rating changes for a match in which A won
// roundsWonByA of totalRounds rounds. The two values always sum to zero.
func RawDelta(ratingA, ratingB float64, roundsWonByA, totalRounds int) (float64, float64) {
	if totalRounds == 0 {
		return 0, 0
	}
	expectedAOnB := Expected(ratingA, ratingB)
	expectedBOnA := 1 - expectedAOnB

	percentWinA := 100 * float64(roundsWonByA) / float64(totalRounds)
	percentWinB := 100 - percentWinA

	return percentWinA - expectedAOnB*100, percentWinB - expectedBOnA*100
}

// ComputeDelta is the rank updater: it rounds each side of RawDelta to the
// nearest integer, halves away from zero. A match with no rounds played
// moves nothing.
func ComputeDelta(ratingA, ratingB float64, roundsWonByA, totalRounds int) Delta {
	rawA, rawB := RawDelta(ratingA, ratingB, roundsWonByA, totalRounds)
	return Delta{
		A: int(math.Round(rawA)),
		B: int(math.Round(rawB)),
	}
}
