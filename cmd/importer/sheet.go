package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Score is one line of a score sheet.
type Score struct {
	PlayerA string `json:"player_a"`
	PlayerB string `json:"player_b"`
	ScoreA  int    `json:"score_a"`
	ScoreB  int    `json:"score_b"`
}

// Sheet is a whole playing session as printed by the format command.
type Sheet struct {
	Date    string  `json:"date"`
	Matches []Score `json:"matches"`
}

// ParseSheet reads "playerA playerB scoreA scoreB" lines. Blank lines and
// lines starting with # are skipped.
func ParseSheet(r io.Reader) ([]Score, error) {
	var scores []Score
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		scoreA, err := parseRounds(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		scoreB, err := parseRounds(fields[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if fields[0] == fields[1] {
			return nil, fmt.Errorf("line %d: %s cannot play against themselves", lineNo, fields[0])
		}
		scores = append(scores, Score{PlayerA: fields[0], PlayerB: fields[1], ScoreA: scoreA, ScoreB: scoreB})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read score sheet: %w", err)
	}
	return scores, nil
}

func parseRounds(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid score %q", s)
	}
	return n, nil
}

// eventDate returns midnight UTC of the day daysAgo days before now.
func eventDate(now time.Time, daysAgo int) time.Time {
	y, m, d := now.AddDate(0, 0, -daysAgo).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
