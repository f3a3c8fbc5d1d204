package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	asOf    int64
	all     bool
	dryRun  bool
	rebuild bool
	before  int64
)

func init() {
	leaderboardCmd.Flags().Int64Var(&asOf, "as-of", 0, "Show the leaderboard as of this event id")
	leaderboardCmd.Flags().BoolVar(&all, "all", false, "Include players without recent matches")
	recomputeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute deltas without writing them")
	recomputeCmd.Flags().BoolVar(&rebuild, "rebuild", false, "Re-rank every match, not only unranked events")
	ratingCmd.Flags().Int64Var(&before, "before", 0, "Rating before this match id")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(unrankedCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(ratingCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", false)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", false)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Get lifetime backfill counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/stats", false)
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the players of the league",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/players", false)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List events with their matches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/events", false)
	},
}

var unrankedCmd = &cobra.Command{
	Use:   "unranked",
	Short: "List events waiting for the next recompute",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/events/unranked", false)
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if asOf > 0 {
			q.Set("as_of", strconv.FormatInt(asOf, 10))
		}
		if all {
			q.Set("all", "true")
		}
		return performRequest(http.MethodGet, withQuery("/leaderboard", q), false)
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rank every unranked match",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if dryRun {
			q.Set("dry_run", "true")
		}
		if rebuild {
			q.Set("rebuild", "true")
		}
		return performRequest(http.MethodPost, withQuery("/leaderboard/recompute", q), true)
	},
}

var ratingCmd = &cobra.Command{
	Use:   "rating <player-id>",
	Short: "Show a player's cumulative rating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid player id %q: %w", args[0], err)
		}
		q := url.Values{}
		if before > 0 {
			q.Set("before", strconv.FormatInt(before, 10))
		}
		return performRequest(http.MethodGet, withQuery(fmt.Sprintf("/players/%d/rating", id), q), false)
	},
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func performRequest(method, endpoint string, privileged bool) error {
	url := host + endpoint
	fmt.Printf("Making request to %s %s\n", method, url)

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if privileged {
		if token == "" {
			return fmt.Errorf("%s needs --token or ADMIN_TOKEN", endpoint)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
