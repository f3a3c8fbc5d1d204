package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/naseliga/internal/config"
	"github.com/mauv0809/naseliga/internal/database"
	"github.com/mauv0809/naseliga/internal/league"
	"github.com/mauv0809/naseliga/internal/ledger"
	"github.com/mauv0809/naseliga/internal/metrics"
	"github.com/mauv0809/naseliga/internal/processor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	sheetPath string
	daysAgo   int
	title     string
	recompute bool
)

var rootCmd = &cobra.Command{
	Use:   "naseliga-importer",
	Short: "Import squash score sheets into the league database",
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Create an event from a score sheet",
	Long: `Reads "playerA playerB scoreA scoreB" lines, creates an event dated
--days-ago days back, creates unknown players by name and records the matches
in file order. With --recompute the new matches are ranked right away.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scores, err := readSheet()
		if err != nil {
			return err
		}
		return runImport(cmd.Context(), scores)
	},
}

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Print a score sheet as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		scores, err := readSheet()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(Sheet{Date: eventDate(time.Now(), daysAgo).Format(time.DateOnly), Matches: scores})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sheetPath, "file", "f", "-", "Score sheet to read, - for stdin")
	rootCmd.PersistentFlags().IntVarP(&daysAgo, "days-ago", "d", 0, "Date the event this many days back")
	importCmd.Flags().StringVar(&title, "title", "", "Event title, defaults to the date")
	importCmd.Flags().BoolVar(&recompute, "recompute", false, "Run the backfill job after importing")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(formatCmd)
}

func readSheet() ([]Score, error) {
	var r io.Reader = os.Stdin
	if sheetPath != "-" {
		f, err := os.Open(sheetPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open score sheet: %w", err)
		}
		defer f.Close()
		r = f
	}
	scores, err := ParseSheet(r)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("score sheet %s holds no matches", sheetPath)
	}
	return scores, nil
}

func runImport(ctx context.Context, scores []Score) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, teardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	if err != nil {
		return err
	}
	defer teardown()

	leagueStore := league.New(db)
	event, err := importSheet(ctx, leagueStore, scores, title, eventDate(time.Now(), daysAgo))
	if err != nil {
		return err
	}
	log.Info("Imported score sheet", "eventID", event.ID, "date", event.Date.Format(time.DateOnly), "matches", len(scores))

	if !recompute {
		return nil
	}
	ledgerStore := ledger.New(db)
	proc := processor.New(ledgerStore, metrics.New(db), metrics.NewService(prometheus.NewRegistry()))
	summary, err := proc.Backfill(ctx, processor.Options{})
	if err != nil {
		return err
	}
	log.Info("Ranked imported matches", "ranked", summary.Ranked, "runID", summary.RunID)
	return nil
}

// importSheet creates the event, its players and its matches in sheet order.
func importSheet(ctx context.Context, store league.Store, scores []Score, title string, date time.Time) (*league.Event, error) {
	if title == "" {
		title = date.Format(time.DateOnly)
	}
	event, err := store.CreateEvent(ctx, title, date)
	if err != nil {
		return nil, err
	}
	for i, s := range scores {
		a, err := store.FindOrCreatePlayer(ctx, s.PlayerA)
		if err != nil {
			return nil, err
		}
		b, err := store.FindOrCreatePlayer(ctx, s.PlayerB)
		if err != nil {
			return nil, err
		}
		if _, err := store.CreateMatch(ctx, league.NewMatch{
			EventID:   event.ID,
			PlayerAID: a.ID,
			PlayerBID: b.ID,
			ScoreA:    s.ScoreA,
			ScoreB:    s.ScoreB,
		}); err != nil {
			return nil, fmt.Errorf("match %d (%s vs %s): %w", i+1, s.PlayerA, s.PlayerB, err)
		}
	}
	return event, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'", err)
		os.Exit(1)
	}
}
