package processor

import (
	"errors"
	"time"

	"github.com/mauv0809/naseliga/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// ErrUnauthorized is returned when a non-privileged caller asks for a recompute.
var ErrUnauthorized = errors.New("not allowed to recompute ratings")

// Processor is the single writer of the rating delta ledger.
type Processor struct {
	store    Store
	counters Counters
	metrics  metrics.Metrics
	// run admits one backfill at a time in this process; the ledger lease
	// extends that to every process sharing the database.
	run       *semaphore.Weighted
	leasePoll time.Duration
}

// Options tune a single backfill run.
type Options struct {
	// DryRun computes every delta without writing any.
	DryRun bool
	// Rebuild re-ranks every match instead of only the unranked events.
	Rebuild bool
}

// Summary describes a finished backfill run.
type Summary struct {
	RunID     string        `json:"run_id"`
	DryRun    bool          `json:"dry_run"`
	Scanned   int           `json:"scanned"`
	Ranked    int           `json:"ranked"`
	Unchanged int           `json:"unchanged"`
	Duration  time.Duration `json:"duration"`
}
