package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/naseliga/internal/metrics"
	"github.com/mauv0809/naseliga/internal/rating"
	"golang.org/x/sync/semaphore"
)

// leaseTTL bounds how long a crashed process can block other backfills.
const leaseTTL = 10 * time.Minute

// New creates a new Processor.
func New(store Store, counters Counters, metrics metrics.Metrics) *Processor {
	return &Processor{
		store:     store,
		counters:  counters,
		metrics:   metrics,
		run:       semaphore.NewWeighted(1),
		leasePoll: time.Second,
	}
}

// Recompute brings the ledger up to date on behalf of a caller whose
// privilege has already been decided.
func (p *Processor) Recompute(ctx context.Context, privileged bool, opts Options) (Summary, error) {
	if !privileged {
		log.FromContext(ctx).Warn("Rejected recompute from a non-privileged caller")
		return Summary{}, ErrUnauthorized
	}
	return p.Backfill(ctx, opts)
}

// Backfill ranks the matches of every unranked event. Runs are serialized:
// a second caller waits for the first to finish or for its context to end.
func (p *Processor) Backfill(ctx context.Context, opts Options) (Summary, error) {
	if err := p.run.Acquire(ctx, 1); err != nil {
		return Summary{}, fmt.Errorf("failed waiting for running backfill: %w", err)
	}
	defer p.run.Release(1)

	summary := Summary{RunID: uuid.NewString(), DryRun: opts.DryRun}
	logger := log.FromContext(ctx).With("runID", summary.RunID)
	ctx = log.WithContext(ctx, logger)
	if err := p.claim(ctx, summary.RunID); err != nil {
		return Summary{}, fmt.Errorf("failed waiting for running backfill: %w", err)
	}
	defer p.release(ctx, summary.RunID)

	start := time.Now()
	logger.Info("Starting backfill", "dryRun", opts.DryRun, "rebuild", opts.Rebuild)

	err := p.backfill(ctx, opts, &summary)
	summary.Duration = time.Since(start)
	p.metrics.ObserveBackfillDuration(summary.Duration.Seconds())
	if err != nil {
		p.metrics.IncBackfillFailures()
		logger.Error("Backfill failed", "error", err, "ranked", summary.Ranked)
		return summary, err
	}

	p.metrics.IncBackfillRuns()
	if !opts.DryRun {
		p.metrics.AddMatchesRanked(summary.Ranked)
		p.count(ctx, metrics.KeyBackfillRuns, 1)
		p.count(ctx, metrics.KeyMatchesRanked, summary.Ranked)
	}
	logger.Info("Backfill finished", "scanned", summary.Scanned, "ranked", summary.Ranked,
		"unchanged", summary.Unchanged, "duration", summary.Duration)
	return summary, nil
}

// backfill folds the whole log once, in match id order. Matches outside the
// pending events contribute their stored delta; the others are ranked against
// the running totals and written before the next match is looked at.
func (p *Processor) backfill(ctx context.Context, opts Options, summary *Summary) error {
	entries, err := p.store.Timeline(ctx)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx)
	ladder := rating.NewLadder()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Scanned++

		if e.Delta != nil && !e.Pending && !opts.Rebuild {
			if err := ladder.Apply(e.Result(), *e.Delta); err != nil {
				return err
			}
			continue
		}

		delta, err := ladder.Rank(e.Result())
		if err != nil {
			return err
		}
		if e.Delta != nil && *e.Delta == delta {
			summary.Unchanged++
			continue
		}
		logger.Debug("Ranked match", "matchID", e.MatchID, "deltaA", delta.A, "deltaB", delta.B)
		if !opts.DryRun {
			if err := p.store.Upsert(ctx, e.MatchID, delta); err != nil {
				return err
			}
		}
		summary.Ranked++
	}
	return nil
}

// claim polls for the ledger lease until it is free or ctx ends.
func (p *Processor) claim(ctx context.Context, holder string) error {
	ticker := time.NewTicker(p.leasePoll)
	defer ticker.Stop()
	for {
		ok, err := p.store.Claim(ctx, holder, leaseTTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		log.FromContext(ctx).Debug("Backfill lease held by another process, waiting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Processor) release(ctx context.Context, holder string) {
	if err := p.store.Release(context.WithoutCancel(ctx), holder); err != nil {
		log.FromContext(ctx).Error("Failed to release backfill lease", "error", err)
	}
}

func (p *Processor) count(ctx context.Context, key string, n int) {
	if n == 0 {
		return
	}
	if err := p.counters.Add(ctx, key, n); err != nil {
		log.FromContext(ctx).Error("Failed to persist counter", "key", key, "error", err)
	}
}
