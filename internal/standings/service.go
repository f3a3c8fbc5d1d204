package standings

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/naseliga/internal/ledger"
	"github.com/mauv0809/naseliga/internal/metrics"
)

// New creates a leaderboard Service whose activity window spans the given
// number of months.
func New(events EventStore, scores Scorer, metrics metrics.Metrics, activityMonths int) *Service {
	return &Service{
		events:  events,
		scores:  scores,
		metrics: metrics,
		months:  activityMonths,
		now:     time.Now,
	}
}

// Get returns the leaderboard, highest score first. Identical queries running
// at the same time share one aggregation. The shared aggregation is not tied
// to any single caller, so a caller that gives up only abandons its own wait.
func (s *Service) Get(ctx context.Context, q Query) ([]Entry, error) {
	key := fmt.Sprintf("%d/%t", q.AsOfEventID, q.IncludeInactive)
	flight := s.group.DoChan(key, func() (any, error) {
		return s.get(context.WithoutCancel(ctx), q)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.FromContext(ctx).Debug("Leaderboard query coalesced", "key", key)
		}
		entries := res.Val.([]Entry)
		return append(make([]Entry, 0, len(entries)), entries...), nil
	}
}

func (s *Service) get(ctx context.Context, q Query) ([]Entry, error) {
	sq := ledger.ScoreQuery{}
	end := s.now()
	if q.AsOfEventID != 0 {
		event, err := s.events.GetEvent(ctx, q.AsOfEventID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve as-of event %d: %w", q.AsOfEventID, err)
		}
		sq.MaxEventID = event.ID
		end = event.Date
	}
	if !q.IncludeInactive {
		sq.ActiveFrom = end.AddDate(0, -s.months, 0)
		sq.ActiveTo = end
	}

	entries, err := s.scores.Scores(ctx, sq)
	if err != nil {
		return nil, err
	}
	s.metrics.IncLeaderboardQueries()
	log.FromContext(ctx).Debug("Computed leaderboard", "asOf", q.AsOfEventID, "includeInactive", q.IncludeInactive, "players", len(entries))
	return entries, nil
}
