// Package retention purges completed sessions once they are older than the
// configured maximum age.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/scrumkit/scrumkit/internal/config"
	"github.com/scrumkit/scrumkit/internal/models"
	"github.com/scrumkit/scrumkit/internal/store"
)

// Store is the part of the store the sweeper needs.
type Store interface {
	ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Sweeper deletes completed sessions whose completion time is older than
// MaxAge, on a cron schedule or on demand.
type Sweeper struct {
	store    Store
	schedule cron.Schedule // nil when scheduled sweeps are disabled
	expr     string
	maxAge   time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New returns a Sweeper for cfg. An empty schedule leaves only Sweep usable.
func New(st Store, cfg config.RetentionConfig, logger *slog.Logger) (*Sweeper, error) {
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("retention: max age must be positive")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Sweeper{
		store:  st,
		expr:   cfg.Schedule,
		maxAge: cfg.MaxAge,
		log:    logger,
		now:    time.Now,
	}
	if cfg.Schedule != "" {
		sched, err := cronParser.Parse(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("retention: schedule %q: %w", cfg.Schedule, err)
		}
		s.schedule = sched
	}
	return s, nil
}

// Enabled reports whether Run sweeps on a schedule.
func (s *Sweeper) Enabled() bool {
	return s.schedule != nil
}

// Sweep deletes every expired session and returns how many were removed.
// A session deleted concurrently by someone else is not an error.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)
	expired, err := s.store.ListCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention: %w", err)
	}

	deleted := 0
	for _, sess := range expired {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := s.store.DeleteSession(ctx, sess.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return deleted, fmt.Errorf("retention: delete session %s: %w", sess.ID, err)
		}
		deleted++
		s.log.Info("expired session deleted", "session", sess.ID, "name", sess.Name, "completed_at", sess.CompletedAt)
	}
	return deleted, nil
}

// Run sweeps on the schedule until ctx is cancelled. It returns
// immediately when no schedule is configured. Failed sweeps are logged and
// retried at the next fire time.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.schedule == nil {
		return nil
	}
	s.log.Info("retention sweeper started", "schedule", s.expr, "max_age", s.maxAge)

	timer := time.NewTimer(untilNext(s.schedule, s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			n, err := s.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Error("retention sweep failed", "error", err)
			} else if n > 0 {
				s.log.Info("retention sweep finished", "deleted", n)
			}
			timer.Reset(untilNext(s.schedule, s.now()))
		}
	}
}
