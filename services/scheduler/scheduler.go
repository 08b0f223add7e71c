// Package scheduler runs the periodic jobs of the API server.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
)

// RankRefresher recomputes and stores the leaderboard ranks. ranking.Service is one.
type RankRefresher interface {
	Refresh(ctx context.Context) error
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	ranks     RankRefresher
	interval  time.Duration
	timeout   time.Duration
	logger    core.Logger
}

// New returns a Scheduler refreshing ranks every interval. A run never overlaps the previous one.
func New(ranks RankRefresher, interval time.Duration, logger core.Logger) (*Scheduler, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(ranks, "ranks"),
		vala.IsNotNil(logger, "logger"),
		vala.GreaterThan(int(interval), 0, "interval"),
	).Check(); err != nil {
		return nil, err
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		ranks:     ranks,
		interval:  interval,
		timeout:   interval,
		logger:    logger,
	}, nil
}

// Start schedules every job and runs them in the background. The first run is immediate.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.refreshRanks); err != nil {
		return errors.Wrap(err, "scheduling rank refresh")
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop waits for the running jobs to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) refreshRanks() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.ranks.Refresh(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("refreshing ranks: %v", err), err)
		return
	}
	s.logger.Debug(fmt.Sprintf("ranks refreshed in %s", time.Since(start)))
}
