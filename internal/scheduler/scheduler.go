package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/state"
)

// Refresher runs refresh cycles.
type Refresher interface {
	Refresh(ctx context.Context)
	RefreshRoutes(ctx context.Context)
	CancelInFlight()
}

// Dispatcher is the part of the store the scheduler needs.
type Dispatcher interface {
	Dispatch(state.Action)
}

type Intervals struct {
	Refresh time.Duration
	Elapsed time.Duration
	Routes  time.Duration
}

// Scheduler drives the periodic work: the data refresh, which can be paused,
// the elapsed-time tick and the bus route catalog refresh.
type Scheduler struct {
	refresher Refresher
	store     Dispatcher
	logger    *logrus.Logger
	now       func() time.Time

	refresh *Timer
	elapsed *Timer
	routes  *Timer
}

func NewScheduler(intervals Intervals, refresher Refresher, store Dispatcher, logger *logrus.Logger) *Scheduler {
	s := &Scheduler{
		refresher: refresher,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}

	s.refresh = NewTimer("refresh", intervals.Refresh, true, refresher.Refresh, logger)
	s.elapsed = NewTimer("elapsed", intervals.Elapsed, false, s.tick, logger)
	s.routes = NewTimer("routes", intervals.Routes, true, refresher.RefreshRoutes, logger)

	return s
}

// Start begins the elapsed tick and the route refresh, then resumes data
// refreshes.
func (s *Scheduler) Start(ctx context.Context) {
	s.elapsed.Start(ctx)
	s.routes.Start(ctx)
	s.Resume(ctx)
}

// Resume starts the data refresh timer. The first refresh runs immediately.
func (s *Scheduler) Resume(ctx context.Context) {
	if s.refresh.Running() {
		return
	}
	s.logger.Info("resuming data refresh")
	s.refresh.Start(ctx)
}

// Pause stops the data refresh timer. Cycles already running finish without
// touching the state.
func (s *Scheduler) Pause() {
	s.refresher.CancelInFlight()
	if !s.refresh.Running() {
		return
	}
	s.logger.Info("pausing data refresh")
	s.refresh.Stop()
}

func (s *Scheduler) Paused() bool {
	return !s.refresh.Running()
}

func (s *Scheduler) Stop() {
	s.refresher.CancelInFlight()
	s.refresh.Stop()
	s.elapsed.Stop()
	s.routes.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick(context.Context) {
	s.store.Dispatch(state.ElapsedTicked{At: s.now()})
}
