// Package store owns the current state.State. Actions are applied one at a time
// on a single goroutine, in the order they were dispatched, and every resulting
// state is delivered to the registered subscribers before the next action runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/metrics"
	"github.com/danpilch/transitpal/internal/report"
	"github.com/danpilch/transitpal/internal/state"
	"github.com/danpilch/transitpal/internal/transit"
)

// ErrStopped is returned by Flush once the store has been stopped.
var ErrStopped = errors.New("store stopped")

// Subscriber observes every state the store emits. NewState runs on the store
// goroutine and must not block; it may call Dispatch. Subscribers are compared by
// identity, so implementations should be pointer types.
type Subscriber interface {
	NewState(state.State)
}

type opKind int

const (
	opDispatch opKind = iota
	opSubscribe
	opUnsubscribe
	opFlush
)

type op struct {
	kind   opKind
	action state.Action
	sub    Subscriber
	done   chan struct{}
}

type Store struct {
	logger *logrus.Logger

	current atomic.Pointer[state.State]

	mu    sync.Mutex
	queue []op
	wake  chan struct{}

	// subs is only touched by the run goroutine.
	subs []Subscriber

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(initial state.State, logger *logrus.Logger) *Store {
	s := &Store{
		logger: logger,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	s.current.Store(&initial)
	observe(initial)
	return s
}

func (s *Store) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop halts the store goroutine and waits for it to exit. Operations still
// queued are discarded. Calling Stop more than once is safe.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// State returns the most recently published state.
func (s *Store) State() state.State {
	return *s.current.Load()
}

// Dispatch queues a for the store goroutine and returns immediately.
func (s *Store) Dispatch(a state.Action) {
	if a == nil {
		return
	}
	s.enqueue(op{kind: opDispatch, action: a})
}

// Subscribe registers sub. It receives the state produced by every action
// dispatched after this call; there is no replay of the current state.
func (s *Store) Subscribe(sub Subscriber) {
	s.enqueue(op{kind: opSubscribe, sub: sub})
}

func (s *Store) Unsubscribe(sub Subscriber) {
	s.enqueue(op{kind: opUnsubscribe, sub: sub})
}

// Flush blocks until every operation queued before it has been applied.
func (s *Store) Flush(ctx context.Context) error {
	done := make(chan struct{})
	s.enqueue(op{kind: opFlush, done: done})

	select {
	case <-done:
		return nil
	case <-s.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) enqueue(o op) {
	s.mu.Lock()
	s.queue = append(s.queue, o)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) drain() []op {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.queue
	s.queue = nil
	return ops
}

func (s *Store) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("store stopped: context cancelled")
			return
		case <-s.stopCh:
			s.logger.Info("store stopped: stop signal received")
			return
		case <-s.wake:
		}

		for ops := s.drain(); len(ops) > 0; ops = s.drain() {
			for _, o := range ops {
				select {
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				default:
				}
				s.apply(o)
			}
		}
	}
}

func (s *Store) apply(o op) {
	switch o.kind {
	case opDispatch:
		next := state.Reduce(s.State(), o.action)
		s.current.Store(&next)
		metrics.ActionsDispatched.WithLabelValues(o.action.Name()).Inc()
		observe(next)

		s.logger.WithFields(logrus.Fields{
			"action": o.action.Name(),
			"status": next.DisplayStatus(),
		}).Debug("action applied")

		for _, sub := range s.subs {
			s.deliver(sub, next)
		}
	case opSubscribe:
		if !slices.Contains(s.subs, o.sub) {
			s.subs = append(s.subs, o.sub)
		}
	case opUnsubscribe:
		s.subs = slices.DeleteFunc(s.subs, func(other Subscriber) bool {
			return other == o.sub
		})
	case opFlush:
		close(o.done)
	}
}

func (s *Store) deliver(sub Subscriber, st state.State) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SubscriberPanics.Inc()
			s.logger.WithFields(logrus.Fields{
				"subscriber": fmt.Sprintf("%T", sub),
				"panic":      r,
			}).Error("subscriber panicked")
			report.RecoveredPanic("store", r)
		}
	}()
	sub.NewState(st)
}

var statuses = []state.RefreshStatus{
	state.Unknown, state.Success, state.Failure, state.FullFailure, state.FailureNoShow,
}

func observe(st state.State) {
	overall := st.OverallStatus()
	for _, rs := range statuses {
		v := 0.0
		if rs == overall {
			v = 1
		}
		metrics.OverallStatus.WithLabelValues(rs.String()).Set(v)
	}

	metrics.Favorites.WithLabelValues(string(transit.KindTrain)).Set(float64(len(transit.TrainStations(st.Favorites))))
	metrics.Favorites.WithLabelValues(string(transit.KindBus)).Set(float64(len(transit.BusKeys(st.Favorites))))
	metrics.Favorites.WithLabelValues(string(transit.KindBike)).Set(float64(len(transit.BikeStations(st.Favorites))))
}
