package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Timer calls fn every interval on its own goroutine. A stopped Timer can be
// started again.
type Timer struct {
	name      string
	interval  time.Duration
	immediate bool
	fn        func(context.Context)
	logger    *logrus.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewTimer creates a Timer. When immediate is set fn also runs as soon as the
// timer starts.
func NewTimer(name string, interval time.Duration, immediate bool, fn func(context.Context), logger *logrus.Logger) *Timer {
	return &Timer{
		name:      name,
		interval:  interval,
		immediate: immediate,
		fn:        fn,
		logger:    logger,
	}
}

func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}

	t.running = true
	t.stopCh = make(chan struct{})

	t.wg.Add(1)
	go t.run(ctx, t.stopCh)

	t.logger.WithFields(logrus.Fields{
		"timer":    t.name,
		"interval": t.interval,
	}).Debug("timer started")
}

// Stop halts the timer. A call in progress is not interrupted; Stop waits for
// it to return. Stopping a stopped timer does nothing.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) run(ctx context.Context, stopCh chan struct{}) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	if t.immediate {
		t.fn(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.WithField("timer", t.name).Debug("timer stopped: context cancelled")
			return
		case <-stopCh:
			t.logger.WithField("timer", t.name).Debug("timer stopped: stop signal received")
			return
		case <-ticker.C:
			t.fn(ctx)
		}
	}
}
