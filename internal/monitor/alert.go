package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/metrics"
	"github.com/danpilch/transitpal/internal/report"
	"github.com/danpilch/transitpal/internal/state"
)

// Alerter delivers push notifications.
type Alerter interface {
	SendFullFailure(message string) error
	SendRecovered(downFor time.Duration) error
}

type alert struct {
	kind    string
	message string
	downFor time.Duration
}

// AlertMonitor pushes a notification when every source fails with nothing left
// to show, and another when all sources recover. Each transition is pushed
// once; acknowledging a failure does not count as a transition.
type AlertMonitor struct {
	alerter Alerter
	logger  *logrus.Logger
	now     func() time.Time

	mu          sync.Mutex
	failing     bool
	failedSince time.Time

	queue    chan alert
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAlertMonitor(alerter Alerter, logger *logrus.Logger) *AlertMonitor {
	return &AlertMonitor{
		alerter: alerter,
		logger:  logger,
		now:     time.Now,
		queue:   make(chan alert, 8),
		stopCh:  make(chan struct{}),
	}
}

func (m *AlertMonitor) NewState(s state.State) {
	raw := state.Combine(s.TrainStatus, s.BusStatus, s.BikeStatus, s.HasData())

	m.mu.Lock()
	var a *alert
	switch {
	case raw == state.FullFailure && !m.failing:
		m.failing = true
		m.failedSince = m.now()
		a = &alert{kind: "full_failure", message: s.ErrorMessage}
	case raw == state.Success && m.failing:
		m.failing = false
		a = &alert{kind: "recovered", downFor: m.now().Sub(m.failedSince)}
	}
	m.mu.Unlock()

	if a == nil {
		return
	}

	select {
	case m.queue <- *a:
	default:
		metrics.AlertsSent.WithLabelValues(a.kind, "dropped").Inc()
		m.logger.WithField("kind", a.kind).Warn("alert queue full, dropping notification")
	}
}

func (m *AlertMonitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop delivers the alerts already queued and waits for the sender to exit.
func (m *AlertMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}

func (m *AlertMonitor) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case a := <-m.queue:
			m.send(a)
		case <-ctx.Done():
			return
		case <-m.stopCh:
			for {
				select {
				case a := <-m.queue:
					m.send(a)
				default:
					return
				}
			}
		}
	}
}

func (m *AlertMonitor) send(a alert) {
	var err error
	switch a.kind {
	case "full_failure":
		err = m.alerter.SendFullFailure(a.message)
	case "recovered":
		err = m.alerter.SendRecovered(a.downFor)
	}

	if err != nil {
		metrics.AlertsSent.WithLabelValues(a.kind, "failure").Inc()
		m.logger.WithFields(logrus.Fields{
			"kind":  a.kind,
			"error": err,
		}).Error("failed to send alert")
		report.ReportError(err)
		return
	}

	metrics.AlertsSent.WithLabelValues(a.kind, "success").Inc()
	m.logger.WithField("kind", a.kind).Info("alert sent")
}
