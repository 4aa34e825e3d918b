package monitor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/state"
)

// Dispatcher is the part of the store the monitors need.
type Dispatcher interface {
	Dispatch(state.Action)
}

// StatusMonitor is the console surface. It logs status transitions and
// refreshed data, acknowledges failures once they have been logged, and
// clears the transient favorites status after announcing it.
type StatusMonitor struct {
	store  Dispatcher
	logger *logrus.Logger

	mu         sync.Mutex
	lastStatus state.RefreshStatus
	lastUpdate time.Time
}

func NewStatusMonitor(store Dispatcher, logger *logrus.Logger) *StatusMonitor {
	return &StatusMonitor{
		store:  store,
		logger: logger,
	}
}

func (m *StatusMonitor) NewState(s state.State) {
	if s.Transient != state.Unknown {
		m.logger.WithFields(logrus.Fields{
			"status":    s.Transient,
			"favorites": len(s.Favorites),
		}).Info("favorites changed")
		m.store.Dispatch(state.ResetTransientStatus{})
	}

	overall := s.OverallStatus()

	m.mu.Lock()
	statusChanged := overall != m.lastStatus
	dataChanged := !s.LastUpdate.Equal(m.lastUpdate)
	m.lastStatus = overall
	m.lastUpdate = s.LastUpdate
	m.mu.Unlock()

	if dataChanged && !s.LastUpdate.IsZero() {
		m.logger.WithFields(logrus.Fields{
			"train_stations": len(s.TrainArrivals),
			"bus_stops":      len(s.BusArrivals),
			"bike_stations":  len(s.BikeStations),
			"updated":        s.LastUpdate.Format("15:04:05"),
		}).Debug("transit data refreshed")
	}

	if !statusChanged {
		return
	}

	fields := logrus.Fields{
		"status": overall,
		"train":  s.TrainStatus,
		"bus":    s.BusStatus,
		"bike":   s.BikeStatus,
	}
	switch overall {
	case state.Success:
		m.logger.WithFields(fields).Info("all sources refreshed")
	case state.Failure:
		fields["error"] = s.ErrorMessage
		m.logger.WithFields(fields).Warn("some sources failed to refresh")
	case state.FullFailure:
		fields["error"] = s.ErrorMessage
		m.logger.WithFields(fields).Error("no source could be refreshed")
	default:
		return
	}

	if overall.IsFailure() {
		m.store.Dispatch(state.AcknowledgeFailure{})
	}
}
