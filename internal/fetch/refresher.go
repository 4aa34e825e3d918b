package fetch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/metrics"
	"github.com/danpilch/transitpal/internal/state"
	"github.com/danpilch/transitpal/internal/transit"
)

// Dispatcher is the part of the store the refresher needs.
type Dispatcher interface {
	Dispatch(state.Action)
	State() state.State
	Flush(ctx context.Context) error
}

// RouteCache holds the bus route catalog between refreshes.
type RouteCache interface {
	Routes(ctx context.Context) ([]transit.BusRoute, bool)
	StoreRoutes(ctx context.Context, routes []transit.BusRoute) error
}

// Refresher runs refresh cycles and dispatches their outcome.
//
// Each composite cycle takes the next generation number when it starts; the
// reducer ignores a result older than the one already applied. CancelInFlight
// makes every cycle started before the call finish without dispatching.
// Single-domain refreshes draw from the same generation counter. Every refresh
// waits for the store to apply the actions queued before it, so it fetches the
// favorites its caller just changed.
type Refresher struct {
	orch   *Orchestrator
	routes RouteSource
	cache  RouteCache
	store  Dispatcher
	logger *logrus.Logger
	now    func() time.Time

	generation atomic.Uint64
	epoch      atomic.Uint64
}

// NewRefresher creates a Refresher. cache may be nil.
func NewRefresher(orch *Orchestrator, routes RouteSource, cache RouteCache, store Dispatcher, logger *logrus.Logger) *Refresher {
	return &Refresher{
		orch:   orch,
		routes: routes,
		cache:  cache,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Refresh runs one composite cycle for the current favorites.
func (r *Refresher) Refresh(ctx context.Context) {
	epoch := r.epoch.Load()
	gen := r.generation.Add(1)
	favorites, err := r.favorites(ctx)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"generation": gen,
			"error":      err,
		}).Warn("refresh cycle skipped")
		return
	}

	r.store.Dispatch(state.RefreshStarted{Domains: state.AllArrivals})
	c := r.orch.Run(ctx, favorites)

	if r.cancelled(epoch) {
		metrics.RefreshCycles.WithLabelValues("cancelled").Inc()
		r.logger.WithField("generation", gen).Debug("refresh cycle cancelled, dropping result")
		return
	}

	r.store.Dispatch(state.RefreshCompleted{
		Generation: gen,
		At:         r.now(),
		Train:      c.Train,
		Bus:        c.Bus,
		Bike:       c.Bike,
	})
	metrics.RefreshCycles.WithLabelValues("dispatched").Inc()

	r.logger.WithFields(logrus.Fields{
		"generation": gen,
		"train":      c.Train.OK,
		"bus":        c.Bus.OK,
		"bike":       c.Bike.OK,
	}).Debug("refresh cycle completed")
}

// RefreshDomain refreshes a single domain. AllArrivals runs a composite cycle.
func (r *Refresher) RefreshDomain(ctx context.Context, d state.Domains) error {
	switch d {
	case state.AllArrivals:
		r.Refresh(ctx)
		return nil
	case state.DomainRoutes:
		r.RefreshRoutes(ctx)
		return nil
	case state.DomainTrain, state.DomainBus, state.DomainBike:
	default:
		return fmt.Errorf("unsupported domain %q", d)
	}

	epoch := r.epoch.Load()
	gen := r.generation.Add(1)
	favorites, err := r.favorites(ctx)
	if err != nil {
		return err
	}
	r.store.Dispatch(state.RefreshStarted{Domains: d})

	var action state.Action
	switch d {
	case state.DomainTrain:
		res := r.orch.train.Fetch(ctx, favorites)
		action = state.TrainArrivalsCompleted{Generation: gen, At: r.now(), Result: res}
	case state.DomainBus:
		res := r.orch.bus.Fetch(ctx, favorites)
		action = state.BusArrivalsCompleted{Generation: gen, At: r.now(), Result: res}
	case state.DomainBike:
		res := r.orch.bike.Fetch(ctx, favorites)
		action = state.BikeStationsCompleted{Generation: gen, At: r.now(), Result: res}
	}

	if r.cancelled(epoch) {
		metrics.RefreshCycles.WithLabelValues("cancelled").Inc()
		return nil
	}
	r.store.Dispatch(action)
	metrics.RefreshCycles.WithLabelValues("dispatched").Inc()
	return nil
}

// RefreshRoutes refreshes the bus route catalog, reading through the cache.
func (r *Refresher) RefreshRoutes(ctx context.Context) {
	r.store.Dispatch(state.RefreshStarted{Domains: state.DomainRoutes})

	if r.cache != nil {
		if routes, ok := r.cache.Routes(ctx); ok {
			metrics.RouteCacheLookups.WithLabelValues("hit").Inc()
			r.store.Dispatch(state.BusRoutesCompleted{Result: state.Succeeded(routes)})
			return
		}
		metrics.RouteCacheLookups.WithLabelValues("miss").Inc()
	}

	res := guard(ctx, "routes", r.logger, r.routes.Routes)
	if res.OK && r.cache != nil {
		if err := r.cache.StoreRoutes(ctx, res.Data); err != nil {
			metrics.RouteCacheLookups.WithLabelValues("error").Inc()
			r.logger.WithField("error", err).Warn("failed to cache bus routes")
		}
	}
	r.store.Dispatch(state.BusRoutesCompleted{Result: res})
}

// favorites returns the favorites once every action queued before the call,
// such as an AddFavorite from the same caller, has been applied.
func (r *Refresher) favorites(ctx context.Context) ([]transit.FavoriteKey, error) {
	if err := r.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("waiting for pending actions: %w", err)
	}
	return r.store.State().Favorites, nil
}

// CancelInFlight discards the results of every cycle started before the call.
func (r *Refresher) CancelInFlight() {
	r.epoch.Add(1)
}

func (r *Refresher) cancelled(epoch uint64) bool {
	return r.epoch.Load() != epoch
}
