package fetch

import (
	"context"

	"github.com/sourcegraph/conc"

	"github.com/danpilch/transitpal/internal/state"
	"github.com/danpilch/transitpal/internal/transit"
)

// Composite is the joined outcome of one run of the three fetchers.
type Composite struct {
	Train state.TrainResult
	Bus   state.BusResult
	Bike  state.BikeResult
}

// Orchestrator runs the train, bus and bike fetchers concurrently.
type Orchestrator struct {
	train *TrainFetcher
	bus   *BusFetcher
	bike  *BikeFetcher
}

func NewOrchestrator(train *TrainFetcher, bus *BusFetcher, bike *BikeFetcher) *Orchestrator {
	return &Orchestrator{train: train, bus: bus, bike: bike}
}

// Run starts all three fetchers and returns once every one of them has
// finished. It never returns early and never retries.
func (o *Orchestrator) Run(ctx context.Context, favorites []transit.FavoriteKey) Composite {
	var (
		c  Composite
		wg conc.WaitGroup
	)
	wg.Go(func() { c.Train = o.train.Fetch(ctx, favorites) })
	wg.Go(func() { c.Bus = o.bus.Fetch(ctx, favorites) })
	wg.Go(func() { c.Bike = o.bike.Fetch(ctx, favorites) })
	wg.Wait()
	return c
}
