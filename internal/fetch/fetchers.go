// Package fetch turns upstream calls into state actions: one fetcher per source,
// an orchestrator that runs them together and a refresher that dispatches the
// outcome to the store.
package fetch

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/danpilch/transitpal/internal/api/train"
	"github.com/danpilch/transitpal/internal/state"
	"github.com/danpilch/transitpal/internal/transit"
)

type TrainSource interface {
	Arrivals(ctx context.Context, stationIDs []string) ([]transit.TrainArrival, error)
}

type BusSource interface {
	Predictions(ctx context.Context, route, stopID string) ([]transit.BusArrival, error)
}

type BikeSource interface {
	Stations(ctx context.Context) ([]transit.BikeStation, error)
}

type RouteSource interface {
	Routes(ctx context.Context) ([]transit.BusRoute, error)
}

// TrainFetcher fetches arrivals for the favorited train stations. Stations are
// requested in batches of train.MaxStationsPerRequest; one failed batch fails
// the whole fetch.
type TrainFetcher struct {
	client TrainSource
	logger *logrus.Logger
}

func NewTrainFetcher(client TrainSource, logger *logrus.Logger) *TrainFetcher {
	return &TrainFetcher{client: client, logger: logger}
}

func (f *TrainFetcher) Fetch(ctx context.Context, favorites []transit.FavoriteKey) state.TrainResult {
	ids := transit.TrainStations(favorites)
	if len(ids) == 0 {
		return state.Succeeded(map[string][]transit.TrainArrival{})
	}

	return guard(ctx, "train", f.logger, func(ctx context.Context) (map[string][]transit.TrainArrival, error) {
		p := pool.NewWithResults[[]transit.TrainArrival]().WithContext(ctx).WithCancelOnError()
		for batch := range slices.Chunk(ids, train.MaxStationsPerRequest) {
			p.Go(func(ctx context.Context) ([]transit.TrainArrival, error) {
				return f.client.Arrivals(ctx, batch)
			})
		}
		batches, err := p.Wait()
		if err != nil {
			return nil, err
		}

		out := make(map[string][]transit.TrainArrival, len(ids))
		for _, id := range ids {
			out[id] = []transit.TrainArrival{}
		}
		for _, batch := range batches {
			for _, a := range batch {
				if _, ok := out[a.StationID]; ok {
					out[a.StationID] = append(out[a.StationID], a)
				}
			}
		}
		for _, arrivals := range out {
			slices.SortStableFunc(arrivals, func(a, b transit.TrainArrival) int {
				return a.ArrivalAt.Compare(b.ArrivalAt)
			})
		}
		return out, nil
	})
}

// BusFetcher fetches predictions once per favorited (route, stop) pair and
// splits them by direction.
type BusFetcher struct {
	client BusSource
	logger *logrus.Logger
}

func NewBusFetcher(client BusSource, logger *logrus.Logger) *BusFetcher {
	return &BusFetcher{client: client, logger: logger}
}

type routeStop struct {
	route, stop string
}

func (f *BusFetcher) Fetch(ctx context.Context, favorites []transit.FavoriteKey) state.BusResult {
	keys := transit.BusKeys(favorites)
	if len(keys) == 0 {
		return state.Succeeded(map[transit.BusKey][]transit.BusArrival{})
	}

	var pairs []routeStop
	for _, k := range keys {
		rs := routeStop{k.Route, k.StopID}
		if !slices.Contains(pairs, rs) {
			pairs = append(pairs, rs)
		}
	}

	return guard(ctx, "bus", f.logger, func(ctx context.Context) (map[transit.BusKey][]transit.BusArrival, error) {
		p := pool.NewWithResults[[]transit.BusArrival]().WithContext(ctx).WithCancelOnError()
		for _, rs := range pairs {
			p.Go(func(ctx context.Context) ([]transit.BusArrival, error) {
				arrivals, err := f.client.Predictions(ctx, rs.route, rs.stop)
				if err != nil {
					return nil, err
				}
				// Matched against keys below, so use the requested ids.
				arrivals = slices.Clone(arrivals)
				for i := range arrivals {
					arrivals[i].Route, arrivals[i].StopID = rs.route, rs.stop
				}
				return arrivals, nil
			})
		}
		results, err := p.Wait()
		if err != nil {
			return nil, err
		}

		out := make(map[transit.BusKey][]transit.BusArrival, len(keys))
		for _, k := range keys {
			out[k] = []transit.BusArrival{}
		}
		for _, arrivals := range results {
			for _, a := range arrivals {
				for _, k := range keys {
					if k.Route == a.Route && k.StopID == a.StopID && strings.EqualFold(k.Direction, a.Direction) {
						out[k] = append(out[k], a)
					}
				}
			}
		}
		for _, arrivals := range out {
			slices.SortStableFunc(arrivals, func(a, b transit.BusArrival) int {
				return a.ArrivalAt.Compare(b.ArrivalAt)
			})
		}
		return out, nil
	})
}

// BikeFetcher fetches the full station list; it does not depend on favorites.
type BikeFetcher struct {
	client BikeSource
	logger *logrus.Logger
}

func NewBikeFetcher(client BikeSource, logger *logrus.Logger) *BikeFetcher {
	return &BikeFetcher{client: client, logger: logger}
}

func (f *BikeFetcher) Fetch(ctx context.Context, _ []transit.FavoriteKey) state.BikeResult {
	return guard(ctx, "bike", f.logger, func(ctx context.Context) ([]transit.BikeStation, error) {
		stations, err := f.client.Stations(ctx)
		if err != nil {
			return nil, err
		}
		stations = slices.Clone(stations)
		slices.SortStableFunc(stations, func(a, b transit.BikeStation) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		})
		return stations, nil
	})
}
