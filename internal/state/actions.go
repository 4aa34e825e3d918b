package state

import (
	"time"

	"github.com/danpilch/transitpal/internal/transit"
)

// Result is what a source fetcher hands back: data and OK=true, or the zero value
// of T with OK=false and a description of what went wrong.
type Result[T any] struct {
	Data T
	OK   bool
	Err  string
}

func Succeeded[T any](data T) Result[T] {
	return Result[T]{Data: data, OK: true}
}

func Failed[T any](err error) Result[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{Err: msg}
}

type (
	TrainResult  = Result[map[string][]transit.TrainArrival]
	BusResult    = Result[map[transit.BusKey][]transit.BusArrival]
	BikeResult   = Result[[]transit.BikeStation]
	RoutesResult = Result[[]transit.BusRoute]
)

// Action is the closed set of inputs accepted by Reduce.
type Action interface {
	Name() string
	isAction()
}

// RefreshStarted marks domains as having a refresh in flight.
type RefreshStarted struct {
	Domains Domains
}

// RefreshCompleted carries the joined outcome of one refresh cycle.
type RefreshCompleted struct {
	Generation uint64
	At         time.Time
	Train      TrainResult
	Bus        BusResult
	Bike       BikeResult
}

// TrainArrivalsCompleted, BusArrivalsCompleted and BikeStationsCompleted carry the
// outcome of a single-domain refresh. They draw Generation from the same counter
// as RefreshCompleted; a result older than the one a domain already holds is
// ignored.
type TrainArrivalsCompleted struct {
	Generation uint64
	At         time.Time
	Result     TrainResult
}

type BusArrivalsCompleted struct {
	Generation uint64
	At         time.Time
	Result     BusResult
}

type BikeStationsCompleted struct {
	Generation uint64
	At         time.Time
	Result     BikeResult
}

type BusRoutesCompleted struct {
	Result RoutesResult
}

type AddFavorite struct {
	Key transit.FavoriteKey
}

type RemoveFavorite struct {
	Key transit.FavoriteKey
}

// ResetTransientStatus clears ADD_FAVORITES / REMOVE_FAVORITES.
type ResetTransientStatus struct{}

// AcknowledgeFailure records that the current failure has been shown to the user.
type AcknowledgeFailure struct{}

// ElapsedTicked advances the clock used for the time-since-update display.
type ElapsedTicked struct {
	At time.Time
}

func (RefreshStarted) Name() string         { return "refresh_started" }
func (RefreshCompleted) Name() string       { return "refresh_completed" }
func (TrainArrivalsCompleted) Name() string { return "train_arrivals_completed" }
func (BusArrivalsCompleted) Name() string   { return "bus_arrivals_completed" }
func (BikeStationsCompleted) Name() string  { return "bike_stations_completed" }
func (BusRoutesCompleted) Name() string     { return "bus_routes_completed" }
func (AddFavorite) Name() string            { return "add_favorite" }
func (RemoveFavorite) Name() string         { return "remove_favorite" }
func (ResetTransientStatus) Name() string   { return "reset_transient_status" }
func (AcknowledgeFailure) Name() string     { return "acknowledge_failure" }
func (ElapsedTicked) Name() string          { return "elapsed_ticked" }

func (RefreshStarted) isAction()         {}
func (RefreshCompleted) isAction()       {}
func (TrainArrivalsCompleted) isAction() {}
func (BusArrivalsCompleted) isAction()   {}
func (BikeStationsCompleted) isAction()  {}
func (BusRoutesCompleted) isAction()     {}
func (AddFavorite) isAction()            {}
func (RemoveFavorite) isAction()         {}
func (ResetTransientStatus) isAction()   {}
func (AcknowledgeFailure) isAction()     {}
func (ElapsedTicked) isAction()          {}
