// Package state defines the application snapshot, the actions that change it and
// the reducer that computes the next snapshot.
//
// A State is a value. Reduce never modifies the maps or slices of the State it is
// given; any slice or map that changes is rebuilt, so a State handed to an
// observer stays valid while later actions are applied.
//
// The aggregate status is not stored. OverallStatus derives it from the three
// per-source statuses every time it is asked:
//
//	train    bus      bike     data   overall
//	SUCCESS  SUCCESS  SUCCESS  -      SUCCESS
//	SUCCESS  FAILURE  SUCCESS  -      FAILURE
//	FAILURE  FAILURE  FAILURE  none   FULL_FAILURE
//	FAILURE  FAILURE  FAILURE  stale  FAILURE
//
// The last row is only reachable through single-domain completions: a composite
// refresh in which all three sources fail clears every slice.
//
// Once a surface acknowledges a failure, FAILURE and FULL_FAILURE read as
// FAILURE_NO_SHOW until the next refresh result arrives.
package state

import (
	"slices"
	"time"

	"github.com/danpilch/transitpal/internal/transit"
)

// State is one immutable snapshot of everything the surfaces render.
type State struct {
	TrainArrivals map[string][]transit.TrainArrival
	TrainStatus   SourceStatus

	BusArrivals map[transit.BusKey][]transit.BusArrival
	BusStatus   SourceStatus

	BikeStations []transit.BikeStation
	BikeStatus   SourceStatus

	BusRoutes       []transit.BusRoute
	BusRoutesStatus SourceStatus

	// LastUpdate is the instant of the latest successful result of any
	// source; the per-source times only move on that source's success.
	LastUpdate   time.Time
	LastTick     time.Time
	TrainUpdated time.Time
	BusUpdated   time.Time
	BikeUpdated  time.Time

	Favorites    []transit.FavoriteKey
	ErrorMessage string

	Transient    RefreshStatus
	FailureShown bool
	Refreshing   Domains
	Generation   uint64

	// per source, indexed by srcTrain, srcBus and srcBike
	sourceErrs  [3]string
	generations [3]uint64
}

const (
	srcTrain = iota
	srcBus
	srcBike
)

// New returns the process-start state for the given favorites.
func New(favorites []transit.FavoriteKey) State {
	return State{
		TrainArrivals: map[string][]transit.TrainArrival{},
		BusArrivals:   map[transit.BusKey][]transit.BusArrival{},
		Favorites:     dedupe(favorites),
	}
}

// OverallStatus is the aggregate of the three per-source statuses.
func (s State) OverallStatus() RefreshStatus {
	overall := Combine(s.TrainStatus, s.BusStatus, s.BikeStatus, s.HasData())
	if overall.IsFailure() && s.FailureShown {
		return FailureNoShow
	}
	return overall
}

// DisplayStatus is the transient favorites status when one is set, otherwise the
// overall status.
func (s State) DisplayStatus() RefreshStatus {
	if s.Transient != Unknown {
		return s.Transient
	}
	return s.OverallStatus()
}

// HasData reports whether any arrival or bike slice holds data.
func (s State) HasData() bool {
	return len(s.TrainArrivals) > 0 || len(s.BusArrivals) > 0 || len(s.BikeStations) > 0
}

// SinceLastUpdate is the elapsed time shown next to the data, measured at the
// last elapsed tick. Zero until both instants are known.
func (s State) SinceLastUpdate() time.Duration {
	if s.LastUpdate.IsZero() || s.LastTick.IsZero() || s.LastTick.Before(s.LastUpdate) {
		return 0
	}
	return s.LastTick.Sub(s.LastUpdate)
}

func (s State) IsFavorite(k transit.FavoriteKey) bool {
	return slices.Contains(s.Favorites, k)
}

// claim reports whether a result stamped with gen may replace the data of one
// source and records gen when it may. Generation zero always applies.
func (s *State) claim(src int, gen uint64) bool {
	if gen == 0 {
		return true
	}
	if gen <= s.generations[src] {
		return false
	}
	s.generations[src] = gen
	return true
}

func dedupe(keys []transit.FavoriteKey) []transit.FavoriteKey {
	var out []transit.FavoriteKey
	for _, k := range keys {
		if k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}
