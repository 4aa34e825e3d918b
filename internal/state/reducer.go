package state

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/danpilch/transitpal/internal/transit"
)

// Reduce returns the state that results from applying a to s. It performs no I/O,
// never panics on a well-formed State and returns s unchanged for actions it does
// not act on.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case RefreshStarted:
		s.Refreshing |= a.Domains
		return s
	case RefreshCompleted:
		return reduceRefreshCompleted(s, a)
	case TrainArrivalsCompleted:
		s.Refreshing &^= DomainTrain
		if !s.claim(srcTrain, a.Generation) {
			return s
		}
		s = applyTrain(s, a.Result, a.At)
		return finishDomain(s, a.Result.OK, a.At)
	case BusArrivalsCompleted:
		s.Refreshing &^= DomainBus
		if !s.claim(srcBus, a.Generation) {
			return s
		}
		s = applyBus(s, a.Result, a.At)
		return finishDomain(s, a.Result.OK, a.At)
	case BikeStationsCompleted:
		s.Refreshing &^= DomainBike
		if !s.claim(srcBike, a.Generation) {
			return s
		}
		s = applyBike(s, a.Result, a.At)
		return finishDomain(s, a.Result.OK, a.At)
	case BusRoutesCompleted:
		s.Refreshing &^= DomainRoutes
		if a.Result.OK {
			s.BusRoutes = a.Result.Data
			s.BusRoutesStatus = SourceSuccess
		} else {
			s.BusRoutesStatus = SourceFailure
		}
		return s
	case AddFavorite:
		return addFavorite(s, a.Key)
	case RemoveFavorite:
		return removeFavorite(s, a.Key)
	case ResetTransientStatus:
		s.Transient = Unknown
		return s
	case AcknowledgeFailure:
		if s.OverallStatus().IsFailure() {
			s.FailureShown = true
		}
		return s
	case ElapsedTicked:
		s.LastTick = a.At
		return s
	default:
		return s
	}
}

// reduceRefreshCompleted applies a composite result. A domain that already holds
// a result from a newer single-domain refresh keeps it. When all three sources
// fail every slice is cleared.
func reduceRefreshCompleted(s State, a RefreshCompleted) State {
	if a.Generation != 0 {
		if a.Generation <= s.Generation {
			return s
		}
		s.Generation = a.Generation
	}
	s.Refreshing &^= AllArrivals
	s.FailureShown = false

	allFailed := !a.Train.OK && !a.Bus.OK && !a.Bike.OK

	if s.claim(srcTrain, a.Generation) {
		if allFailed {
			s.TrainArrivals = map[string][]transit.TrainArrival{}
		}
		s = applyTrain(s, a.Train, a.At)
	}
	if s.claim(srcBus, a.Generation) {
		if allFailed {
			s.BusArrivals = map[transit.BusKey][]transit.BusArrival{}
		}
		s = applyBus(s, a.Bus, a.At)
	}
	if s.claim(srcBike, a.Generation) {
		if allFailed {
			s.BikeStations = nil
		}
		s = applyBike(s, a.Bike, a.At)
	}

	if !allFailed {
		s.LastUpdate = a.At
	}
	s.ErrorMessage = s.failureMessage()
	return s
}

// applyTrain replaces the train slice on success and keeps the previous data on
// failure. Either way the result only holds favorited stations.
func applyTrain(s State, r TrainResult, at time.Time) State {
	src := s.TrainArrivals
	if r.OK {
		src = r.Data
		s.TrainUpdated = at
	}
	s.TrainStatus, s.sourceErrs[srcTrain] = outcome(r.OK, r.Err)

	stations := transit.TrainStations(s.Favorites)
	s.TrainArrivals = filterMap(src, func(id string) bool {
		return slices.Contains(stations, id)
	})
	return s
}

func applyBus(s State, r BusResult, at time.Time) State {
	src := s.BusArrivals
	if r.OK {
		src = r.Data
		s.BusUpdated = at
	}
	s.BusStatus, s.sourceErrs[srcBus] = outcome(r.OK, r.Err)

	keys := transit.BusKeys(s.Favorites)
	s.BusArrivals = filterMap(src, func(k transit.BusKey) bool {
		return slices.Contains(keys, k)
	})
	return s
}

func applyBike(s State, r BikeResult, at time.Time) State {
	if r.OK {
		s.BikeStations = r.Data
		s.BikeUpdated = at
	}
	s.BikeStatus, s.sourceErrs[srcBike] = outcome(r.OK, r.Err)
	return s
}

func outcome(ok bool, errMsg string) (SourceStatus, string) {
	if ok {
		return SourceSuccess, ""
	}
	return SourceFailure, errMsg
}

func finishDomain(s State, ok bool, at time.Time) State {
	if ok {
		s.LastUpdate = at
	} else {
		s.FailureShown = false
	}
	s.ErrorMessage = s.failureMessage()
	return s
}

func addFavorite(s State, k transit.FavoriteKey) State {
	if k == "" || s.IsFavorite(k) {
		return s
	}
	s.Favorites = append(slices.Clone(s.Favorites), k)
	s.Transient = AddFavorites
	return s
}

func removeFavorite(s State, k transit.FavoriteKey) State {
	if !s.IsFavorite(k) {
		return s
	}
	favorites := slices.DeleteFunc(slices.Clone(s.Favorites), func(f transit.FavoriteKey) bool {
		return f == k
	})
	if len(favorites) == 0 {
		favorites = nil
	}
	s.Favorites = favorites
	s.Transient = RemoveFavorites

	switch k.Kind() {
	case transit.KindTrain:
		if _, ok := s.TrainArrivals[k.ID()]; ok {
			s.TrainArrivals = filterMap(s.TrainArrivals, func(id string) bool { return id != k.ID() })
		}
	case transit.KindBus:
		bk, _ := k.BusKey()
		if _, ok := s.BusArrivals[bk]; ok {
			s.BusArrivals = filterMap(s.BusArrivals, func(other transit.BusKey) bool { return other != bk })
		}
	}
	return s
}

// filterMap returns a new map holding the entries of m whose key passes keep.
func filterMap[K comparable, V any](m map[K]V, keep func(K) bool) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range maps.All(m) {
		if keep(k) {
			out[k] = v
		}
	}
	return out
}

// failureMessage lists the error of every source whose latest result failed.
func (s State) failureMessage() string {
	sources := []struct {
		name   string
		status SourceStatus
		err    string
	}{
		{"train", s.TrainStatus, s.sourceErrs[srcTrain]},
		{"bus", s.BusStatus, s.sourceErrs[srcBus]},
		{"bike", s.BikeStatus, s.sourceErrs[srcBike]},
	}

	var parts []string
	for _, src := range sources {
		if src.status == SourceFailure {
			parts = append(parts, src.name+": "+src.err)
		}
	}
	return strings.Join(parts, "; ")
}
