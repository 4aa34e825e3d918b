package state

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/danpilch/transitpal/internal/transit"
)

var (
	belmont   = transit.TrainFavorite("41320")
	clarkBus  = transit.BusKey{Route: "22", StopID: "1836", Direction: "Northbound"}
	clarkFav  = transit.BusFavorite(clarkBus)
	bikeDock  = transit.BikeFavorite("13")
	refreshAt = time.Date(2026, 3, 4, 8, 30, 0, 0, time.UTC)
)

func trainOK() TrainResult {
	return Succeeded(map[string][]transit.TrainArrival{
		"41320": {{StationID: "41320", Route: "Brn", Destination: "Loop"}},
	})
}

func busOK() BusResult {
	return Succeeded(map[transit.BusKey][]transit.BusArrival{
		clarkBus: {{StopID: "1836", Route: "22", Direction: "Northbound", Destination: "Howard"}},
	})
}

func bikeOK() BikeResult {
	return Succeeded([]transit.BikeStation{{ID: "13", Name: "Wilton Ave & Diversey Pkwy", BikesAvailable: 4}})
}

func seeded() State {
	return New([]transit.FavoriteKey{belmont, clarkFav, bikeDock})
}

func TestReduce_CombinationRule(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		trainUp, busUp, bikeUp := mask&1 != 0, mask&2 != 0, mask&4 != 0
		t.Run(fmt.Sprintf("train=%v,bus=%v,bike=%v", trainUp, busUp, bikeUp), func(t *testing.T) {
			a := RefreshCompleted{At: refreshAt}
			a.Train = Failed[map[string][]transit.TrainArrival](errors.New("train down"))
			a.Bus = Failed[map[transit.BusKey][]transit.BusArrival](errors.New("bus down"))
			a.Bike = Failed[[]transit.BikeStation](errors.New("bike down"))
			if trainUp {
				a.Train = trainOK()
			}
			if busUp {
				a.Bus = busOK()
			}
			if bikeUp {
				a.Bike = bikeOK()
			}

			got := Reduce(seeded(), a).OverallStatus()

			want := Failure
			switch {
			case trainUp && busUp && bikeUp:
				want = Success
			case !trainUp && !busUp && !bikeUp:
				want = FullFailure
			}
			if got != want {
				t.Fatalf("OverallStatus() = %v, want %v", got, want)
			}
		})
	}
}

func TestReduce_AddRemoveFavoriteRoundTrip(t *testing.T) {
	before := seeded()
	k := transit.TrainFavorite("40380")

	added := Reduce(before, AddFavorite{Key: k})
	if !added.IsFavorite(k) {
		t.Fatalf("Favorites = %v, want it to contain %q", added.Favorites, k)
	}
	if added.Transient != AddFavorites {
		t.Fatalf("Transient = %v, want ADD_FAVORITES", added.Transient)
	}

	removed := Reduce(added, RemoveFavorite{Key: k})
	if !slices.Equal(removed.Favorites, before.Favorites) {
		t.Fatalf("Favorites = %v, want %v", removed.Favorites, before.Favorites)
	}
	if removed.Transient != RemoveFavorites {
		t.Fatalf("Transient = %v, want REMOVE_FAVORITES", removed.Transient)
	}

	// The earlier snapshot must not observe the later change.
	if len(added.Favorites) != len(before.Favorites)+1 {
		t.Fatalf("added snapshot mutated: %v", added.Favorites)
	}
}

func TestReduce_AddFavoriteIdempotent(t *testing.T) {
	s := New(nil)
	s = Reduce(s, AddFavorite{Key: belmont})
	s = Reduce(s, AddFavorite{Key: belmont})

	if !slices.Equal(s.Favorites, []transit.FavoriteKey{belmont}) {
		t.Fatalf("Favorites = %v, want [%s]", s.Favorites, belmont)
	}
}

func TestReduce_BusRecoveryLeavesOtherSlicesUntouched(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})

	s = Reduce(s, BusArrivalsCompleted{At: refreshAt, Result: Failed[map[transit.BusKey][]transit.BusArrival](errors.New("timeout"))})
	if s.BusStatus != SourceFailure {
		t.Fatalf("BusStatus = %v, want FAILURE", s.BusStatus)
	}
	if len(s.BusArrivals[clarkBus]) != 1 {
		t.Fatalf("bus data not retained on failure: %v", s.BusArrivals)
	}
	trainBefore, bikeBefore := s.TrainArrivals, s.BikeStations

	fresh := map[transit.BusKey][]transit.BusArrival{
		clarkBus: {{Route: "22", Destination: "Harrison"}, {Route: "22", Destination: "Howard"}},
	}
	s = Reduce(s, BusArrivalsCompleted{At: refreshAt, Result: Succeeded(fresh)})

	if s.BusStatus != SourceSuccess {
		t.Fatalf("BusStatus = %v, want SUCCESS", s.BusStatus)
	}
	if !reflect.DeepEqual(s.BusArrivals, fresh) {
		t.Fatalf("BusArrivals = %v, want %v", s.BusArrivals, fresh)
	}
	if !reflect.DeepEqual(s.TrainArrivals, trainBefore) || !reflect.DeepEqual(s.BikeStations, bikeBefore) {
		t.Fatal("unrelated slices changed")
	}
	if s.OverallStatus() != Success || s.ErrorMessage != "" {
		t.Fatalf("overall = %v message = %q, want SUCCESS and no message", s.OverallStatus(), s.ErrorMessage)
	}
}

func TestReduce_FavoriteThenPartialRefresh(t *testing.T) {
	s := New(nil)
	if s.OverallStatus() != Unknown {
		t.Fatalf("initial OverallStatus() = %v, want UNKNOWN", s.OverallStatus())
	}

	s = Reduce(s, AddFavorite{Key: belmont})
	if !slices.Equal(s.Favorites, []transit.FavoriteKey{belmont}) {
		t.Fatalf("Favorites = %v", s.Favorites)
	}
	if s.OverallStatus() != Unknown {
		t.Fatalf("OverallStatus() after add = %v, want UNKNOWN", s.OverallStatus())
	}

	s = Reduce(s, RefreshCompleted{
		At:    refreshAt,
		Train: trainOK(),
		Bus:   Failed[map[transit.BusKey][]transit.BusArrival](errors.New("502")),
		Bike:  bikeOK(),
	})

	if s.TrainStatus != SourceSuccess || s.BusStatus != SourceFailure || s.BikeStatus != SourceSuccess {
		t.Fatalf("statuses = %v/%v/%v", s.TrainStatus, s.BusStatus, s.BikeStatus)
	}
	if s.OverallStatus() != Failure {
		t.Fatalf("OverallStatus() = %v, want FAILURE", s.OverallStatus())
	}
	if len(s.BusArrivals) != 0 {
		t.Fatalf("BusArrivals = %v, want empty", s.BusArrivals)
	}
	if len(s.TrainArrivals["41320"]) != 1 {
		t.Fatalf("TrainArrivals = %v", s.TrainArrivals)
	}
	if s.ErrorMessage != "bus: 502" {
		t.Fatalf("ErrorMessage = %q, want %q", s.ErrorMessage, "bus: 502")
	}
	if !s.LastUpdate.Equal(refreshAt) {
		t.Fatalf("LastUpdate = %v, want %v", s.LastUpdate, refreshAt)
	}
}

func TestReduce_AllFailOnFirstRefresh(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{
		At:    refreshAt,
		Train: Failed[map[string][]transit.TrainArrival](errors.New("a")),
		Bus:   Failed[map[transit.BusKey][]transit.BusArrival](errors.New("b")),
		Bike:  Failed[[]transit.BikeStation](errors.New("c")),
	})

	if s.OverallStatus() != FullFailure {
		t.Fatalf("OverallStatus() = %v, want FULL_FAILURE", s.OverallStatus())
	}
	if len(s.TrainArrivals) != 0 || len(s.BusArrivals) != 0 || len(s.BikeStations) != 0 {
		t.Fatal("slices not empty after full failure")
	}
	if !s.LastUpdate.IsZero() {
		t.Fatalf("LastUpdate = %v, want zero", s.LastUpdate)
	}
}

func TestReduce_PartialFailureRetainsPriorData(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})
	s = Reduce(s, RefreshCompleted{
		At:    refreshAt.Add(time.Minute),
		Train: Failed[map[string][]transit.TrainArrival](errors.New("down")),
		Bus:   busOK(),
		Bike:  bikeOK(),
	})

	if s.OverallStatus() != Failure {
		t.Fatalf("OverallStatus() = %v, want FAILURE", s.OverallStatus())
	}
	if len(s.TrainArrivals["41320"]) != 1 {
		t.Fatalf("train data dropped on partial failure: %v", s.TrainArrivals)
	}
}

func TestReduce_StaleGenerationDiscarded(t *testing.T) {
	s := seeded()
	b := RefreshCompleted{Generation: 2, At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()}
	a := RefreshCompleted{
		Generation: 1,
		At:         refreshAt.Add(time.Second),
		Train:      Failed[map[string][]transit.TrainArrival](errors.New("late")),
		Bus:        busOK(),
		Bike:       bikeOK(),
	}

	s = Reduce(s, b)
	got := Reduce(s, a)

	if got.Generation != 2 || got.TrainStatus != SourceSuccess {
		t.Fatalf("stale result applied: generation=%d train=%v", got.Generation, got.TrainStatus)
	}
}

func TestReduce_RemoveFavoritePrunesArrivals(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})
	before := s

	s = Reduce(s, RemoveFavorite{Key: clarkFav})
	if _, ok := s.BusArrivals[clarkBus]; ok {
		t.Fatal("bus arrivals for removed favorite not pruned")
	}
	if _, ok := before.BusArrivals[clarkBus]; !ok {
		t.Fatal("previous snapshot was mutated")
	}

	// A refresh that still returns the removed key must not bring it back.
	s = Reduce(s, RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})
	if len(s.BusArrivals) != 0 {
		t.Fatalf("BusArrivals = %v, want pruned to favorites", s.BusArrivals)
	}
}

func TestReduce_AcknowledgeFailure(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{
		At:    refreshAt,
		Train: trainOK(),
		Bus:   Failed[map[transit.BusKey][]transit.BusArrival](errors.New("x")),
		Bike:  bikeOK(),
	})

	s = Reduce(s, AcknowledgeFailure{})
	if s.OverallStatus() != FailureNoShow {
		t.Fatalf("OverallStatus() = %v, want FAILURE_NO_SHOW", s.OverallStatus())
	}

	s = Reduce(s, RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})
	if s.OverallStatus() != Success || s.FailureShown {
		t.Fatalf("OverallStatus() = %v FailureShown = %v after recovery", s.OverallStatus(), s.FailureShown)
	}

	// Acknowledging while healthy is a no-op.
	if got := Reduce(s, AcknowledgeFailure{}); got.FailureShown {
		t.Fatal("FailureShown set while status is SUCCESS")
	}
}

func TestReduce_TransientAndDisplayStatus(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})
	s = Reduce(s, AddFavorite{Key: transit.BikeFavorite("99")})

	if s.DisplayStatus() != AddFavorites || s.OverallStatus() != Success {
		t.Fatalf("display = %v overall = %v", s.DisplayStatus(), s.OverallStatus())
	}

	s = Reduce(s, ResetTransientStatus{})
	if s.DisplayStatus() != Success {
		t.Fatalf("DisplayStatus() after reset = %v, want SUCCESS", s.DisplayStatus())
	}
}

func TestReduce_RefreshingFlagsAndElapsed(t *testing.T) {
	s := Reduce(seeded(), RefreshStarted{Domains: AllArrivals | DomainRoutes})
	if !s.Refreshing.Has(DomainTrain | DomainRoutes) {
		t.Fatalf("Refreshing = %v", s.Refreshing)
	}

	s = Reduce(s, RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})
	if s.Refreshing != DomainRoutes {
		t.Fatalf("Refreshing = %v, want routes", s.Refreshing)
	}

	s = Reduce(s, BusRoutesCompleted{Result: Succeeded([]transit.BusRoute{{ID: "22", Name: "Clark"}})})
	if s.Refreshing != 0 || s.BusRoutesStatus != SourceSuccess || len(s.BusRoutes) != 1 {
		t.Fatalf("routes not applied: %+v", s)
	}

	s = Reduce(s, ElapsedTicked{At: refreshAt.Add(90 * time.Second)})
	if got := s.SinceLastUpdate(); got != 90*time.Second {
		t.Fatalf("SinceLastUpdate() = %v, want 90s", got)
	}
}

func TestReduce_UnknownActionReturnsInput(t *testing.T) {
	s := seeded()
	got := Reduce(s, nil)
	if !reflect.DeepEqual(got, s) {
		t.Fatal("nil action changed state")
	}
}

func TestParseDomain(t *testing.T) {
	if d, err := ParseDomain(""); err != nil || d != AllArrivals {
		t.Fatalf("ParseDomain(\"\") = %v, %v", d, err)
	}
	if d, err := ParseDomain("Bus"); err != nil || d != DomainBus {
		t.Fatalf("ParseDomain(Bus) = %v, %v", d, err)
	}
	if _, err := ParseDomain("ferry"); err == nil {
		t.Fatal("ParseDomain(ferry) returned nil error")
	}
	if got := (DomainTrain | DomainBike).String(); got != "train,bike" {
		t.Fatalf("String() = %q", got)
	}
}

func TestReduce_ErrorMessageFollowsCurrentFailures(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{
		At:    refreshAt,
		Train: Failed[map[string][]transit.TrainArrival](errors.New("timeout")),
		Bus:   Failed[map[transit.BusKey][]transit.BusArrival](errors.New("502")),
		Bike:  bikeOK(),
	})
	if s.ErrorMessage != "train: timeout; bus: 502" {
		t.Fatalf("ErrorMessage = %q", s.ErrorMessage)
	}

	s = Reduce(s, BusArrivalsCompleted{At: refreshAt.Add(time.Minute), Result: busOK()})
	if s.ErrorMessage != "train: timeout" {
		t.Fatalf("ErrorMessage after bus recovery = %q, want only the train error", s.ErrorMessage)
	}
	if s.OverallStatus() != Failure {
		t.Fatalf("OverallStatus() = %v, want FAILURE", s.OverallStatus())
	}

	s = Reduce(s, TrainArrivalsCompleted{At: refreshAt.Add(2 * time.Minute), Result: trainOK()})
	if s.ErrorMessage != "" || s.OverallStatus() != Success {
		t.Fatalf("ErrorMessage = %q overall = %v after full recovery", s.ErrorMessage, s.OverallStatus())
	}
}

func TestReduce_SingleDomainTimestamps(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})
	if !s.TrainUpdated.Equal(refreshAt) || !s.BusUpdated.Equal(refreshAt) || !s.BikeUpdated.Equal(refreshAt) {
		t.Fatalf("per-source times = %v/%v/%v", s.TrainUpdated, s.BusUpdated, s.BikeUpdated)
	}

	later := refreshAt.Add(time.Minute)
	s = Reduce(s, BikeStationsCompleted{At: later, Result: bikeOK()})
	if !s.BikeUpdated.Equal(later) || !s.LastUpdate.Equal(later) {
		t.Fatalf("bike success: BikeUpdated = %v LastUpdate = %v", s.BikeUpdated, s.LastUpdate)
	}
	if !s.TrainUpdated.Equal(refreshAt) {
		t.Fatalf("TrainUpdated moved to %v", s.TrainUpdated)
	}

	failedAt := later.Add(time.Minute)
	s = Reduce(s, BusArrivalsCompleted{At: failedAt, Result: Failed[map[transit.BusKey][]transit.BusArrival](errors.New("502"))})
	if !s.BusUpdated.Equal(refreshAt) || !s.LastUpdate.Equal(later) {
		t.Fatalf("bus failure moved times: BusUpdated = %v LastUpdate = %v", s.BusUpdated, s.LastUpdate)
	}
}

func TestReduce_SingleDomainGenerations(t *testing.T) {
	s := Reduce(seeded(), RefreshCompleted{Generation: 3, At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})

	// A bus-only refresh started before cycle 3 finishes after it.
	stale := Reduce(s, BusArrivalsCompleted{
		Generation: 2,
		At:         refreshAt.Add(time.Second),
		Result:     Failed[map[transit.BusKey][]transit.BusArrival](errors.New("late")),
	})
	if stale.BusStatus != SourceSuccess || len(stale.BusArrivals[clarkBus]) != 1 {
		t.Fatalf("stale bus result applied: status = %v arrivals = %v", stale.BusStatus, stale.BusArrivals)
	}

	// A bus-only refresh newer than a composite that finishes later keeps its data.
	fresh := map[transit.BusKey][]transit.BusArrival{clarkBus: {{Route: "22", Destination: "Harrison"}}}
	s = Reduce(s, BusArrivalsCompleted{Generation: 5, At: refreshAt.Add(time.Minute), Result: Succeeded(fresh)})
	s = Reduce(s, RefreshCompleted{
		Generation: 4,
		At:         refreshAt.Add(2 * time.Minute),
		Train:      Failed[map[string][]transit.TrainArrival](errors.New("down")),
		Bus:        busOK(),
		Bike:       bikeOK(),
	})

	if !reflect.DeepEqual(s.BusArrivals, fresh) {
		t.Fatalf("BusArrivals = %v, want the newer bus-only data", s.BusArrivals)
	}
	if s.TrainStatus != SourceFailure || s.Generation != 4 {
		t.Fatalf("composite not applied to train: status = %v generation = %d", s.TrainStatus, s.Generation)
	}
}

func TestReduce_AllFailAfterDataClearsSlices(t *testing.T) {
	shown := Reduce(seeded(), RefreshCompleted{At: refreshAt, Train: trainOK(), Bus: busOK(), Bike: bikeOK()})

	composite := Reduce(shown, RefreshCompleted{
		At:    refreshAt.Add(time.Minute),
		Train: Failed[map[string][]transit.TrainArrival](errors.New("down")),
		Bus:   Failed[map[transit.BusKey][]transit.BusArrival](errors.New("down")),
		Bike:  Failed[[]transit.BikeStation](errors.New("down")),
	})
	if composite.HasData() || composite.OverallStatus() != FullFailure {
		t.Fatalf("composite all-fail: HasData = %v overall = %v, want cleared FULL_FAILURE", composite.HasData(), composite.OverallStatus())
	}

	single := shown
	single = Reduce(single, TrainArrivalsCompleted{Result: Failed[map[string][]transit.TrainArrival](errors.New("down"))})
	single = Reduce(single, BusArrivalsCompleted{Result: Failed[map[transit.BusKey][]transit.BusArrival](errors.New("down"))})
	single = Reduce(single, BikeStationsCompleted{Result: Failed[[]transit.BikeStation](errors.New("down"))})
	if !single.HasData() || single.OverallStatus() != Failure {
		t.Fatalf("single-domain all-fail: HasData = %v overall = %v, want stale FAILURE", single.HasData(), single.OverallStatus())
	}
}
