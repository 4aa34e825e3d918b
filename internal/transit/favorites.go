// Package transit holds the domain records shared by the fetchers, the state and
// the surfaces, and the favorite key format.
package transit

import (
	"fmt"
	"strings"
)

// Kind is the domain a favorite belongs to.
type Kind string

const (
	KindTrain Kind = "train"
	KindBus   Kind = "bus"
	KindBike  Kind = "bike"
)

// FavoriteKey names one user-tracked entity:
//
//	train:<stationID>
//	bus:<route>:<stopID>:<direction>
//	bike:<stationID>
type FavoriteKey string

func TrainFavorite(stationID string) FavoriteKey {
	return FavoriteKey(string(KindTrain) + ":" + stationID)
}

func BusFavorite(k BusKey) FavoriteKey {
	return FavoriteKey(fmt.Sprintf("%s:%s:%s:%s", KindBus, k.Route, k.StopID, k.Direction))
}

func BikeFavorite(stationID string) FavoriteKey {
	return FavoriteKey(string(KindBike) + ":" + stationID)
}

// ParseFavoriteKey validates s and returns it as a FavoriteKey.
func ParseFavoriteKey(s string) (FavoriteKey, error) {
	k := FavoriteKey(strings.TrimSpace(s))
	kind, rest, ok := strings.Cut(string(k), ":")
	if !ok || rest == "" {
		return "", fmt.Errorf("invalid favorite key %q", s)
	}

	switch Kind(kind) {
	case KindTrain, KindBike:
		if strings.Contains(rest, ":") {
			return "", fmt.Errorf("invalid %s favorite key %q", kind, s)
		}
	case KindBus:
		parts := strings.SplitN(rest, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return "", fmt.Errorf("invalid bus favorite key %q: want bus:<route>:<stop>:<direction>", s)
		}
	default:
		return "", fmt.Errorf("unknown favorite kind %q", kind)
	}
	return k, nil
}

// Kind returns the domain of the key, or "" if the key is malformed.
func (k FavoriteKey) Kind() Kind {
	kind, _, ok := strings.Cut(string(k), ":")
	if !ok {
		return ""
	}
	return Kind(kind)
}

// ID returns the station id of a train or bike key.
func (k FavoriteKey) ID() string {
	_, rest, _ := strings.Cut(string(k), ":")
	return rest
}

// BusKey decodes a bus favorite. ok is false for other kinds.
func (k FavoriteKey) BusKey() (BusKey, bool) {
	if k.Kind() != KindBus {
		return BusKey{}, false
	}
	parts := strings.SplitN(k.ID(), ":", 3)
	if len(parts) != 3 {
		return BusKey{}, false
	}
	return BusKey{Route: parts[0], StopID: parts[1], Direction: parts[2]}, true
}

// TrainStations returns the train station ids among keys, in order.
func TrainStations(keys []FavoriteKey) []string {
	var ids []string
	for _, k := range keys {
		if k.Kind() == KindTrain {
			ids = append(ids, k.ID())
		}
	}
	return ids
}

// BusKeys returns the bus keys among keys, in order.
func BusKeys(keys []FavoriteKey) []BusKey {
	var out []BusKey
	for _, k := range keys {
		if bk, ok := k.BusKey(); ok {
			out = append(out, bk)
		}
	}
	return out
}

// BikeStations returns the bike station ids among keys, in order.
func BikeStations(keys []FavoriteKey) []string {
	var ids []string
	for _, k := range keys {
		if k.Kind() == KindBike {
			ids = append(ids, k.ID())
		}
	}
	return ids
}
