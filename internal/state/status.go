package state

import (
	"fmt"
	"strings"
)

// SourceStatus is the outcome of the most recent fetch of one slice.
type SourceStatus int

const (
	SourceUnknown SourceStatus = iota
	SourceSuccess
	SourceFailure
)

func (s SourceStatus) String() string {
	switch s {
	case SourceSuccess:
		return "SUCCESS"
	case SourceFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

func (s SourceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RefreshStatus is the aggregate status surfaced to observers. ADD_FAVORITES and
// REMOVE_FAVORITES are transient and only ever appear in State.Transient.
type RefreshStatus int

const (
	Unknown RefreshStatus = iota
	Success
	Failure
	FullFailure
	FailureNoShow
	AddFavorites
	RemoveFavorites
)

var refreshStatusNames = map[RefreshStatus]string{
	Unknown:         "UNKNOWN",
	Success:         "SUCCESS",
	Failure:         "FAILURE",
	FullFailure:     "FULL_FAILURE",
	FailureNoShow:   "FAILURE_NO_SHOW",
	AddFavorites:    "ADD_FAVORITES",
	RemoveFavorites: "REMOVE_FAVORITES",
}

func (s RefreshStatus) String() string {
	if name, ok := refreshStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("RefreshStatus(%d)", int(s))
}

func (s RefreshStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsFailure reports whether s is a failure that has not been acknowledged yet.
func (s RefreshStatus) IsFailure() bool {
	return s == Failure || s == FullFailure
}

// Combine derives the aggregate status from the per-source statuses. Sources that
// have never reported are ignored; hasData tells a total failure with stale data
// (FAILURE) apart from one with nothing to show (FULL_FAILURE).
func Combine(train, bus, bike SourceStatus, hasData bool) RefreshStatus {
	var known, failed int
	for _, s := range []SourceStatus{train, bus, bike} {
		switch s {
		case SourceSuccess:
			known++
		case SourceFailure:
			known++
			failed++
		}
	}

	switch {
	case known == 0:
		return Unknown
	case failed == 0:
		return Success
	case failed == known && !hasData:
		return FullFailure
	default:
		return Failure
	}
}

// Domains is a set of data domains.
type Domains uint8

const (
	DomainTrain Domains = 1 << iota
	DomainBus
	DomainBike
	DomainRoutes
)

// AllArrivals is the set covered by one composite refresh.
const AllArrivals = DomainTrain | DomainBus | DomainBike

var domainNames = []struct {
	d    Domains
	name string
}{
	{DomainTrain, "train"},
	{DomainBus, "bus"},
	{DomainBike, "bike"},
	{DomainRoutes, "routes"},
}

func (d Domains) Has(o Domains) bool {
	return d&o == o
}

func (d Domains) String() string {
	var names []string
	for _, dn := range domainNames {
		if d.Has(dn.d) {
			names = append(names, dn.name)
		}
	}
	return strings.Join(names, ",")
}

func (d Domains) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDomain parses a single domain name. "all" and "" mean AllArrivals.
func ParseDomain(s string) (Domains, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" || name == "all" {
		return AllArrivals, nil
	}
	for _, dn := range domainNames {
		if dn.name == name {
			return dn.d, nil
		}
	}
	return 0, fmt.Errorf("unknown domain %q", s)
}
