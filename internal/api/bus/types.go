package bus

import (
	"fmt"
	"strings"
	"time"

	"github.com/danpilch/transitpal/internal/transit"
)

const timeLayout = "20060102 15:04"

// PredictionsResponse represents the response from the getpredictions endpoint.
type PredictionsResponse struct {
	Body struct {
		Predictions []Prediction `json:"prd"`
		Errors      []Error      `json:"error"`
	} `json:"bustime-response"`
}

// RoutesResponse represents the response from the getroutes endpoint.
type RoutesResponse struct {
	Body struct {
		Routes []Route `json:"routes"`
		Errors []Error `json:"error"`
	} `json:"bustime-response"`
}

// Error is one entry of the error list returned instead of data.
type Error struct {
	Route  string `json:"rt"`
	StopID string `json:"stpid"`
	Msg    string `json:"msg"`
}

// Prediction is one predicted arrival of a vehicle at a stop.
type Prediction struct {
	StopID      string `json:"stpid"`
	StopName    string `json:"stpnm"`
	Route       string `json:"rt"`
	Direction   string `json:"rtdir"`
	Destination string `json:"des"`
	VehicleID   string `json:"vid"`
	PredictedAt string `json:"prdtm"`
	Countdown   string `json:"prdctdn"`
	Delayed     bool   `json:"dly"`
}

// Route is an entry of the route catalog.
type Route struct {
	ID    string `json:"rt"`
	Name  string `json:"rtnm"`
	Color string `json:"rtclr"`
}

// Arrival converts p into the domain record, reading times in loc.
func (p Prediction) Arrival(loc *time.Location) (transit.BusArrival, error) {
	at, err := time.ParseInLocation(timeLayout, p.PredictedAt, loc)
	if err != nil {
		return transit.BusArrival{}, fmt.Errorf("parsing prediction time %q: %w", p.PredictedAt, err)
	}
	return transit.BusArrival{
		StopID:      p.StopID,
		StopName:    p.StopName,
		Route:       p.Route,
		Direction:   p.Direction,
		Destination: p.Destination,
		VehicleID:   p.VehicleID,
		ArrivalAt:   at,
		Countdown:   p.Countdown,
		Delayed:     p.Delayed,
	}, nil
}

// IsNoService reports whether the error only says that nothing is due, which
// the upstream reports as an error instead of an empty list.
func (e Error) IsNoService() bool {
	msg := strings.ToLower(e.Msg)
	return strings.Contains(msg, "no service scheduled") || strings.Contains(msg, "no arrival times")
}

func joinErrors(errs []Error) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Msg)
	}
	return strings.Join(msgs, "; ")
}
