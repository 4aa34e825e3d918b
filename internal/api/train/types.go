package train

import (
	"fmt"
	"time"

	"github.com/danpilch/transitpal/internal/transit"
)

// timeLayout is the local-time format used by the arrivals endpoint.
const timeLayout = "2006-01-02T15:04:05"

// ArrivalsResponse represents the response from the ttarrivals endpoint.
type ArrivalsResponse struct {
	CTATT struct {
		Timestamp string  `json:"tmst"`
		ErrCode   string  `json:"errCd"`
		ErrName   *string `json:"errNm"`
		ETA       []ETA   `json:"eta"`
	} `json:"ctatt"`
}

// ETA is one predicted arrival of a run at a platform.
type ETA struct {
	StationID   string `json:"staId"`
	StopID      string `json:"stpId"`
	StationName string `json:"staNm"`
	StopDesc    string `json:"stpDe"`
	Run         string `json:"rn"`
	Route       string `json:"rt"`
	Destination string `json:"destNm"`
	PredictedAt string `json:"prdt"`
	ArrivalAt   string `json:"arrT"`
	Approaching string `json:"isApp"`
	Delayed     string `json:"isDly"`
}

// Arrival converts e into the domain record, reading times in loc.
func (e ETA) Arrival(loc *time.Location) (transit.TrainArrival, error) {
	predicted, err := time.ParseInLocation(timeLayout, e.PredictedAt, loc)
	if err != nil {
		return transit.TrainArrival{}, fmt.Errorf("parsing prediction time %q: %w", e.PredictedAt, err)
	}
	arrival, err := time.ParseInLocation(timeLayout, e.ArrivalAt, loc)
	if err != nil {
		return transit.TrainArrival{}, fmt.Errorf("parsing arrival time %q: %w", e.ArrivalAt, err)
	}

	return transit.TrainArrival{
		StationID:   e.StationID,
		StopID:      e.StopID,
		StationName: e.StationName,
		StopDesc:    e.StopDesc,
		RunNumber:   e.Run,
		Route:       e.Route,
		Destination: e.Destination,
		PredictedAt: predicted,
		ArrivalAt:   arrival,
		Approaching: e.Approaching == "1",
		Delayed:     e.Delayed == "1",
	}, nil
}
