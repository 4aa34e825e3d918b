package transit

import "time"

// TrainArrival is one predicted train arrival at a favorited station.
type TrainArrival struct {
	StationID   string    `json:"stationId"`
	StopID      string    `json:"stopId"`
	StationName string    `json:"stationName"`
	StopDesc    string    `json:"stopDescription"`
	RunNumber   string    `json:"runNumber"`
	Route       string    `json:"route"`
	Destination string    `json:"destination"`
	PredictedAt time.Time `json:"predictedAt"`
	ArrivalAt   time.Time `json:"arrivalAt"`
	Approaching bool      `json:"approaching"`
	Delayed     bool      `json:"delayed"`
}

// BusKey identifies one favorited route/stop/direction combination.
type BusKey struct {
	Route     string `json:"route"`
	StopID    string `json:"stopId"`
	Direction string `json:"direction"`
}

// BusArrival is one predicted bus arrival.
type BusArrival struct {
	StopID      string    `json:"stopId"`
	StopName    string    `json:"stopName"`
	Route       string    `json:"route"`
	Direction   string    `json:"direction"`
	Destination string    `json:"destination"`
	VehicleID   string    `json:"vehicleId"`
	ArrivalAt   time.Time `json:"arrivalAt"`
	Countdown   string    `json:"countdown"`
	Delayed     bool      `json:"delayed"`
}

// BusRoute is an entry of the bus route catalog.
type BusRoute struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// BikeStation is a snapshot of a bike-share dock.
type BikeStation struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	Capacity       int       `json:"capacity"`
	BikesAvailable int       `json:"bikesAvailable"`
	DocksAvailable int       `json:"docksAvailable"`
	Renting        bool      `json:"renting"`
	Returning      bool      `json:"returning"`
	LastReported   time.Time `json:"lastReported"`
}
