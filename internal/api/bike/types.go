package bike

import (
	"bytes"
	"fmt"
	"strconv"
)

// StationInformationResponse represents station_information.json.
type StationInformationResponse struct {
	LastUpdated int64 `json:"last_updated"`
	Data        struct {
		Stations []StationInformation `json:"stations"`
	} `json:"data"`
}

// StationStatusResponse represents station_status.json.
type StationStatusResponse struct {
	LastUpdated int64 `json:"last_updated"`
	Data        struct {
		Stations []StationStatus `json:"stations"`
	} `json:"data"`
}

type StationInformation struct {
	StationID string  `json:"station_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Capacity  int     `json:"capacity"`
}

type StationStatus struct {
	StationID         string   `json:"station_id"`
	NumBikesAvailable int      `json:"num_bikes_available"`
	NumDocksAvailable int      `json:"num_docks_available"`
	IsRenting         flexBool `json:"is_renting"`
	IsReturning       flexBool `json:"is_returning"`
	LastReported      int64    `json:"last_reported"`
}

// flexBool accepts both the 0/1 integers of GBFS 1.x and the booleans of 2.x.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "null":
		return nil
	case "true":
		*b = true
		return nil
	case "false":
		*b = false
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid boolean %q", data)
	}
	*b = n != 0
	return nil
}
