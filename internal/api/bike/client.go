package bike

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/danpilch/transitpal/internal/api"
	"github.com/danpilch/transitpal/internal/transit"
)

const DefaultBaseURL = "https://gbfs.divvybikes.com/gbfs/en"

// Client reads the station feeds of a GBFS system.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Stations retrieves station information and status and joins them on
// station id. The result is ordered by name, then id. Stations missing from the
// status feed are returned with zero availability.
func (c *Client) Stations(ctx context.Context) ([]transit.BikeStation, error) {
	var (
		info   StationInformationResponse
		status StationStatusResponse
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return c.get(ctx, "station_information.json", &info)
	})
	p.Go(func(ctx context.Context) error {
		return c.get(ctx, "station_status.json", &status)
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]StationStatus, len(status.Data.Stations))
	for _, s := range status.Data.Stations {
		byID[s.StationID] = s
	}

	stations := make([]transit.BikeStation, 0, len(info.Data.Stations))
	for _, si := range info.Data.Stations {
		st := transit.BikeStation{
			ID:       si.StationID,
			Name:     si.Name,
			Lat:      si.Lat,
			Lon:      si.Lon,
			Capacity: si.Capacity,
		}
		if ss, ok := byID[si.StationID]; ok {
			st.BikesAvailable = ss.NumBikesAvailable
			st.DocksAvailable = ss.NumDocksAvailable
			st.Renting = bool(ss.IsRenting)
			st.Returning = bool(ss.IsReturning)
			if ss.LastReported > 0 {
				st.LastReported = time.Unix(ss.LastReported, 0)
			}
		}
		stations = append(stations, st)
	}

	slices.SortFunc(stations, func(a, b transit.BikeStation) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return stations, nil
}

func (c *Client) get(ctx context.Context, feed string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+feed, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", api.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status code: %d", feed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding %s: %w", feed, err)
	}
	return nil
}
