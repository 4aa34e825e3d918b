package train

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/danpilch/transitpal/internal/api"
	"github.com/danpilch/transitpal/internal/transit"
)

const DefaultBaseURL = "https://lapi.transitchicago.com"

// MaxStationsPerRequest is the upstream limit on mapid parameters.
const MaxStationsPerRequest = 4

// Client is a CTA Train Tracker client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	loc        *time.Location
}

// NewClient creates a new Train Tracker client. Times in responses are read in loc.
func NewClient(httpClient *http.Client, baseURL, apiKey string, loc *time.Location) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		loc:        loc,
	}
}

// Arrivals retrieves the predicted arrivals for up to MaxStationsPerRequest stations.
func (c *Client) Arrivals(ctx context.Context, stationIDs []string) ([]transit.TrainArrival, error) {
	if len(stationIDs) == 0 {
		return nil, nil
	}
	if len(stationIDs) > MaxStationsPerRequest {
		return nil, fmt.Errorf("too many stations: %d > %d", len(stationIDs), MaxStationsPerRequest)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("outputType", "JSON")
	for _, id := range stationIDs {
		q.Add("mapid", id)
	}
	endpoint := c.baseURL + "/api/1.0/ttarrivals.aspx?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", api.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result ArrivalsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.CTATT.ErrCode != "" && result.CTATT.ErrCode != "0" {
		name := ""
		if result.CTATT.ErrName != nil {
			name = *result.CTATT.ErrName
		}
		return nil, fmt.Errorf("train tracker error %s: %s", result.CTATT.ErrCode, name)
	}

	arrivals := make([]transit.TrainArrival, 0, len(result.CTATT.ETA))
	for _, eta := range result.CTATT.ETA {
		a, err := eta.Arrival(c.loc)
		if err != nil {
			return nil, err
		}
		arrivals = append(arrivals, a)
	}
	return arrivals, nil
}
