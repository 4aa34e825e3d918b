package bus

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

const DefaultBaseURL = "https://www.ctabustracker.com"

// Client is a CTA Bus Tracker client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	loc        *time.Location
}

// NewClient creates a new Bus Tracker client. Times in responses are read in loc.
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

// Predictions retrieves the predicted arrivals of route at stopID, in every direction.
func (c *Client) Predictions(ctx context.Context, route, stopID string) ([]transit.BusArrival, error) {
	q := url.Values{}
	q.Set("rt", route)
	q.Set("stpid", stopID)

	var result PredictionsResponse
	if err := c.get(ctx, "getpredictions", q, &result); err != nil {
		return nil, err
	}

	if len(result.Body.Predictions) == 0 && len(result.Body.Errors) > 0 {
		for _, e := range result.Body.Errors {
			if !e.IsNoService() {
				return nil, fmt.Errorf("bus tracker error: %s", joinErrors(result.Body.Errors))
			}
		}
		return []transit.BusArrival{}, nil
	}

	arrivals := make([]transit.BusArrival, 0, len(result.Body.Predictions))
	for _, p := range result.Body.Predictions {
		a, err := p.Arrival(c.loc)
		if err != nil {
			return nil, err
		}
		arrivals = append(arrivals, a)
	}
	return arrivals, nil
}

// Routes retrieves the route catalog.
func (c *Client) Routes(ctx context.Context) ([]transit.BusRoute, error) {
	var result RoutesResponse
	if err := c.get(ctx, "getroutes", url.Values{}, &result); err != nil {
		return nil, err
	}
	if len(result.Body.Routes) == 0 && len(result.Body.Errors) > 0 {
		return nil, fmt.Errorf("bus tracker error: %s", joinErrors(result.Body.Errors))
	}

	routes := make([]transit.BusRoute, 0, len(result.Body.Routes))
	for _, r := range result.Body.Routes {
		routes = append(routes, transit.BusRoute{ID: r.ID, Name: r.Name, Color: r.Color})
	}
	return routes, nil
}

func (c *Client) get(ctx context.Context, method string, q url.Values, into any) error {
	q.Set("key", c.apiKey)
	q.Set("format", "json")
	endpoint := c.baseURL + "/bustime/api/v2/" + method + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
