// Package api holds the HTTP plumbing shared by the upstream clients.
package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danpilch/transitpal/internal/metrics"
)

const UserAgent = "transitpal/1.0"

// latencyTrackingRoundTripper records the latency of every outgoing request in
// metrics.OutgoingLatency, labelled without the query string so API keys never
// reach a label.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	metrics.OutgoingLatency.WithLabelValues(safeURL, req.Method, status).Observe(duration)

	return resp, err
}

// NewPooledClient returns the HTTP client shared by the train, bus and bike
// clients. Requests are polled every minute, so idle connections are kept long
// enough to be reused between cycles; the 10s client timeout bounds one fetch.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   10 * time.Second,
	}
}
