// Package providers implements the external signal collaborators: traffic,
// weather, and event fetchers over HTTP.
//
// Every fetch carries a bounded timeout and a documented fallback so the core
// never blocks indefinitely on a flaky upstream. Providers consult an
// injected cache before fetching; repeated decision cycles for the same city
// inside the cache TTL reuse one upstream call.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/citypulse/pulsebot/internal/models"
)

// Per-provider timeouts. Traffic is the most latency-sensitive signal;
// events tolerate the slowest upstream.
const (
	TrafficTimeout = 4 * time.Second
	WeatherTimeout = 6 * time.Second
	EventsTimeout  = 12 * time.Second

	// SignalCacheTTL bounds how long a fetched signal is reused.
	SignalCacheTTL = 5 * time.Minute
)

// TrafficProvider fetches road conditions for a city.
// Returns (nil, error) on failure; the caller substitutes the neutral default.
type TrafficProvider interface {
	FetchTraffic(ctx context.Context, city string) (*models.TrafficData, error)
}

// WeatherProvider fetches current weather for a city.
// Returns (nil, error) on failure; the caller substitutes the neutral default.
type WeatherProvider interface {
	FetchWeather(ctx context.Context, city string) (*models.WeatherData, error)
}

// EventsProvider fetches upcoming events near a city. The contract is an
// empty list on failure, never nil with an error, to simplify downstream
// iteration.
type EventsProvider interface {
	FetchEvents(ctx context.Context, city string, radiusMiles float64) []models.EventData
}

// Opts holds configuration shared by the HTTP providers.
type Opts struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Option configures provider constructors.
type Option func(*Opts)

// WithBaseURL overrides the provider's API base URL (used by tests).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithAPIKey sets the provider's API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithHTTPClient overrides the HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.Client = c }
}

// getJSON performs a GET with the given client and decodes the JSON body into
// out. Non-2xx statuses are errors.
func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
