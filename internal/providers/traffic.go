// Package providers implements the external signal collaborators.
//
// This file implements the traffic provider against a TomTom-style flow
// segment API.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/citypulse/pulsebot/internal/cache"
	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/signal"
)

const defaultTrafficBaseURL = "https://api.tomtom.com/traffic/services/4"

// HTTPTrafficProvider fetches flow data from a TomTom-style API.
type HTTPTrafficProvider struct {
	opts  Opts
	cache cache.Cache
}

var _ TrafficProvider = (*HTTPTrafficProvider)(nil)

// NewHTTPTrafficProvider creates a traffic provider. The cache may be nil to
// disable caching.
func NewHTTPTrafficProvider(c cache.Cache, opts ...Option) *HTTPTrafficProvider {
	cfg := Opts{BaseURL: defaultTrafficBaseURL, Client: &http.Client{Timeout: TrafficTimeout}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPTrafficProvider{opts: cfg, cache: c}
}

type flowSegmentResponse struct {
	FlowSegmentData struct {
		CurrentSpeed  float64 `json:"currentSpeed"`
		FreeFlowSpeed float64 `json:"freeFlowSpeed"`
		RoadClosure   bool    `json:"roadClosure"`
	} `json:"flowSegmentData"`
}

// FetchTraffic returns current road conditions for the city.
// Congestion is the current-to-freeflow speed deficit, clamped to [0,1].
func (p *HTTPTrafficProvider) FetchTraffic(ctx context.Context, city string) (*models.TrafficData, error) {
	key := "traffic:" + city
	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if td, ok := v.(*models.TrafficData); ok {
				slog.Debug("HTTPTrafficProvider.FetchTraffic: cache hit", "city", city)
				return td, nil
			}
		}
	}

	u := fmt.Sprintf("%s/flowSegmentData/absolute/10/json?key=%s&city=%s",
		p.opts.BaseURL, url.QueryEscape(p.opts.APIKey), url.QueryEscape(city))
	var resp flowSegmentResponse
	if err := getJSON(ctx, p.opts.Client, u, &resp); err != nil {
		slog.Warn("HTTPTrafficProvider.FetchTraffic: fetch failed", "city", city, "error", err)
		return nil, fmt.Errorf("traffic fetch for %s failed: %w", city, err)
	}

	data := &models.TrafficData{
		FreeFlowSpeed: resp.FlowSegmentData.FreeFlowSpeed,
		CurrentSpeed:  resp.FlowSegmentData.CurrentSpeed,
	}
	if resp.FlowSegmentData.FreeFlowSpeed > 0 {
		deficit := 1 - resp.FlowSegmentData.CurrentSpeed/resp.FlowSegmentData.FreeFlowSpeed
		data.CongestionLevel = signal.ClampCongestion(deficit)
	}
	if resp.FlowSegmentData.RoadClosure {
		data.Incidents = append(data.Incidents, models.Incident{Description: "road closure reported", Severity: 3})
	}

	if p.cache != nil {
		p.cache.Set(key, data, SignalCacheTTL)
	}
	slog.Debug("HTTPTrafficProvider.FetchTraffic: fetched", "city", city, "congestion", data.CongestionLevel)
	return data, nil
}
