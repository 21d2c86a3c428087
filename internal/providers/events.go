// Package providers implements the external signal collaborators.
//
// This file implements the events provider against a Ticketmaster-style
// discovery API. Per the collaborator contract it returns an empty list on
// failure, never an error, so downstream iteration needs no nil checks.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/citypulse/pulsebot/internal/cache"
	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/signal"
)

const defaultEventsBaseURL = "https://app.ticketmaster.com/discovery/v2"

// HTTPEventsProvider fetches upcoming events from a Ticketmaster-style API.
type HTTPEventsProvider struct {
	opts  Opts
	cache cache.Cache
}

var _ EventsProvider = (*HTTPEventsProvider)(nil)

// NewHTTPEventsProvider creates an events provider. The cache may be nil to
// disable caching.
func NewHTTPEventsProvider(c cache.Cache, opts ...Option) *HTTPEventsProvider {
	cfg := Opts{BaseURL: defaultEventsBaseURL, Client: &http.Client{Timeout: EventsTimeout}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPEventsProvider{opts: cfg, cache: c}
}

type discoveryResponse struct {
	Embedded struct {
		Events []struct {
			Name  string `json:"name"`
			Dates struct {
				Start struct {
					DateTime string `json:"dateTime"`
				} `json:"start"`
			} `json:"dates"`
			Embedded struct {
				Venues []struct {
					Name     string `json:"name"`
					Distance string `json:"distance"`
				} `json:"venues"`
			} `json:"_embedded"`
		} `json:"events"`
	} `json:"_embedded"`
}

// FetchEvents returns upcoming events within radiusMiles of the city.
// Upstream failures are logged and yield an empty list.
func (p *HTTPEventsProvider) FetchEvents(ctx context.Context, city string, radiusMiles float64) []models.EventData {
	key := fmt.Sprintf("events:%s:%.0f", city, radiusMiles)
	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if evs, ok := v.([]models.EventData); ok {
				slog.Debug("HTTPEventsProvider.FetchEvents: cache hit", "city", city)
				return evs
			}
		}
	}

	u := fmt.Sprintf("%s/events.json?apikey=%s&city=%s&radius=%.0f&unit=miles&sort=date,asc",
		p.opts.BaseURL, url.QueryEscape(p.opts.APIKey), url.QueryEscape(city), radiusMiles)
	var resp discoveryResponse
	if err := getJSON(ctx, p.opts.Client, u, &resp); err != nil {
		slog.Warn("HTTPEventsProvider.FetchEvents: fetch failed, returning empty list", "city", city, "error", err)
		return []models.EventData{}
	}

	events := make([]models.EventData, 0, len(resp.Embedded.Events))
	for _, e := range resp.Embedded.Events {
		start, err := time.Parse(time.RFC3339, e.Dates.Start.DateTime)
		if err != nil {
			slog.Debug("HTTPEventsProvider.FetchEvents: skipping event with bad start time", "event", e.Name, "raw", e.Dates.Start.DateTime)
			continue
		}
		ev := models.EventData{
			Name:      e.Name,
			StartTime: start,
			Category:  signal.CategorizeEvent(e.Name),
		}
		if len(e.Embedded.Venues) > 0 {
			ev.Venue = e.Embedded.Venues[0].Name
			if d, err := strconv.ParseFloat(e.Embedded.Venues[0].Distance, 64); err == nil {
				ev.DistanceMiles = d
			}
		}
		events = append(events, ev)
	}

	if p.cache != nil {
		p.cache.Set(key, events, SignalCacheTTL)
	}
	slog.Debug("HTTPEventsProvider.FetchEvents: fetched", "city", city, "events", len(events))
	return events
}
