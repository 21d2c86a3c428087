// Package providers implements the external signal collaborators.
//
// This file implements the weather provider against an OpenWeather-style
// current conditions API. Temperatures are requested in Fahrenheit.
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

const defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// HTTPWeatherProvider fetches current conditions from an OpenWeather-style API.
type HTTPWeatherProvider struct {
	opts  Opts
	cache cache.Cache
}

var _ WeatherProvider = (*HTTPWeatherProvider)(nil)

// NewHTTPWeatherProvider creates a weather provider. The cache may be nil to
// disable caching.
func NewHTTPWeatherProvider(c cache.Cache, opts ...Option) *HTTPWeatherProvider {
	cfg := Opts{BaseURL: defaultWeatherBaseURL, Client: &http.Client{Timeout: WeatherTimeout}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPWeatherProvider{opts: cfg, cache: c}
}

type currentWeatherResponse struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

// FetchWeather returns current conditions for the city. Unknown condition
// strings normalize to "clouds" downstream, so any upstream vocabulary is safe.
func (p *HTTPWeatherProvider) FetchWeather(ctx context.Context, city string) (*models.WeatherData, error) {
	key := "weather:" + city
	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if wd, ok := v.(*models.WeatherData); ok {
				slog.Debug("HTTPWeatherProvider.FetchWeather: cache hit", "city", city)
				return wd, nil
			}
		}
	}

	u := fmt.Sprintf("%s/weather?q=%s&units=imperial&appid=%s",
		p.opts.BaseURL, url.QueryEscape(city), url.QueryEscape(p.opts.APIKey))
	var resp currentWeatherResponse
	if err := getJSON(ctx, p.opts.Client, u, &resp); err != nil {
		slog.Warn("HTTPWeatherProvider.FetchWeather: fetch failed", "city", city, "error", err)
		return nil, fmt.Errorf("weather fetch for %s failed: %w", city, err)
	}

	condition := ""
	if len(resp.Weather) > 0 {
		condition = resp.Weather[0].Main
	}
	data := &models.WeatherData{
		Condition:     signal.ParseCondition(condition),
		Temperature:   resp.Main.Temp,
		FeelsLike:     resp.Main.FeelsLike,
		Humidity:      resp.Main.Humidity,
		WindSpeed:     resp.Wind.Speed,
		Precipitation: resp.Rain.OneHour,
	}

	if p.cache != nil {
		p.cache.Set(key, data, SignalCacheTTL)
	}
	slog.Debug("HTTPWeatherProvider.FetchWeather: fetched", "city", city, "condition", data.Condition, "temp", data.Temperature)
	return data, nil
}
