// Package models defines the core data structures for PulseBot.
//
// It includes the signal types produced by the external collaborators
// (traffic, weather, events), the situation context consumed by the decision
// engine, and the decision/post artifacts flowing to storage.
package models

import (
	"errors"
	"time"
)

// PostType identifies the high-level category of a bot post.
type PostType string

const (
	// PostTypeTraffic covers congestion and incident posts.
	PostTypeTraffic PostType = "Traffic"
	// PostTypeWeather covers weather condition and advisory posts.
	PostTypeWeather PostType = "Weather"
	// PostTypeEvents covers upcoming local event posts.
	PostTypeEvents PostType = "Events"
	// PostTypeGeneral covers low-priority local color posts.
	PostTypeGeneral PostType = "General"
	// PostTypeNone is the decision outcome when nothing qualifies.
	PostTypeNone PostType = ""
)

// IsValidPostType checks if the given post type is supported.
func IsValidPostType(pt PostType) bool {
	switch pt {
	case PostTypeTraffic, PostTypeWeather, PostTypeEvents, PostTypeGeneral:
		return true
	default:
		return false
	}
}

// TemplateCategory selects the phrasing pool within a post type,
// e.g. Weather -> "storm"/"cold"/"heat"/"clear", Events -> "sports"/"concert"/...
type TemplateCategory string

const (
	// Weather sub-buckets.
	CategoryStorm TemplateCategory = "storm"
	CategoryCold  TemplateCategory = "cold"
	CategoryHeat  TemplateCategory = "heat"
	CategoryClear TemplateCategory = "clear"

	// Traffic sub-buckets.
	CategorySevere   TemplateCategory = "severe"
	CategoryHeavy    TemplateCategory = "heavy"
	CategoryModerate TemplateCategory = "moderate"

	// Event sub-buckets, assigned by the signal normalizer.
	CategorySports   TemplateCategory = "sports"
	CategoryConcert  TemplateCategory = "concert"
	CategoryFestival TemplateCategory = "festival"
	CategoryComedy   TemplateCategory = "comedy"
	CategoryArts     TemplateCategory = "arts"
	CategoryFood     TemplateCategory = "food"
	CategoryOther    TemplateCategory = "other"

	// General sub-bucket.
	CategoryLocal TemplateCategory = "local"
)

// WeatherCondition is the normalized weather state used by the decision engine.
type WeatherCondition string

const (
	ConditionClear  WeatherCondition = "clear"
	ConditionClouds WeatherCondition = "clouds"
	ConditionRain   WeatherCondition = "rain"
	ConditionStorm  WeatherCondition = "storm"
	ConditionCold   WeatherCondition = "cold"
	ConditionHot    WeatherCondition = "hot"
)

// Incident describes a single road incident reported by the traffic provider.
type Incident struct {
	Road        string `json:"road"`
	Description string `json:"description"`
	Severity    int    `json:"severity"` // provider scale, 0-4
}

// TrafficData is one decision cycle's view of road conditions.
// CongestionLevel is the current-to-freeflow speed deficit ratio in [0,1].
type TrafficData struct {
	CongestionLevel float64    `json:"congestion_level"`
	FreeFlowSpeed   float64    `json:"free_flow_speed"`
	CurrentSpeed    float64    `json:"current_speed"`
	Incidents       []Incident `json:"incidents,omitempty"`
}

// WeatherData is one decision cycle's view of weather conditions.
// Temperatures are Fahrenheit.
type WeatherData struct {
	Condition     WeatherCondition `json:"condition"`
	Temperature   float64          `json:"temperature"`
	FeelsLike     float64          `json:"feels_like"`
	Humidity      int              `json:"humidity"`
	UVIndex       float64          `json:"uv_index"`
	WindSpeed     float64          `json:"wind_speed"`
	Precipitation float64          `json:"precipitation"`
}

// EventData is a single upcoming event near the city.
type EventData struct {
	Name               string           `json:"name"`
	Venue              string           `json:"venue"`
	StartTime          time.Time        `json:"start_time"`
	Category           TemplateCategory `json:"category"` // bucket assigned by the normalizer
	ExpectedAttendance int              `json:"expected_attendance,omitempty"`
	DistanceMiles      float64          `json:"distance_miles,omitempty"`
}

// SituationContext aggregates everything the decision engine needs for one
// cycle. It is fully built by the signal normalizer from collaborator output;
// decisions are deterministic given the same context (template and name
// selection is the only randomized step downstream).
type SituationContext struct {
	City    string
	Traffic TrafficData
	Weather WeatherData
	Events  []EventData
	Now     time.Time
}

// PostDecision is the decision engine's output for one cycle.
type PostDecision struct {
	ShouldPost       bool             `json:"should_post"`
	PostType         PostType         `json:"post_type"`
	TemplateCategory TemplateCategory `json:"template_category"`
	Priority         int              `json:"priority"` // 0-10, higher wins
	Reason           string           `json:"reason,omitempty"`
}

// Error variables shared across modules. A no-post outcome is never an
// error; it travels as a structured result with a reason.
var (
	ErrEmptyCity       = errors.New("city cannot be empty")
	ErrInvalidPostType = errors.New("invalid post type")
	ErrStoreClosed     = errors.New("store is closed")
)
