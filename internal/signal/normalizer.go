// Package signal normalizes raw collaborator output into the uniform
// SituationContext consumed by the decision engine.
//
// The normalizer is a pure transform: no network I/O, no clock reads, no
// hidden state. Malformed upstream data is coerced to documented neutral
// values rather than erroring, so a decision cycle is never blocked on a
// flaky provider.
package signal

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/citypulse/pulsebot/internal/models"
)

// Neutral defaults substituted when an upstream signal is missing entirely.
var (
	// DefaultTraffic models light traffic: a small deficit against free flow.
	DefaultTraffic = models.TrafficData{CongestionLevel: 0.1, FreeFlowSpeed: 65, CurrentSpeed: 58}
	// DefaultWeather models an unremarkable clear day.
	DefaultWeather = models.WeatherData{Condition: models.ConditionClear, Temperature: 72, FeelsLike: 72, Humidity: 50}
)

// eventBucket pairs a keyword list with its template category. Order matters:
// the first bucket whose keyword matches wins. Festival precedes food, so
// "Food Truck Fest" is a festival even though it also names food. The fixed
// priority is sports, concert, festival, comedy, arts, food.
type eventBucket struct {
	category models.TemplateCategory
	keywords []string
}

var eventBuckets = []eventBucket{
	{models.CategorySports, []string{" vs ", " vs. ", " @ ", "match", "game night"}},
	{models.CategoryConcert, []string{"tour", "concert", "live music", "in concert"}},
	{models.CategoryFestival, []string{"fest", "fair", "carnival"}},
	{models.CategoryComedy, []string{"comedy", "stand-up", "standup", "improv"}},
	{models.CategoryArts, []string{"broadway", "musical", "theatre", "theater", "ballet", "symphony", "play"}},
	{models.CategoryFood, []string{"food", "wine", "culinary", "tasting", "brew"}},
}

// CategorizeEvent matches an event name against the ordered keyword buckets
// (case-insensitive) and returns the first matching template category, or
// CategoryOther when nothing matches.
func CategorizeEvent(name string) models.TemplateCategory {
	lower := " " + strings.ToLower(name) + " "
	for _, b := range eventBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b.category
			}
		}
	}
	return models.CategoryOther
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
var multiSpace = regexp.MustCompile(` +`)

// NormalizeEventName lowers the name, strips punctuation, and collapses
// whitespace. Idempotent: normalizing an already-normalized name is a no-op.
func NormalizeEventName(name string) string {
	n := strings.ToLower(name)
	n = nonAlnum.ReplaceAllString(n, " ")
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// DedupeEvents drops events whose names normalize to the same string, keeping
// the first occurrence. Input order is otherwise preserved.
func DedupeEvents(events []models.EventData) []models.EventData {
	seen := make(map[string]bool, len(events))
	out := make([]models.EventData, 0, len(events))
	for _, e := range events {
		key := NormalizeEventName(e.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// ClampCongestion bounds a congestion ratio to [0,1]. NaN-free inputs are the
// providers' responsibility; out-of-range values are clamped, not rejected.
func ClampCongestion(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// ParseCondition maps a raw provider condition string onto the normalized
// enum. Unknown strings are treated as "clouds" (mild, neutral) rather than
// erroring — fail soft.
func ParseCondition(raw string) models.WeatherCondition {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "clear", "sunny":
		return models.ConditionClear
	case "clouds", "cloudy", "overcast", "mist", "fog", "haze":
		return models.ConditionClouds
	case "rain", "drizzle", "showers", "snow":
		return models.ConditionRain
	case "storm", "thunderstorm", "tornado", "squall":
		return models.ConditionStorm
	case "cold":
		return models.ConditionCold
	case "hot":
		return models.ConditionHot
	default:
		slog.Debug("signal.ParseCondition: unknown condition, defaulting to clouds", "raw", raw)
		return models.ConditionClouds
	}
}

// BuildSituationContext assembles the decision engine's sole input from
// collaborator output. Nil traffic/weather pointers take the neutral
// defaults; events are categorized, deduplicated, and sorted by start time.
func BuildSituationContext(city string, traffic *models.TrafficData, weather *models.WeatherData, events []models.EventData, now time.Time) models.SituationContext {
	ctx := models.SituationContext{City: city, Now: now}

	if traffic != nil {
		ctx.Traffic = *traffic
		ctx.Traffic.CongestionLevel = ClampCongestion(traffic.CongestionLevel)
	} else {
		ctx.Traffic = DefaultTraffic
	}

	if weather != nil {
		ctx.Weather = *weather
		if !isKnownCondition(weather.Condition) {
			ctx.Weather.Condition = ParseCondition(string(weather.Condition))
		}
	} else {
		ctx.Weather = DefaultWeather
	}

	deduped := DedupeEvents(events)
	for i := range deduped {
		if deduped[i].Category == "" || !isEventCategory(deduped[i].Category) {
			deduped[i].Category = CategorizeEvent(deduped[i].Name)
		}
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].StartTime.Before(deduped[j].StartTime)
	})
	ctx.Events = deduped

	return ctx
}

func isKnownCondition(c models.WeatherCondition) bool {
	switch c {
	case models.ConditionClear, models.ConditionClouds, models.ConditionRain,
		models.ConditionStorm, models.ConditionCold, models.ConditionHot:
		return true
	default:
		return false
	}
}

func isEventCategory(c models.TemplateCategory) bool {
	switch c {
	case models.CategorySports, models.CategoryConcert, models.CategoryFestival,
		models.CategoryComedy, models.CategoryArts, models.CategoryFood, models.CategoryOther:
		return true
	default:
		return false
	}
}
