// Package decision implements the situational content-decision engine.
//
// Given one cycle's SituationContext it decides whether a bot post is
// warranted, which category it belongs to, and how urgent it is. Silence is a
// first-class outcome: under normal conditions the engine returns
// ShouldPost=false, because synthetic noise is worse than synthetic silence.
package decision

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/util"
)

// Threshold and priority constants. These are tunable product constants,
// not physical law.
const (
	// Weather extremes.
	FreezingTempF     = 32.0
	HardFreezeTempF   = 20.0
	HeatAdvisoryTempF = 100.0
	ExtremeHeatTempF  = 105.0

	// Traffic congestion bands.
	SevereCongestion   = 0.65
	HeavyCongestion    = 0.45
	ModerateCongestion = 0.25

	// Event look-ahead.
	EventLookahead    = 4 * time.Hour
	ImminentWindow    = time.Hour
	ImminentFloor     = 6
	eventPriorityBase = 4

	// General fallback.
	DefaultGeneralChance   = 0.15
	generalPriority        = 2
	maxPriority            = 9
)

// Window is a daily wall-clock interval, e.g. 07:00-09:30.
type Window struct {
	StartHour, StartMin int
	EndHour, EndMin     int
}

// Contains reports whether the wall-clock time of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	mins := t.Hour()*60 + t.Minute()
	return mins >= w.StartHour*60+w.StartMin && mins < w.EndHour*60+w.EndMin
}

// DefaultRushWindows are the default morning and evening rush-hour windows,
// evaluated against the context's already-localized wall clock.
var DefaultRushWindows = []Window{
	{StartHour: 7, EndHour: 9, EndMin: 30},
	{StartHour: 16, EndHour: 18, EndMin: 30},
}

// Config tunes the engine. Zero values take the documented defaults.
type Config struct {
	// RushWindows are the daily windows in which traffic priorities get a
	// one-point bump. The caller localizes SituationContext.Now to the
	// city's (or deployment's) reference zone before analysis.
	RushWindows []Window
	// GeneralChance is the per-cycle probability of the low-priority
	// general fallback firing when nothing else qualifies.
	GeneralChance float64
}

// Engine scores situations and selects at most one post category.
type Engine struct {
	cfg Config
	rng util.Rand
}

// NewEngine creates an engine with the given config and randomness source.
// A nil rng gets an independently seeded source.
func NewEngine(cfg Config, rng util.Rand) *Engine {
	if len(cfg.RushWindows) == 0 {
		cfg.RushWindows = DefaultRushWindows
	}
	if cfg.GeneralChance == 0 {
		cfg.GeneralChance = DefaultGeneralChance
	}
	if rng == nil {
		rng = util.NewRand()
	}
	return &Engine{cfg: cfg, rng: rng}
}

// AnalyzeForPost evaluates all candidate categories against the context and
// returns the highest-priority qualifying decision. Ties resolve in the fixed
// order Weather > Traffic > Events > General. ShouldPost=false is the normal
// outcome for unremarkable conditions.
func (e *Engine) AnalyzeForPost(ctx models.SituationContext) models.PostDecision {
	best := models.PostDecision{}
	for _, c := range e.Candidates(ctx) {
		// Strictly-greater keeps the evaluation order as the tie-break.
		if c.ShouldPost && c.Priority > best.Priority {
			best = c
		}
	}

	if !best.ShouldPost {
		slog.Debug("Engine.AnalyzeForPost: no qualifying category, staying silent",
			"city", ctx.City, "congestion", ctx.Traffic.CongestionLevel,
			"condition", ctx.Weather.Condition, "events", len(ctx.Events))
		return models.PostDecision{Reason: "quiet conditions"}
	}

	slog.Debug("Engine.AnalyzeForPost: decision made", "city", ctx.City,
		"post_type", best.PostType, "category", best.TemplateCategory,
		"priority", best.Priority, "reason", best.Reason)
	return best
}

// Candidates evaluates every category and returns the full candidate list in
// tie-break order (Weather, Traffic, Events, General). Entries with
// ShouldPost=false did not qualify. The cold-start path uses the whole list
// to build a varied batch; AnalyzeForPost picks the single best entry.
func (e *Engine) Candidates(ctx models.SituationContext) []models.PostDecision {
	return []models.PostDecision{
		e.analyzeWeather(ctx),
		e.analyzeTraffic(ctx),
		e.analyzeEvents(ctx),
		e.analyzeGeneral(ctx),
	}
}

// analyzeWeather triggers on safety-relevant extremes: storms, freezing cold,
// and heat advisories. Highest base priority of all categories.
func (e *Engine) analyzeWeather(ctx models.SituationContext) models.PostDecision {
	w := ctx.Weather
	switch {
	case w.Condition == models.ConditionStorm:
		return models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeWeather,
			TemplateCategory: models.CategoryStorm, Priority: 9,
			Reason: "storm conditions",
		}
	case w.Temperature < FreezingTempF:
		p := 8
		if w.Temperature <= HardFreezeTempF {
			p = 9
		}
		return models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeWeather,
			TemplateCategory: models.CategoryCold, Priority: p,
			Reason: fmt.Sprintf("freezing temperature %.0fF", w.Temperature),
		}
	case w.Temperature > HeatAdvisoryTempF:
		p := 8
		if w.Temperature >= ExtremeHeatTempF {
			p = 9
		}
		return models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeWeather,
			TemplateCategory: models.CategoryHeat, Priority: p,
			Reason: fmt.Sprintf("heat advisory %.0fF", w.Temperature),
		}
	}
	return models.PostDecision{}
}

// analyzeTraffic scales priority with congestion. Below the moderate band it
// does not trigger on its own.
func (e *Engine) analyzeTraffic(ctx models.SituationContext) models.PostDecision {
	c := ctx.Traffic.CongestionLevel
	rush := e.inRushHour(ctx.Now)

	switch {
	case c >= SevereCongestion:
		return models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeTraffic,
			TemplateCategory: models.CategorySevere, Priority: 9,
			Reason: fmt.Sprintf("severe congestion %.2f", c),
		}
	case c >= HeavyCongestion:
		p := 7
		if rush {
			p = 8
		}
		return models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeTraffic,
			TemplateCategory: models.CategoryHeavy, Priority: p,
			Reason: fmt.Sprintf("heavy congestion %.2f", c),
		}
	case c >= ModerateCongestion:
		p := 5
		if rush {
			p = 6
		}
		return models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeTraffic,
			TemplateCategory: models.CategoryModerate, Priority: p,
			Reason: fmt.Sprintf("moderate congestion %.2f", c),
		}
	}
	return models.PostDecision{}
}

// analyzeEvents scores the soonest event inside the look-ahead window.
// Priority is inversely proportional to time-to-start, with a floor of 6
// inside the imminent window. Events are already deduplicated and sorted by
// start time by the normalizer.
func (e *Engine) analyzeEvents(ctx models.SituationContext) models.PostDecision {
	for _, ev := range ctx.Events {
		until := ev.StartTime.Sub(ctx.Now)
		if until < 0 || until > EventLookahead {
			continue
		}

		frac := 1 - until.Minutes()/EventLookahead.Minutes()
		p := eventPriorityBase + int(math.Round(4*frac))
		if until <= ImminentWindow && p < ImminentFloor {
			p = ImminentFloor
		}
		if p > maxPriority {
			p = maxPriority
		}

		return models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeEvents,
			TemplateCategory: ev.Category, Priority: p,
			Reason: fmt.Sprintf("event %q starts in %dm", ev.Name, int(until.Minutes())),
		}
	}
	return models.PostDecision{}
}

// analyzeGeneral is the probabilistic low-priority fallback that keeps a city
// from going completely silent without posting every cycle.
func (e *Engine) analyzeGeneral(ctx models.SituationContext) models.PostDecision {
	if !util.Chance(e.rng, e.cfg.GeneralChance) {
		return models.PostDecision{}
	}
	return models.PostDecision{
		ShouldPost: true, PostType: models.PostTypeGeneral,
		TemplateCategory: models.CategoryLocal, Priority: generalPriority,
		Reason: "general fallback",
	}
}

func (e *Engine) inRushHour(t time.Time) bool {
	for _, w := range e.cfg.RushWindows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}
