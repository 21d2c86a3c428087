// Package render turns a post decision plus situation context into final
// feed-ready text.
package render

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/citypulse/pulsebot/internal/cityprofile"
	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/util"
)

// Radius constants for distance-aware event templates.
const (
	// PrimaryRadiusMiles is the radius inside which events read as local.
	PrimaryRadiusMiles = 10.0
	// ExtendedRadiusMiles is the outer bound for "worth the drive" events.
	ExtendedRadiusMiles = 50.0
)

// Fun-fact injection probabilities per generation path.
const (
	DefaultFunFactChance   = 0.25
	ColdStartFunFactChance = 0.40
)

// Options tunes a single generation call.
type Options struct {
	// Force generates even when the decision says not to post.
	Force bool
	// ColdStart marks the bulk city-seeding path, which injects fun facts
	// more aggressively.
	ColdStart bool
	// FunFactChance overrides the path default when positive; a negative
	// value disables injection (used by tests asserting exact wording).
	FunFactChance float64
}

// Renderer fills category-specific templates with localized variables.
type Renderer struct {
	profiles *cityprofile.Store
	rng      util.Rand
}

// NewRenderer creates a renderer over the given profile store. A nil rng gets
// an independently seeded source.
func NewRenderer(profiles *cityprofile.Store, rng util.Rand) *Renderer {
	if rng == nil {
		rng = util.NewRand()
	}
	return &Renderer{profiles: profiles, rng: rng}
}

// GeneratePost renders the decision into a finished post. Returns (nil, nil)
// when the decision says not to post and Force is unset. Rendering never
// fails on missing city data; generic wording fills the gaps.
func (r *Renderer) GeneratePost(ctx models.SituationContext, d models.PostDecision, opts Options) (*models.GeneratedPost, error) {
	if !d.ShouldPost && !opts.Force {
		return nil, nil
	}
	if ctx.City == "" {
		return nil, models.ErrEmptyCity
	}
	if !d.ShouldPost {
		// Forced generation with nothing qualifying falls back to general.
		d = models.PostDecision{ShouldPost: true, PostType: models.PostTypeGeneral, TemplateCategory: models.CategoryLocal}
	}

	profile := r.profiles.Lookup(ctx.City)
	event, distant := r.selectEvent(ctx, d)

	tmpl := r.selectTemplate(d, distant)
	message := r.expand(tmpl.text, profile, ctx, event)

	if r.funFactFires(opts) {
		if fact := r.pickFunFact(profile, d.PostType); fact != "" {
			leadIn := util.Pick(r.rng, funFactLeadIns)
			message = fmt.Sprintf("%s %s %s", message, leadIn, fact)
		} else {
			slog.Debug("Renderer.GeneratePost: no fun fact available for city", "city", ctx.City, "post_type", d.PostType)
		}
	}

	post := &models.GeneratedPost{
		Message:     message,
		Tag:         d.PostType,
		Category:    d.TemplateCategory,
		Mood:        moodFor(d),
		Author:      r.authorFor(d.PostType, profile),
		IsBot:       true,
		PollOptions: tmpl.poll,
	}
	return post, nil
}

// selectEvent picks the event the decision refers to: the soonest one whose
// category matches, else the soonest overall. The bool reports whether the
// distant template pool applies.
func (r *Renderer) selectEvent(ctx models.SituationContext, d models.PostDecision) (models.EventData, bool) {
	if d.PostType != models.PostTypeEvents || len(ctx.Events) == 0 {
		return models.EventData{}, false
	}
	chosen := ctx.Events[0]
	for _, e := range ctx.Events {
		if e.Category == d.TemplateCategory {
			chosen = e
			break
		}
	}
	distant := chosen.DistanceMiles > PrimaryRadiusMiles && chosen.DistanceMiles <= ExtendedRadiusMiles
	return chosen, distant
}

func (r *Renderer) selectTemplate(d models.PostDecision, distant bool) template {
	if distant {
		return util.Pick(r.rng, distantEventPool)
	}
	if pool, ok := pools[poolKey{d.PostType, d.TemplateCategory}]; ok {
		return util.Pick(r.rng, pool)
	}
	slog.Warn("Renderer.selectTemplate: no pool for decision, using fallback wording",
		"post_type", d.PostType, "category", d.TemplateCategory)
	return util.Pick(r.rng, fallbackPool)
}

// expand substitutes every placeholder the template pools use. Each variable
// has a non-empty value by construction, so no literal token survives.
func (r *Renderer) expand(text string, profile cityprofile.Profile, ctx models.SituationContext, event models.EventData) string {
	city := profile.Name
	if city == "" {
		city = ctx.City
	}

	venue := event.Venue
	if venue == "" {
		venue = profile.Venue(r.rng.IntN(1 << 16))
	}
	eventName := event.Name
	if eventName == "" {
		eventName = "a local get-together"
	}

	pairs := []string{
		"{city}", city,
		"{road}", profile.Road(r.rng.IntN(1 << 16)),
		"{highway}", profile.Highway(r.rng.IntN(1 << 16)),
		"{landmark}", profile.Landmark(r.rng.IntN(1 << 16)),
		"{venue}", venue,
		"{event}", eventName,
		"{temp}", strconv.Itoa(int(ctx.Weather.Temperature)),
		"{distance}", strconv.Itoa(roundDistance(event.DistanceMiles)),
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// funFactFires rolls the injection probability. A negative override disables
// injection entirely; zero takes the path default.
func (r *Renderer) funFactFires(opts Options) bool {
	chance := opts.FunFactChance
	if chance < 0 {
		return false
	}
	if chance == 0 {
		chance = DefaultFunFactChance
		if opts.ColdStart {
			chance = ColdStartFunFactChance
		}
	}
	return util.Chance(r.rng, chance)
}

// pickFunFact prefers a fact keyed by the post's own category, then any
// category the profile knows, then a cuisine fact for general posts.
func (r *Renderer) pickFunFact(profile cityprofile.Profile, pt models.PostType) string {
	if fact := profile.FunFact(string(pt), r.rng.IntN(1<<16)); fact != "" {
		return fact
	}
	if pt == models.PostTypeGeneral {
		for cuisine := range profile.Cuisine {
			if fact := profile.CuisineFact(cuisine, r.rng.IntN(1<<16)); fact != "" {
				return fact
			}
		}
	}
	cats := profile.FunFactCategories()
	if len(cats) == 0 {
		return ""
	}
	return profile.FunFact(util.Pick(r.rng, cats), r.rng.IntN(1<<16))
}

// authorFor builds the synthetic display name "{persona}_{city-slug}".
func (r *Renderer) authorFor(pt models.PostType, profile cityprofile.Profile) string {
	pool, ok := personas[pt]
	if !ok {
		pool = personas[models.PostTypeGeneral]
	}
	return util.Pick(r.rng, pool) + "_" + profile.Slug()
}

func moodFor(d models.PostDecision) string {
	if m, ok := moods[poolKey{d.PostType, d.TemplateCategory}]; ok {
		return m
	}
	return defaultMood
}

func roundDistance(miles float64) int {
	n := int(miles + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}
