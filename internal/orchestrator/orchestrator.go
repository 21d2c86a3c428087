// Package orchestrator drives one city's bot-content cycle: fetch signals,
// decide, render, and store, while enforcing cooldowns, the live-post cap,
// and organic-looking timestamps.
//
// Generation is all-or-nothing per post: nothing is committed unless the
// message, tag, and mood are all resolved and the caller's context is still
// live. A skipped cycle (cooldown, quiet conditions) is a normal structured
// result, not an error; only storage failures surface as errors.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citypulse/pulsebot/internal/cityprofile"
	"github.com/citypulse/pulsebot/internal/decision"
	"github.com/citypulse/pulsebot/internal/metrics"
	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/notify"
	"github.com/citypulse/pulsebot/internal/providers"
	"github.com/citypulse/pulsebot/internal/render"
	"github.com/citypulse/pulsebot/internal/signal"
	"github.com/citypulse/pulsebot/internal/store"
	"github.com/citypulse/pulsebot/internal/util"
)

// Defaults for the orchestration policy.
const (
	// DefaultCooldown is the rolling window in which a (city, tag) pair
	// may hold at most one routine bot post.
	DefaultCooldown = 2 * time.Hour
	// DefaultMaxLivePosts caps live bot posts per city.
	DefaultMaxLivePosts = 7
	// DefaultEventRadiusMiles is the search radius passed to the events
	// collaborator (the renderer's extended radius).
	DefaultEventRadiusMiles = 50.0
	// DefaultTimezone is the reference zone for rush-hour detection when a
	// city profile does not carry its own.
	DefaultTimezone = "America/Chicago"

	// Cold-start batch sizing and timestamp staggering.
	DefaultColdStartCount = 4
	MaxColdStartCount     = 8
	minStaggerGap         = 3 * time.Minute
	maxStaggerGap         = 12 * time.Minute
)

// Per-tag time-to-live: short for perishable signals, long for durable ones.
var postTTLs = map[models.PostType]time.Duration{
	models.PostTypeTraffic: 2 * time.Hour,
	models.PostTypeWeather: 2 * time.Hour,
	models.PostTypeEvents:  12 * time.Hour,
	models.PostTypeGeneral: 8 * time.Hour,
}

// TTLFor returns the expiry window for a post tag.
func TTLFor(tag models.PostType) time.Duration {
	if ttl, ok := postTTLs[tag]; ok {
		return ttl
	}
	return 2 * time.Hour
}

// Config tunes the orchestrator. Zero values take the documented defaults.
type Config struct {
	Cooldown         time.Duration
	MaxLivePosts     int
	EventRadiusMiles float64
	// Timezone is the reference zone for rush-hour logic; a city profile's
	// own timezone wins when configured.
	Timezone string
	// Subscribers maps normalized city names to notification recipients.
	Subscribers map[string][]string
}

// GenerateOptions tunes a single-post generation call.
type GenerateOptions struct {
	// Force bypasses the cooldown check and generates even under quiet
	// conditions.
	Force bool
}

// ColdStartOptions tunes a batch-seeding call.
type ColdStartOptions struct {
	// Count is the number of candidate posts to aim for (default 4, max 8).
	Count int
	// Force salts every slot key so the batch bypasses cooldown guards.
	Force bool
}

// Orchestrator wires the signal collaborators, decision engine, renderer,
// store, and notifier into one generation pipeline.
type Orchestrator struct {
	store    store.Store
	traffic  providers.TrafficProvider
	weather  providers.WeatherProvider
	events   providers.EventsProvider
	profiles *cityprofile.Store
	engine   *decision.Engine
	renderer *render.Renderer
	notifier notify.Service
	rng      util.Rand
	cfg      Config
	now      func() time.Time

	locMu sync.Mutex
	locs  map[string]*time.Location
}

// New creates an orchestrator. A nil notifier gets the no-op backend; a nil
// rng gets an independently seeded source.
func New(st store.Store, traffic providers.TrafficProvider, weather providers.WeatherProvider, events providers.EventsProvider,
	profiles *cityprofile.Store, engine *decision.Engine, renderer *render.Renderer, notifier notify.Service, rng util.Rand, cfg Config) *Orchestrator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.MaxLivePosts <= 0 {
		cfg.MaxLivePosts = DefaultMaxLivePosts
	}
	if cfg.EventRadiusMiles <= 0 {
		cfg.EventRadiusMiles = DefaultEventRadiusMiles
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if notifier == nil {
		notifier = notify.NoopService{}
	}
	if rng == nil {
		rng = util.NewRand()
	}
	return &Orchestrator{
		store:    st,
		traffic:  traffic,
		weather:  weather,
		events:   events,
		profiles: profiles,
		engine:   engine,
		renderer: renderer,
		notifier: notifier,
		rng:      rng,
		cfg:      cfg,
		now:      time.Now,
		locs:     make(map[string]*time.Location),
	}
}

// WithClock overrides the wall clock for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// GenerateIntelligentPost runs one routine generation cycle for a city.
func (o *Orchestrator) GenerateIntelligentPost(ctx context.Context, city string, opts GenerateOptions) (models.PostResult, error) {
	cityKey := cityprofile.NormalizeCityName(city)
	if cityKey == "" {
		return models.PostResult{}, models.ErrEmptyCity
	}

	profile := o.profiles.Lookup(city)
	now := o.now().In(o.locationFor(profile))
	sctx := o.buildContext(ctx, city, profile, now)

	d := o.engine.AnalyzeForPost(sctx)
	if !d.ShouldPost && !opts.Force {
		metrics.GenerationSkips.WithLabelValues(cityKey, "quiet").Inc()
		return models.PostResult{Posted: false, Reason: models.ReasonQuiet}, nil
	}

	if !opts.Force && d.ShouldPost {
		recent, err := o.store.RecentBotPosts(ctx, cityKey, d.PostType, now.Add(-o.cfg.Cooldown))
		if err != nil {
			return models.PostResult{Posted: false, Reason: models.ReasonStoreError}, fmt.Errorf("cooldown check failed: %w", err)
		}
		if len(recent) > 0 {
			slog.Info("Orchestrator.GenerateIntelligentPost: cooldown active, skipping",
				"city", cityKey, "tag", d.PostType, "last_posted", recent[0].CreatedAt)
			metrics.GenerationSkips.WithLabelValues(cityKey, "cooldown").Inc()
			return models.PostResult{Posted: false, Reason: models.ReasonCooldown}, nil
		}
	}

	generated, err := o.renderer.GeneratePost(sctx, d, render.Options{Force: opts.Force})
	if err != nil {
		return models.PostResult{}, fmt.Errorf("render failed for %s: %w", cityKey, err)
	}
	if generated == nil {
		metrics.GenerationSkips.WithLabelValues(cityKey, "quiet").Inc()
		return models.PostResult{Posted: false, Reason: models.ReasonQuiet}, nil
	}

	// All-or-nothing: nothing is committed once the caller has gone away.
	if err := ctx.Err(); err != nil {
		return models.PostResult{}, err
	}

	post := o.toBotPost(cityKey, *generated, now, opts.Force)
	inserted, err := o.store.InsertPosts(ctx, []models.BotPost{post})
	if err != nil {
		return models.PostResult{Posted: false, Reason: models.ReasonStoreError}, fmt.Errorf("insert failed for %s: %w", cityKey, err)
	}
	if inserted == 0 {
		// Another orchestrator run claimed the slot between our cooldown
		// check and the insert; the unique guard turned the race into a skip.
		slog.Info("Orchestrator.GenerateIntelligentPost: slot already claimed, treating as cooldown",
			"city", cityKey, "tag", post.Tag)
		metrics.GenerationSkips.WithLabelValues(cityKey, "duplicate").Inc()
		return models.PostResult{Posted: false, Reason: models.ReasonDuplicate}, nil
	}

	o.enforceCap(ctx, cityKey, now)
	o.fanOutNotifications(cityKey, post)
	metrics.PostsGenerated.WithLabelValues(cityKey, string(post.Tag)).Inc()

	slog.Info("Orchestrator.GenerateIntelligentPost: posted",
		"city", cityKey, "tag", post.Tag, "priority", d.Priority, "author", post.Author)
	return models.PostResult{Posted: true, Post: &post}, nil
}

// GenerateColdStartPosts seeds a city with a varied batch of content. Tags
// are deduplicated within the batch, timestamps are back-dated at randomized
// gaps so the batch reads as organic arrival, and slot keys are salted so the
// burst bypasses routine cooldown guards.
func (o *Orchestrator) GenerateColdStartPosts(ctx context.Context, city string, opts ColdStartOptions) (models.BatchResult, error) {
	cityKey := cityprofile.NormalizeCityName(city)
	if cityKey == "" {
		return models.BatchResult{}, models.ErrEmptyCity
	}
	count := opts.Count
	if count <= 0 {
		count = DefaultColdStartCount
	}
	if count > MaxColdStartCount {
		count = MaxColdStartCount
	}

	profile := o.profiles.Lookup(city)
	now := o.now().In(o.locationFor(profile))
	sctx := o.buildContext(ctx, city, profile, now)

	// Candidate decisions in tie-break order, padded with fillers so even a
	// dead-quiet city gets seeded with variety: a clear-sky weather post
	// (skipped by tag dedupe whenever a real weather signal qualified) and a
	// guaranteed general post.
	candidates := o.engine.Candidates(sctx)
	candidates = append(candidates,
		models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeWeather,
			TemplateCategory: models.CategoryClear, Priority: 1, Reason: "cold start filler",
		},
		models.PostDecision{
			ShouldPost: true, PostType: models.PostTypeGeneral,
			TemplateCategory: models.CategoryLocal, Priority: 1, Reason: "cold start filler",
		})

	seenTags := make(map[models.PostType]bool)
	var generated []models.GeneratedPost
	for _, d := range candidates {
		if len(generated) >= count {
			break
		}
		if !d.ShouldPost || seenTags[d.PostType] {
			continue
		}
		g, err := o.renderer.GeneratePost(sctx, d, render.Options{Force: true, ColdStart: true})
		if err != nil || g == nil {
			continue
		}
		seenTags[d.PostType] = true
		generated = append(generated, *g)
	}
	if len(generated) == 0 {
		return models.BatchResult{Posted: 0, Reason: models.ReasonQuiet}, nil
	}

	if err := ctx.Err(); err != nil {
		return models.BatchResult{}, err
	}

	// Newest first: the lead post carries "now", earlier posts recede into
	// the past at randomized gaps.
	posts := make([]models.BotPost, 0, len(generated))
	ts := now
	for i, g := range generated {
		if i > 0 {
			gapRange := int(maxStaggerGap-minStaggerGap) / int(time.Minute)
			gap := minStaggerGap + time.Duration(o.rng.IntN(gapRange+1))*time.Minute
			ts = ts.Add(-gap)
		}
		p := o.toBotPost(cityKey, g, ts, true)
		posts = append(posts, p)
	}

	inserted, err := o.store.InsertPosts(ctx, posts)
	if err != nil {
		return models.BatchResult{Posted: inserted, Reason: models.ReasonStoreError}, fmt.Errorf("cold start insert failed for %s: %w", cityKey, err)
	}

	o.enforceCap(ctx, cityKey, now)
	for _, p := range posts {
		metrics.PostsGenerated.WithLabelValues(cityKey, string(p.Tag)).Inc()
	}

	slog.Info("Orchestrator.GenerateColdStartPosts: batch seeded",
		"city", cityKey, "requested", count, "inserted", inserted)
	return models.BatchResult{Posted: inserted, Posts: posts}, nil
}

// ExpireOldPosts removes bot posts whose TTL has lapsed. Invoked by the
// maintenance endpoint on behalf of the external cleanup job.
func (o *Orchestrator) ExpireOldPosts(ctx context.Context) (int64, error) {
	return o.store.DeleteExpired(ctx, o.now())
}

// buildContext fetches the three signals sequentially and normalizes them.
// Fetch failures substitute neutral defaults and never abort the cycle.
func (o *Orchestrator) buildContext(ctx context.Context, city string, profile cityprofile.Profile, now time.Time) models.SituationContext {
	var traffic *models.TrafficData
	if o.traffic != nil {
		td, err := o.traffic.FetchTraffic(ctx, city)
		if err != nil {
			slog.Warn("Orchestrator.buildContext: traffic fetch failed, using default", "city", city, "error", err)
			metrics.ProviderFailures.WithLabelValues("traffic").Inc()
		} else {
			traffic = td
		}
	}

	var weather *models.WeatherData
	if o.weather != nil {
		wd, err := o.weather.FetchWeather(ctx, city)
		if err != nil {
			slog.Warn("Orchestrator.buildContext: weather fetch failed, using default", "city", city, "error", err)
			metrics.ProviderFailures.WithLabelValues("weather").Inc()
		} else {
			weather = wd
		}
	}

	var events []models.EventData
	if o.events != nil {
		events = o.events.FetchEvents(ctx, city, o.cfg.EventRadiusMiles)
	}

	name := profile.Name
	if name == "" {
		name = city
	}
	return signal.BuildSituationContext(name, traffic, weather, events, now)
}

// toBotPost stamps a generated post with identity, timestamps, expiry, and
// the slot key. Forced and cold-start posts salt the key so the unique guard
// does not reject the deliberate bypass.
func (o *Orchestrator) toBotPost(cityKey string, g models.GeneratedPost, createdAt time.Time, salted bool) models.BotPost {
	id := uuid.NewString()
	slotKey := store.SlotKey(cityKey, g.Tag, createdAt, o.cfg.Cooldown)
	if salted {
		slotKey = slotKey + "|" + id
	}
	return models.BotPost{
		ID:        id,
		City:      cityKey,
		Message:   g.Message,
		Tag:       g.Tag,
		Mood:      g.Mood,
		Author:    g.Author,
		IsBot:     true,
		SlotKey:   slotKey,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(TTLFor(g.Tag)),
	}
}

// enforceCap marks the oldest excess live bot posts for deletion. Failures
// are logged only; the cap is advisory housekeeping, not correctness.
func (o *Orchestrator) enforceCap(ctx context.Context, cityKey string, now time.Time) {
	live, err := o.store.LiveBotPosts(ctx, cityKey, now)
	if err != nil {
		slog.Warn("Orchestrator.enforceCap: live query failed", "city", cityKey, "error", err)
		return
	}
	if len(live) <= o.cfg.MaxLivePosts {
		return
	}
	var excess []string
	for _, p := range live[o.cfg.MaxLivePosts:] {
		excess = append(excess, p.ID)
	}
	if err := o.store.DeletePosts(ctx, excess); err != nil {
		slog.Warn("Orchestrator.enforceCap: delete failed", "city", cityKey, "error", err)
		return
	}
	slog.Debug("Orchestrator.enforceCap: trimmed excess bot posts", "city", cityKey, "deleted", len(excess))
}

// fanOutNotifications tells the city's subscribers about a fresh post.
// Fire-and-forget: delivery runs on its own goroutine with its own deadline
// and never blocks or fails the generation cycle.
func (o *Orchestrator) fanOutNotifications(cityKey string, post models.BotPost) {
	recipients := o.cfg.Subscribers[cityKey]
	if len(recipients) == 0 {
		return
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		title := fmt.Sprintf("New in %s", post.City)
		for _, r := range recipients {
			if err := o.notifier.Notify(nctx, r, title, post.Message, "bot_post", map[string]string{"city": post.City, "tag": string(post.Tag)}); err != nil {
				slog.Warn("Orchestrator.fanOutNotifications: delivery failed",
					"backend", o.notifier.Name(), "city", post.City, "error", err)
			}
		}
	}()
}

// locationFor resolves the rush-hour reference zone: the profile's timezone
// when configured, else the deployment default, else UTC.
func (o *Orchestrator) locationFor(profile cityprofile.Profile) *time.Location {
	name := profile.Timezone
	if name == "" {
		name = o.cfg.Timezone
	}

	o.locMu.Lock()
	defer o.locMu.Unlock()
	if loc, ok := o.locs[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("Orchestrator.locationFor: invalid timezone, using UTC", "timezone", name, "error", err)
		loc = time.UTC
	}
	o.locs[name] = loc
	return loc
}
