package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/citypulse/pulsebot/internal/cityprofile"
	"github.com/citypulse/pulsebot/internal/decision"
	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/render"
	"github.com/citypulse/pulsebot/internal/store"
	"github.com/citypulse/pulsebot/internal/util"
)

// 19:00 UTC is 13:00/14:00 in America/Chicago, safely outside both rush
// windows year-round.
var offPeak = time.Date(2026, 3, 5, 19, 0, 0, 0, time.UTC)

// neverRand suppresses the general fallback and makes index picks
// deterministic.
type neverRand struct{}

func (neverRand) IntN(n int) int  { return 0 }
func (neverRand) Float64() float64 { return 1.0 }

type fakeTraffic struct {
	data *models.TrafficData
	err  error
}

func (f *fakeTraffic) FetchTraffic(ctx context.Context, city string) (*models.TrafficData, error) {
	return f.data, f.err
}

type fakeWeather struct {
	data *models.WeatherData
	err  error
}

func (f *fakeWeather) FetchWeather(ctx context.Context, city string) (*models.WeatherData, error) {
	return f.data, f.err
}

type fakeEvents struct {
	events []models.EventData
}

func (f *fakeEvents) FetchEvents(ctx context.Context, city string, radiusMiles float64) []models.EventData {
	return f.events
}

type failingStore struct {
	*store.InMemoryStore
}

func (f *failingStore) InsertPosts(ctx context.Context, posts []models.BotPost) (int, error) {
	return 0, errors.New("connection reset")
}

func testProfiles(t *testing.T) *cityprofile.Store {
	t.Helper()
	profiles, err := cityprofile.Load("")
	if err != nil {
		t.Fatalf("loading embedded profiles: %v", err)
	}
	return profiles
}

// newTestOrchestrator wires an orchestrator around the in-memory store with
// a frozen clock and deterministic randomness.
func newTestOrchestrator(t *testing.T, st store.Store, traffic *models.TrafficData, weather *models.WeatherData, events []models.EventData) *Orchestrator {
	t.Helper()
	profiles := testProfiles(t)
	rng := neverRand{}
	engine := decision.NewEngine(decision.Config{}, rng)
	renderer := render.NewRenderer(profiles, util.NewSeededRand(7))
	o := New(st,
		&fakeTraffic{data: traffic},
		&fakeWeather{data: weather},
		&fakeEvents{events: events},
		profiles, engine, renderer, nil, util.NewSeededRand(7), Config{})
	return o.WithClock(func() time.Time { return offPeak })
}

func TestGenerateSkipsQuietConditions(t *testing.T) {
	o := newTestOrchestrator(t, store.NewInMemoryStore(), nil, nil, nil)

	res, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Posted {
		t.Fatalf("expected no post under quiet conditions, got %+v", res.Post)
	}
	if res.Reason != models.ReasonQuiet {
		t.Errorf("reason = %q, want %q", res.Reason, models.ReasonQuiet)
	}
}

func TestGenerateCooldownOnSecondCall(t *testing.T) {
	traffic := &models.TrafficData{CongestionLevel: 0.7, FreeFlowSpeed: 65, CurrentSpeed: 20}
	st := store.NewInMemoryStore()
	o := newTestOrchestrator(t, st, traffic, nil, nil)

	first, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !first.Posted || first.Post == nil {
		t.Fatalf("first call should post, got %+v", first)
	}
	if first.Post.Tag != models.PostTypeTraffic {
		t.Errorf("tag = %q, want Traffic", first.Post.Tag)
	}

	second, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.Posted {
		t.Fatal("second call within the cooldown window should not post")
	}
	if second.Reason != models.ReasonCooldown {
		t.Errorf("reason = %q, want %q", second.Reason, models.ReasonCooldown)
	}
}

func TestForceBypassesCooldown(t *testing.T) {
	traffic := &models.TrafficData{CongestionLevel: 0.7, FreeFlowSpeed: 65, CurrentSpeed: 20}
	st := store.NewInMemoryStore()
	o := newTestOrchestrator(t, st, traffic, nil, nil)

	if _, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{}); err != nil {
		t.Fatalf("seed call: %v", err)
	}
	forced, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{Force: true})
	if err != nil {
		t.Fatalf("forced call: %v", err)
	}
	if !forced.Posted {
		t.Fatalf("force should bypass cooldown, got %+v", forced)
	}
}

func TestForceOnQuietCityFallsBackToGeneral(t *testing.T) {
	o := newTestOrchestrator(t, store.NewInMemoryStore(), nil, nil, nil)

	res, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Posted || res.Post == nil {
		t.Fatalf("forced call should always post, got %+v", res)
	}
	if res.Post.Tag != models.PostTypeGeneral {
		t.Errorf("tag = %q, want General fallback", res.Post.Tag)
	}
}

func TestGeneratedPostStampsAndTTL(t *testing.T) {
	traffic := &models.TrafficData{CongestionLevel: 0.7, FreeFlowSpeed: 65, CurrentSpeed: 20}
	o := newTestOrchestrator(t, store.NewInMemoryStore(), traffic, nil, nil)

	res, err := o.GenerateIntelligentPost(context.Background(), "Leander, TX", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := res.Post
	if p == nil {
		t.Fatal("expected a post")
	}
	if p.City != "leander" {
		t.Errorf("city = %q, want normalized %q", p.City, "leander")
	}
	if !p.IsBot {
		t.Error("bot posts must be flagged IsBot")
	}
	if p.ID == "" || p.Author == "" || p.Mood == "" {
		t.Errorf("incomplete post stamps: %+v", p)
	}
	if got := p.ExpiresAt.Sub(p.CreatedAt); got != 2*time.Hour {
		t.Errorf("traffic TTL = %v, want 2h", got)
	}
}

func TestEventPostGetsLongTTL(t *testing.T) {
	events := []models.EventData{{
		Name:      "Summer Concert Tour",
		Venue:     "HEB Center",
		StartTime: offPeak.Add(30 * time.Minute),
	}}
	o := newTestOrchestrator(t, store.NewInMemoryStore(), nil, nil, events)

	res, err := o.GenerateIntelligentPost(context.Background(), "Cedar Park", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Post == nil || res.Post.Tag != models.PostTypeEvents {
		t.Fatalf("expected events post, got %+v", res)
	}
	if got := res.Post.ExpiresAt.Sub(res.Post.CreatedAt); got != 12*time.Hour {
		t.Errorf("events TTL = %v, want 12h", got)
	}
}

func TestSlotConflictReportsDuplicate(t *testing.T) {
	traffic := &models.TrafficData{CongestionLevel: 0.7, FreeFlowSpeed: 65, CurrentSpeed: 20}
	st := store.NewInMemoryStore()
	o := newTestOrchestrator(t, st, traffic, nil, nil)

	// Claim the exact slot a routine Traffic post would take, but under a
	// different tag so the cooldown query does not see it. This simulates a
	// racing orchestrator landing first.
	slot := store.SlotKey("leander", models.PostTypeTraffic, offPeak, DefaultCooldown)
	if _, err := st.InsertPosts(context.Background(), []models.BotPost{{
		ID: "racer", City: "leander", Tag: models.PostTypeGeneral, IsBot: true,
		SlotKey: slot, CreatedAt: offPeak, ExpiresAt: offPeak.Add(time.Hour),
	}}); err != nil {
		t.Fatalf("seeding racer: %v", err)
	}

	res, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Posted {
		t.Fatal("conflicting slot must not post")
	}
	if res.Reason != models.ReasonDuplicate {
		t.Errorf("reason = %q, want %q", res.Reason, models.ReasonDuplicate)
	}
}

func TestStoreFailureReturnsStructuredResult(t *testing.T) {
	traffic := &models.TrafficData{CongestionLevel: 0.7, FreeFlowSpeed: 65, CurrentSpeed: 20}
	st := &failingStore{InMemoryStore: store.NewInMemoryStore()}
	o := newTestOrchestrator(t, st, traffic, nil, nil)

	res, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{})
	if err == nil {
		t.Fatal("expected insert error to surface")
	}
	if res.Posted {
		t.Error("failed insert must not report posted")
	}
	if res.Reason != models.ReasonStoreError {
		t.Errorf("reason = %q, want %q", res.Reason, models.ReasonStoreError)
	}
}

func TestProviderFailuresFallBackToDefaults(t *testing.T) {
	profiles := testProfiles(t)
	engine := decision.NewEngine(decision.Config{}, neverRand{})
	renderer := render.NewRenderer(profiles, util.NewSeededRand(7))
	o := New(store.NewInMemoryStore(),
		&fakeTraffic{err: errors.New("upstream 503")},
		&fakeWeather{err: errors.New("timeout")},
		&fakeEvents{},
		profiles, engine, renderer, nil, util.NewSeededRand(7), Config{})
	o.WithClock(func() time.Time { return offPeak })

	// Dead upstreams degrade to neutral defaults: quiet skip, not an error.
	res, err := o.GenerateIntelligentPost(context.Background(), "Austin", GenerateOptions{})
	if err != nil {
		t.Fatalf("provider failures must not abort the cycle: %v", err)
	}
	if res.Posted || res.Reason != models.ReasonQuiet {
		t.Errorf("expected quiet skip on neutral defaults, got %+v", res)
	}
}

func TestGenerateRejectsEmptyCity(t *testing.T) {
	o := newTestOrchestrator(t, store.NewInMemoryStore(), nil, nil, nil)
	if _, err := o.GenerateIntelligentPost(context.Background(), "  ", GenerateOptions{}); !errors.Is(err, models.ErrEmptyCity) {
		t.Errorf("expected ErrEmptyCity, got %v", err)
	}
	if _, err := o.GenerateColdStartPosts(context.Background(), "", ColdStartOptions{}); !errors.Is(err, models.ErrEmptyCity) {
		t.Errorf("expected ErrEmptyCity, got %v", err)
	}
}

func TestColdStartBatchVarietyAndStagger(t *testing.T) {
	traffic := &models.TrafficData{CongestionLevel: 0.7, FreeFlowSpeed: 65, CurrentSpeed: 20}
	weather := &models.WeatherData{Condition: models.ConditionStorm, Temperature: 55}
	events := []models.EventData{{
		Name:      "Old Town Street Fest",
		Venue:     "Old Town",
		StartTime: offPeak.Add(90 * time.Minute),
	}}
	st := store.NewInMemoryStore()
	o := newTestOrchestrator(t, st, traffic, weather, events)

	res, err := o.GenerateColdStartPosts(context.Background(), "Leander", ColdStartOptions{Count: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Posted < 2 {
		t.Fatalf("cold start posted %d, want at least 2", res.Posted)
	}

	tags := make(map[models.PostType]bool)
	for _, p := range res.Posts {
		tags[p.Tag] = true
	}
	if len(tags) < 2 {
		t.Errorf("cold start batch should span distinct tags, got %v", tags)
	}

	// The lead post carries the current time; each earlier post recedes by a
	// gap inside the configured stagger range.
	if !res.Posts[0].CreatedAt.Equal(offPeak) {
		t.Errorf("lead post timestamp = %v, want %v", res.Posts[0].CreatedAt, offPeak)
	}
	for i := 1; i < len(res.Posts); i++ {
		gap := res.Posts[i-1].CreatedAt.Sub(res.Posts[i].CreatedAt)
		if gap < minStaggerGap || gap > maxStaggerGap {
			t.Errorf("gap %d = %v, want within [%v, %v]", i, gap, minStaggerGap, maxStaggerGap)
		}
	}
}

func TestColdStartQuietCityStillSeeds(t *testing.T) {
	st := store.NewInMemoryStore()
	o := newTestOrchestrator(t, st, nil, nil, nil)

	res, err := o.GenerateColdStartPosts(context.Background(), "Cedar Park", ColdStartOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Posted < 2 {
		t.Fatalf("a quiet city should get the filler posts, got %d", res.Posted)
	}
	tags := make(map[models.PostType]bool)
	for _, p := range res.Posts {
		tags[p.Tag] = true
	}
	// Quiet conditions seed a clear-sky weather post plus a general post.
	if !tags[models.PostTypeWeather] {
		t.Error("quiet city should include a clear-sky weather post")
	}
	if !tags[models.PostTypeGeneral] {
		t.Error("quiet city should include a general post")
	}
}

func TestColdStartCountClamped(t *testing.T) {
	traffic := &models.TrafficData{CongestionLevel: 0.7, FreeFlowSpeed: 65, CurrentSpeed: 20}
	st := store.NewInMemoryStore()
	o := newTestOrchestrator(t, st, traffic, nil, nil)

	res, err := o.GenerateColdStartPosts(context.Background(), "Leander", ColdStartOptions{Count: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Posted > MaxColdStartCount {
		t.Errorf("posted %d exceeds batch ceiling %d", res.Posted, MaxColdStartCount)
	}
}

func TestLivePostCapTrimsOldest(t *testing.T) {
	st := store.NewInMemoryStore()
	seed := make([]models.BotPost, 0, 8)
	for i := 0; i < 8; i++ {
		seed = append(seed, models.BotPost{
			ID:        fmt.Sprintf("seed-%d", i),
			City:      "leander",
			Tag:       models.PostTypeGeneral,
			IsBot:     true,
			SlotKey:   fmt.Sprintf("seed-slot-%d", i),
			CreatedAt: offPeak.Add(-time.Duration(i+1) * time.Hour),
			ExpiresAt: offPeak.Add(24 * time.Hour),
		})
	}
	if _, err := st.InsertPosts(context.Background(), seed); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	o := newTestOrchestrator(t, st, nil, nil, nil)
	res, err := o.GenerateIntelligentPost(context.Background(), "Leander", GenerateOptions{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Posted {
		t.Fatal("forced call should post")
	}

	live, err := st.LiveBotPosts(context.Background(), "leander", offPeak)
	if err != nil {
		t.Fatalf("live query: %v", err)
	}
	if len(live) != DefaultMaxLivePosts {
		t.Fatalf("live posts = %d, want cap %d", len(live), DefaultMaxLivePosts)
	}
	// The freshest post survives the trim; the oldest seeds went first.
	if live[0].ID != res.Post.ID {
		t.Errorf("newest live post = %q, want the just-generated %q", live[0].ID, res.Post.ID)
	}
	for _, p := range live {
		if p.ID == "seed-7" {
			t.Error("oldest seed post should have been trimmed")
		}
	}
}

func TestExpireOldPosts(t *testing.T) {
	st := store.NewInMemoryStore()
	if _, err := st.InsertPosts(context.Background(), []models.BotPost{
		{ID: "stale", City: "austin", Tag: models.PostTypeTraffic, IsBot: true, SlotKey: "s1", CreatedAt: offPeak.Add(-3 * time.Hour), ExpiresAt: offPeak.Add(-time.Hour)},
		{ID: "fresh", City: "austin", Tag: models.PostTypeGeneral, IsBot: true, SlotKey: "s2", CreatedAt: offPeak, ExpiresAt: offPeak.Add(time.Hour)},
	}); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	o := newTestOrchestrator(t, st, nil, nil, nil)
	deleted, err := o.ExpireOldPosts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
