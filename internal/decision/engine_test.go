package decision

import (
	"testing"
	"time"

	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/util"
)

// neverRand suppresses the probabilistic general fallback so tests exercise
// only the deterministic categories.
type neverRand struct{}

func (neverRand) IntN(n int) int   { return 0 }
func (neverRand) Float64() float64 { return 1.0 }

// alwaysRand forces every probabilistic branch to fire.
type alwaysRand struct{}

func (alwaysRand) IntN(n int) int   { return 0 }
func (alwaysRand) Float64() float64 { return 0.0 }

func quietContext(city string, now time.Time) models.SituationContext {
	return models.SituationContext{
		City:    city,
		Now:     now,
		Traffic: models.TrafficData{CongestionLevel: 0.1, FreeFlowSpeed: 65, CurrentSpeed: 60},
		Weather: models.WeatherData{Condition: models.ConditionClear, Temperature: 75},
	}
}

// offPeak is a weekday mid-morning outside both rush windows.
var offPeak = time.Date(2026, 6, 2, 11, 0, 0, 0, time.UTC)

func TestQuietConditionsStaySilent(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})
	d := e.AnalyzeForPost(quietContext("Austin", offPeak))
	if d.ShouldPost {
		t.Fatalf("expected silence under quiet conditions, got %+v", d)
	}
	if d.PostType != models.PostTypeNone {
		t.Errorf("expected no post type, got %q", d.PostType)
	}
}

func TestHeavyTrafficTriggers(t *testing.T) {
	tests := []struct {
		name       string
		congestion float64
		now        time.Time
		wantCat    models.TemplateCategory
		minPrio    int
		maxPrio    int
	}{
		{"severe", 0.7, offPeak, models.CategorySevere, 9, 9},
		{"heavy off-peak", 0.5, offPeak, models.CategoryHeavy, 7, 7},
		{"heavy rush hour", 0.5, time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC), models.CategoryHeavy, 8, 8},
		{"moderate", 0.3, offPeak, models.CategoryModerate, 5, 5},
		{"moderate rush hour", 0.3, time.Date(2026, 6, 2, 17, 0, 0, 0, time.UTC), models.CategoryModerate, 6, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(Config{}, neverRand{})
			ctx := quietContext("Leander", tt.now)
			ctx.Traffic.CongestionLevel = tt.congestion

			d := e.AnalyzeForPost(ctx)
			if !d.ShouldPost || d.PostType != models.PostTypeTraffic {
				t.Fatalf("expected traffic decision, got %+v", d)
			}
			if d.TemplateCategory != tt.wantCat {
				t.Errorf("expected category %q, got %q", tt.wantCat, d.TemplateCategory)
			}
			if d.Priority < tt.minPrio || d.Priority > tt.maxPrio {
				t.Errorf("expected priority in [%d,%d], got %d", tt.minPrio, tt.maxPrio, d.Priority)
			}
		})
	}
}

func TestHeavyCongestionAlwaysAtLeastSeven(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})
	for _, c := range []float64{0.45, 0.5, 0.6, 0.64, 0.65, 0.9, 1.0} {
		ctx := quietContext("Austin", offPeak)
		ctx.Traffic.CongestionLevel = c
		d := e.AnalyzeForPost(ctx)
		if d.PostType != models.PostTypeTraffic || d.Priority < 7 {
			t.Errorf("congestion %v: expected Traffic priority >= 7, got %+v", c, d)
		}
	}
}

func TestWeatherExtremes(t *testing.T) {
	tests := []struct {
		name    string
		weather models.WeatherData
		wantCat models.TemplateCategory
		minPrio int
	}{
		{"storm", models.WeatherData{Condition: models.ConditionStorm, Temperature: 60}, models.CategoryStorm, 9},
		{"freezing", models.WeatherData{Condition: models.ConditionClouds, Temperature: 28}, models.CategoryCold, 8},
		{"hard freeze", models.WeatherData{Condition: models.ConditionCold, Temperature: 15}, models.CategoryCold, 9},
		{"heat advisory", models.WeatherData{Condition: models.ConditionHot, Temperature: 102}, models.CategoryHeat, 8},
		{"extreme heat", models.WeatherData{Condition: models.ConditionHot, Temperature: 107}, models.CategoryHeat, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(Config{}, neverRand{})
			ctx := quietContext("Austin", offPeak)
			ctx.Weather = tt.weather

			d := e.AnalyzeForPost(ctx)
			if !d.ShouldPost || d.PostType != models.PostTypeWeather {
				t.Fatalf("expected weather decision, got %+v", d)
			}
			if d.TemplateCategory != tt.wantCat {
				t.Errorf("expected category %q, got %q", tt.wantCat, d.TemplateCategory)
			}
			if d.Priority < tt.minPrio {
				t.Errorf("expected priority >= %d, got %d", tt.minPrio, d.Priority)
			}
		})
	}
}

func TestStormOverridesTraffic(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})
	ctx := quietContext("Austin", offPeak)
	ctx.Weather = models.WeatherData{Condition: models.ConditionStorm, Temperature: 60}
	ctx.Traffic.CongestionLevel = 0.5 // heavy, priority 7

	d := e.AnalyzeForPost(ctx)
	if d.PostType != models.PostTypeWeather {
		t.Errorf("expected storm to override heavy traffic, got %q", d.PostType)
	}
	if d.Priority < 8 {
		t.Errorf("expected priority >= 8 for storm, got %d", d.Priority)
	}
}

func TestWeatherWinsPriorityTie(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})
	ctx := quietContext("Austin", offPeak)
	ctx.Weather = models.WeatherData{Condition: models.ConditionStorm, Temperature: 60} // 9
	ctx.Traffic.CongestionLevel = 0.8                                                   // severe, 9

	d := e.AnalyzeForPost(ctx)
	if d.PostType != models.PostTypeWeather {
		t.Errorf("tie at priority 9 should prefer Weather, got %q", d.PostType)
	}
}

func TestImminentEventPriority(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})

	near := quietContext("Austin", offPeak)
	near.Events = []models.EventData{{Name: "Eras Tour", Category: models.CategoryConcert, StartTime: offPeak.Add(30 * time.Minute)}}
	dNear := e.AnalyzeForPost(near)
	if dNear.PostType != models.PostTypeEvents || dNear.TemplateCategory != models.CategoryConcert {
		t.Fatalf("expected concert event decision, got %+v", dNear)
	}
	if dNear.Priority < ImminentFloor {
		t.Errorf("event in 30m should score >= %d, got %d", ImminentFloor, dNear.Priority)
	}

	far := quietContext("Austin", offPeak)
	far.Events = []models.EventData{{Name: "Eras Tour", Category: models.CategoryConcert, StartTime: offPeak.Add(210 * time.Minute)}}
	dFar := e.AnalyzeForPost(far)
	if dFar.PostType != models.PostTypeEvents {
		t.Fatalf("expected event decision, got %+v", dFar)
	}
	if dNear.Priority <= dFar.Priority {
		t.Errorf("event in 30m (%d) should outrank event in 3.5h (%d)", dNear.Priority, dFar.Priority)
	}
}

func TestEventOutsideLookaheadIgnored(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})
	ctx := quietContext("Austin", offPeak)
	ctx.Events = []models.EventData{
		{Name: "Tomorrow Show", Category: models.CategoryConcert, StartTime: offPeak.Add(26 * time.Hour)},
		{Name: "Started Already", Category: models.CategorySports, StartTime: offPeak.Add(-time.Hour)},
	}
	d := e.AnalyzeForPost(ctx)
	if d.ShouldPost {
		t.Errorf("events outside the look-ahead window should not trigger, got %+v", d)
	}
}

func TestGeneralFallback(t *testing.T) {
	e := NewEngine(Config{}, alwaysRand{})
	d := e.AnalyzeForPost(quietContext("Austin", offPeak))
	if !d.ShouldPost || d.PostType != models.PostTypeGeneral {
		t.Fatalf("expected general fallback when chance fires, got %+v", d)
	}
	if d.Priority > 3 {
		t.Errorf("general fallback priority should be low, got %d", d.Priority)
	}
}

func TestGeneralFallbackRate(t *testing.T) {
	e := NewEngine(Config{GeneralChance: 0.15}, util.NewSeededRand(7))
	fired := 0
	for i := 0; i < 1000; i++ {
		if e.AnalyzeForPost(quietContext("Austin", offPeak)).ShouldPost {
			fired++
		}
	}
	if fired < 100 || fired > 220 {
		t.Errorf("general fallback fired %d/1000 times, expected roughly 150", fired)
	}
}

func TestScenarioLeanderTraffic(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})
	ctx := quietContext("Leander", offPeak)
	ctx.Traffic.CongestionLevel = 0.5

	d := e.AnalyzeForPost(ctx)
	if d.PostType != models.PostTypeTraffic {
		t.Errorf("expected Traffic for Leander at congestion 0.5, got %q", d.PostType)
	}
}

func TestScenarioAustinStormOverTraffic(t *testing.T) {
	e := NewEngine(Config{}, neverRand{})
	ctx := quietContext("Austin", offPeak)
	ctx.Weather = models.WeatherData{Condition: models.ConditionStorm, Temperature: 60}
	ctx.Traffic.CongestionLevel = 0.1

	d := e.AnalyzeForPost(ctx)
	if d.PostType != models.PostTypeWeather {
		t.Errorf("expected Weather for Austin storm, got %q", d.PostType)
	}
}
