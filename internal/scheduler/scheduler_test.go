package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestCycleRunnerVisitsEveryCity(t *testing.T) {
	var mu sync.Mutex
	visited := make(map[string]int)
	gen := func(ctx context.Context, city string) error {
		mu.Lock()
		defer mu.Unlock()
		visited[city]++
		return nil
	}

	r := NewCycleRunner([]string{"leander", "austin", "cedar park"}, gen, 2, time.Second)
	r.Run()

	for _, city := range []string{"leander", "austin", "cedar park"} {
		if visited[city] != 1 {
			t.Errorf("city %q visited %d times, want 1", city, visited[city])
		}
	}
}

func TestCycleRunnerSurvivesCityFailure(t *testing.T) {
	var mu sync.Mutex
	var succeeded []string
	gen := func(ctx context.Context, city string) error {
		if city == "austin" {
			return errors.New("upstream down")
		}
		mu.Lock()
		defer mu.Unlock()
		succeeded = append(succeeded, city)
		return nil
	}

	r := NewCycleRunner([]string{"austin", "leander"}, gen, 1, time.Second)
	r.Run()

	if len(succeeded) != 1 || succeeded[0] != "leander" {
		t.Errorf("expected leander to succeed despite austin failing, got %v", succeeded)
	}
}

func TestCycleRunnerBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	inflight, peak := 0, 0
	gen := func(ctx context.Context, city string) error {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inflight--
		mu.Unlock()
		return nil
	}

	cities := []string{"a", "b", "c", "d", "e", "f"}
	r := NewCycleRunner(cities, gen, 2, time.Second)
	r.Run()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
}
