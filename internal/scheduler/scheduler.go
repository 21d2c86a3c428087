// Package scheduler provides cron-based scheduling for PulseBot.
//
// It drives the periodic generation cycle across configured cities and the
// nightly expiry sweep using cron expressions.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// CityGenerator is the per-city generation hook the cycle runner invokes.
// Satisfied by the orchestrator's GenerateIntelligentPost adapter in main.
type CityGenerator func(ctx context.Context, city string) error

// CycleRunner fans one scheduled tick out across all configured cities with
// bounded concurrency, so a slow upstream for one city cannot starve the rest.
type CycleRunner struct {
	cities      []string
	generate    CityGenerator
	concurrency int
	timeout     time.Duration
}

// NewCycleRunner creates a runner over the configured cities. Concurrency
// defaults to 4 workers and the per-cycle timeout to 2 minutes.
func NewCycleRunner(cities []string, generate CityGenerator, concurrency int, timeout time.Duration) *CycleRunner {
	if concurrency <= 0 {
		concurrency = 4
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &CycleRunner{cities: cities, generate: generate, concurrency: concurrency, timeout: timeout}
}

// Run executes one generation cycle. Per-city failures are logged and do not
// stop the rest of the cycle.
func (r *CycleRunner) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, city := range r.cities {
		wg.Add(1)
		sem <- struct{}{}
		go func(city string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := r.generate(ctx, city); err != nil {
				slog.Error("CycleRunner.Run: city cycle failed", "city", city, "error", err)
			}
		}(city)
	}
	wg.Wait()
	slog.Debug("CycleRunner.Run: cycle complete", "cities", len(r.cities), "elapsed", time.Since(start))
}
