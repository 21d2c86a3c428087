// Package metrics exposes Prometheus counters for generation outcomes.
//
// Counters live on a package registry rather than the global default so tests
// can scrape without cross-test pollution from other registrations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all PulseBot collectors.
var Registry = prometheus.NewRegistry()

var (
	// PostsGenerated counts successfully stored bot posts by city and tag.
	PostsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsebot",
		Name:      "posts_generated_total",
		Help:      "Bot posts generated and stored, by city and tag.",
	}, []string{"city", "tag"})

	// GenerationSkips counts cycles that produced no post, by reason.
	GenerationSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsebot",
		Name:      "generation_skips_total",
		Help:      "Generation cycles that produced no post, by reason.",
	}, []string{"city", "reason"})

	// ProviderFailures counts upstream signal fetch failures by provider.
	ProviderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pulsebot",
		Name:      "provider_failures_total",
		Help:      "Upstream signal fetch failures, by provider.",
	}, []string{"provider"})
)

func init() {
	Registry.MustRegister(PostsGenerated, GenerationSkips, ProviderFailures)
}

// Handler serves the registry for the API's /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
