// Package api provides HTTP handlers and the main API server logic for
// PulseBot.
//
// It exposes RESTful endpoints for triggering a generation cycle, seeding a
// city with cold-start content, and running the expiry sweep, plus health and
// metrics surfaces for the deployment.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/citypulse/pulsebot/internal/metrics"
	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/orchestrator"
)

// Generator is the orchestration surface the API drives. Satisfied by
// *orchestrator.Orchestrator; narrowed to an interface so handler tests can
// substitute fakes.
type Generator interface {
	GenerateIntelligentPost(ctx context.Context, city string, opts orchestrator.GenerateOptions) (models.PostResult, error)
	GenerateColdStartPosts(ctx context.Context, city string, opts orchestrator.ColdStartOptions) (models.BatchResult, error)
	ExpireOldPosts(ctx context.Context) (int64, error)
}

// Server hosts the HTTP API.
type Server struct {
	gen  Generator
	addr string
	http *http.Server
}

// NewServer creates an API server bound to addr.
func NewServer(addr string, gen Generator) *Server {
	s := &Server{gen: gen, addr: addr}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/cities/{city}/generate", s.generateHandler)
	mux.HandleFunc("POST /api/v1/cities/{city}/coldstart", s.coldStartHandler)
	mux.HandleFunc("POST /api/v1/maintenance/expire", s.expireHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routing mux for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	slog.Info("Server.Run: PulseBot API listening", "addr", s.addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
