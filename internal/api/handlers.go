// Package api provides HTTP handlers for PulseBot endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/citypulse/pulsebot/internal/models"
	"github.com/citypulse/pulsebot/internal/orchestrator"
)

// generateHandler runs one generation cycle for the city in the path.
// ?force=true bypasses cooldown and quiet-condition checks. A skipped cycle
// is a 200 with posted=false, not an error.
func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	city := r.PathValue("city")
	force := r.URL.Query().Get("force") == "true"
	slog.Debug("Server.generateHandler: processing generate request", "city", city, "force", force)

	result, err := s.gen.GenerateIntelligentPost(r.Context(), city, orchestrator.GenerateOptions{Force: force})
	if err != nil {
		if errors.Is(err, models.ErrEmptyCity) {
			slog.Warn("Server.generateHandler: invalid city", "city", city)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("City name cannot be empty"))
			return
		}
		slog.Error("Server.generateHandler: generation failed", "city", city, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate post"))
		return
	}

	slog.Info("Server.generateHandler: cycle complete", "city", city, "posted", result.Posted, "reason", result.Reason)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// coldStartHandler seeds a city with a batch of varied content. The count
// comes from ?count= or an optional JSON body {"count": n}; the query wins.
func (s *Server) coldStartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	city := r.PathValue("city")
	slog.Debug("Server.coldStartHandler: processing cold start request", "city", city)

	var body struct {
		Count int `json:"count"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			slog.Warn("Server.coldStartHandler: failed to decode JSON", "error", err)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
	}
	count := body.Count
	if q := r.URL.Query().Get("count"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid count parameter"))
			return
		}
		count = n
	}

	result, err := s.gen.GenerateColdStartPosts(r.Context(), city, orchestrator.ColdStartOptions{Count: count, Force: true})
	if err != nil {
		if errors.Is(err, models.ErrEmptyCity) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("City name cannot be empty"))
			return
		}
		slog.Error("Server.coldStartHandler: cold start failed", "city", city, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to seed city"))
		return
	}

	slog.Info("Server.coldStartHandler: city seeded", "city", city, "posted", result.Posted)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// expireHandler runs the expiry sweep, removing bot posts past their TTL.
func (s *Server) expireHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	deleted, err := s.gen.ExpireOldPosts(r.Context())
	if err != nil {
		slog.Error("Server.expireHandler: expiry sweep failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to expire posts"))
		return
	}

	slog.Info("Server.expireHandler: expiry sweep complete", "deleted", deleted)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]int64{"deleted": deleted}))
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}
