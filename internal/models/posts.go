// Package models defines the core data structures for PulseBot.
//
// This file holds the post artifacts: the renderer's output and the stored
// bot-post row, plus the orchestrator's structured result and API envelopes.
package models

import (
	"encoding/json"
	"time"
)

// GeneratedPost is the renderer's final artifact. It is created once,
// consumed by the orchestrator, and never mutated after creation.
type GeneratedPost struct {
	Message     string           `json:"message"`
	Tag         PostType         `json:"tag"`
	Category    TemplateCategory `json:"category"`
	Mood        string           `json:"mood"` // emoji
	Author      string           `json:"author"`
	IsBot       bool             `json:"is_bot"` // always true for this subsystem
	PollOptions []string         `json:"poll_options,omitempty"`
}

// BotPost is the stored representation of a generated post.
type BotPost struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	Message   string    `json:"message"`
	Tag       PostType  `json:"tag"`
	Mood      string    `json:"mood"`
	Author    string    `json:"author"`
	IsBot     bool      `json:"is_bot"`
	SlotKey   string    `json:"slot_key,omitempty"` // uniqueness guard, see store
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PostResult is the orchestrator's structured outcome for one generation
// attempt. A skipped cycle (cooldown, quiet conditions) is a normal result,
// not an error.
type PostResult struct {
	Posted bool     `json:"posted"`
	Post   *BotPost `json:"post,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// BatchResult is the outcome of a cold-start batch generation.
type BatchResult struct {
	Posted int       `json:"posted"`
	Posts  []BotPost `json:"posts,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Skip reasons reported in PostResult.Reason.
const (
	ReasonCooldown   = "cooldown"
	ReasonQuiet      = "quiet conditions"
	ReasonDuplicate  = "duplicate slot"
	ReasonStoreError = "storage failure"
)

// APIResponse is the standard JSON envelope for HTTP endpoints.
type APIResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Success builds a success envelope with the given result payload.
// Marshal failures degrade to an envelope without a result rather than erroring;
// the payload types used here are all marshal-safe structs.
func Success(result interface{}) APIResponse {
	raw, err := json.Marshal(result)
	if err != nil {
		return APIResponse{Status: "ok"}
	}
	return APIResponse{Status: "ok", Result: raw}
}

// Error builds an error envelope with the given message.
func Error(msg string) APIResponse {
	return APIResponse{Status: "error", Error: msg}
}
