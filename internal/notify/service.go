// Package notify provides the notification collaborator: a pluggable,
// fire-and-forget delivery abstraction for telling subscribers about fresh
// city content.
//
// The orchestrator never waits on delivery confirmation; failures are logged
// and dropped. Backends: Expo mobile push, Twilio SMS, and a no-op default.
package notify

import (
	"context"
	"log/slog"
)

// Service is the pluggable notification delivery abstraction.
type Service interface {
	// Notify delivers one notification to one recipient. Implementations
	// should be quick; callers treat errors as log-and-forget.
	Notify(ctx context.Context, recipient, title, body, typ string, data map[string]string) error

	// Name identifies the backend in logs.
	Name() string
}

// NoopService drops every notification. Used when no backend is configured.
type NoopService struct{}

var _ Service = (*NoopService)(nil)

// Notify logs and discards the notification.
func (NoopService) Notify(ctx context.Context, recipient, title, body, typ string, data map[string]string) error {
	slog.Debug("NoopService.Notify: dropping notification", "recipient", recipient, "type", typ)
	return nil
}

// Name identifies the backend in logs.
func (NoopService) Name() string { return "noop" }
