// Package store provides storage backends for PulseBot.
//
// It persists bot posts and answers the orchestrator's cooldown and cap
// queries. Backends: PostgreSQL, SQLite, and an in-memory store for tests.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/citypulse/pulsebot/internal/models"
)

// Store is the storage collaborator contract used by the orchestrator.
type Store interface {
	// InsertPosts inserts the given posts and returns how many rows
	// actually landed. Posts whose slot key collides with an existing row
	// are silently skipped; the caller treats a shortfall as a cooldown
	// duplicate, not an error.
	InsertPosts(ctx context.Context, posts []models.BotPost) (int, error)

	// RecentBotPosts returns bot posts for the city and tag created at or
	// after since, newest first.
	RecentBotPosts(ctx context.Context, city string, tag models.PostType, since time.Time) ([]models.BotPost, error)

	// LiveBotPosts returns unexpired bot posts for the city, newest first.
	LiveBotPosts(ctx context.Context, city string, now time.Time) ([]models.BotPost, error)

	// DeletePosts removes posts by ID. Missing IDs are not an error.
	DeletePosts(ctx context.Context, ids []string) error

	// DeleteExpired removes bot posts whose expiry has passed and returns
	// the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// Close releases the backend's resources.
	Close() error
}

// Opts holds configuration for store constructors.
type Opts struct {
	// DSN is the backend connection string: a Postgres URL or an SQLite
	// file path.
	DSN string
}

// Option configures store constructors.
type Option func(*Opts)

// WithDSN sets the backend connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType classifies a connection string as "postgres" or "sqlite".
// Postgres DSNs use URL or key=value forms; anything else is treated as an
// SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// SlotKey builds the uniqueness guard for one (city, tag, window) slot.
// Two routine posts of the same tag for the same city inside one cooldown
// window map to the same key, so the database's unique index rejects the
// second insert even under concurrent orchestrator runs.
func SlotKey(city string, tag models.PostType, createdAt time.Time, cooldown time.Duration) string {
	bucket := int64(0)
	if cooldown > 0 {
		bucket = createdAt.Unix() / int64(cooldown.Seconds())
	}
	return fmt.Sprintf("%s|%s|%d", city, tag, bucket)
}
