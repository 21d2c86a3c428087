// Package store provides storage backends for PulseBot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	sq "github.com/Masterminds/squirrel"
	"github.com/citypulse/pulsebot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// psql builds queries with Postgres $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists bot posts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")
	return &PostgresStore{db: db}, nil
}

// InsertPosts inserts posts one at a time so each slot-key conflict can be
// detected and skipped independently.
func (s *PostgresStore) InsertPosts(ctx context.Context, posts []models.BotPost) (int, error) {
	if err := validatePosts(posts); err != nil {
		return 0, err
	}
	inserted := 0
	for _, p := range posts {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO bot_posts (id, city, message, tag, mood, author, is_bot, slot_key, created_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (slot_key) DO NOTHING`,
			p.ID, p.City, p.Message, string(p.Tag), p.Mood, p.Author, p.IsBot, nilIfEmpty(p.SlotKey), p.CreatedAt, p.ExpiresAt,
		)
		if err != nil {
			slog.Error("PostgresStore.InsertPosts: insert failed", "error", err, "city", p.City, "tag", p.Tag)
			return inserted, fmt.Errorf("failed to insert post for %s: %w", p.City, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected check failed: %w", err)
		}
		if n == 0 {
			slog.Debug("PostgresStore.InsertPosts: slot conflict, post skipped", "city", p.City, "tag", p.Tag, "slot_key", p.SlotKey)
			continue
		}
		inserted++
	}
	slog.Debug("PostgresStore.InsertPosts: done", "requested", len(posts), "inserted", inserted)
	return inserted, nil
}

// RecentBotPosts returns bot posts for the city and tag created at or after
// since, newest first.
func (s *PostgresStore) RecentBotPosts(ctx context.Context, city string, tag models.PostType, since time.Time) ([]models.BotPost, error) {
	query, args, err := psql.
		Select(postColumns...).
		From("bot_posts").
		Where(sq.Eq{"city": city, "tag": string(tag), "is_bot": true}).
		Where(sq.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build recent posts query: %w", err)
	}
	return s.queryPosts(ctx, query, args...)
}

// LiveBotPosts returns unexpired bot posts for the city, newest first.
func (s *PostgresStore) LiveBotPosts(ctx context.Context, city string, now time.Time) ([]models.BotPost, error) {
	query, args, err := psql.
		Select(postColumns...).
		From("bot_posts").
		Where(sq.Eq{"city": city, "is_bot": true}).
		Where(sq.Gt{"expires_at": now}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build live posts query: %w", err)
	}
	return s.queryPosts(ctx, query, args...)
}

// DeletePosts removes posts by ID.
func (s *PostgresStore) DeletePosts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete("bot_posts").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		slog.Error("PostgresStore.DeletePosts: delete failed", "error", err, "count", len(ids))
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}

// DeleteExpired removes bot posts whose expiry has passed.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bot_posts WHERE is_bot = TRUE AND expires_at <= $1`, now)
	if err != nil {
		slog.Error("PostgresStore.DeleteExpired: delete failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected check failed: %w", err)
	}
	slog.Debug("PostgresStore.DeleteExpired: done", "deleted", n)
	return n, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) queryPosts(ctx context.Context, query string, args ...interface{}) ([]models.BotPost, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresStore.queryPosts: query failed", "error", err)
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.BotPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
