// Package store provides storage backends for PulseBot.
//
// This file implements the SQLite-backed store, used for single-node
// deployments and local development.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	sq "github.com/Masterminds/squirrel"
	"github.com/citypulse/pulsebot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// lite builds queries with SQLite ? placeholders.
var lite = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SQLiteStore persists bot posts in an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; the parent directory is
// created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied")
	return &SQLiteStore{db: db}, nil
}

// InsertPosts inserts posts one at a time; INSERT OR IGNORE skips slot-key
// conflicts the same way the Postgres backend's ON CONFLICT clause does.
func (s *SQLiteStore) InsertPosts(ctx context.Context, posts []models.BotPost) (int, error) {
	if err := validatePosts(posts); err != nil {
		return 0, err
	}
	inserted := 0
	for _, p := range posts {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO bot_posts (id, city, message, tag, mood, author, is_bot, slot_key, created_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.City, p.Message, string(p.Tag), p.Mood, p.Author, p.IsBot, nilIfEmpty(p.SlotKey), p.CreatedAt, p.ExpiresAt,
		)
		if err != nil {
			slog.Error("SQLiteStore.InsertPosts: insert failed", "error", err, "city", p.City, "tag", p.Tag)
			return inserted, fmt.Errorf("failed to insert post for %s: %w", p.City, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected check failed: %w", err)
		}
		if n == 0 {
			slog.Debug("SQLiteStore.InsertPosts: slot conflict, post skipped", "city", p.City, "tag", p.Tag, "slot_key", p.SlotKey)
			continue
		}
		inserted++
	}
	return inserted, nil
}

// RecentBotPosts returns bot posts for the city and tag created at or after
// since, newest first.
func (s *SQLiteStore) RecentBotPosts(ctx context.Context, city string, tag models.PostType, since time.Time) ([]models.BotPost, error) {
	query, args, err := lite.
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
func (s *SQLiteStore) LiveBotPosts(ctx context.Context, city string, now time.Time) ([]models.BotPost, error) {
	query, args, err := lite.
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
func (s *SQLiteStore) DeletePosts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := lite.Delete("bot_posts").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		slog.Error("SQLiteStore.DeletePosts: delete failed", "error", err, "count", len(ids))
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}

// DeleteExpired removes bot posts whose expiry has passed.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bot_posts WHERE is_bot = 1 AND expires_at <= ?`, now)
	if err != nil {
		slog.Error("SQLiteStore.DeleteExpired: delete failed", "error", err)
		return 0, fmt.Errorf("failed to delete expired posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected check failed: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryPosts(ctx context.Context, query string, args ...interface{}) ([]models.BotPost, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("SQLiteStore.queryPosts: query failed", "error", err)
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
