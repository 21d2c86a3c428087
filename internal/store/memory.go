// Package store provides storage backends for PulseBot.
//
// This file implements an in-memory store with the same slot-key semantics
// as the SQL backends. Used by tests and throwaway local runs.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/citypulse/pulsebot/internal/models"
)

// InMemoryStore keeps bot posts in a slice guarded by a mutex.
type InMemoryStore struct {
	mu     sync.Mutex
	posts  []models.BotPost
	slots  map[string]bool
	closed bool
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{slots: make(map[string]bool)}
}

// InsertPosts inserts posts, skipping slot-key duplicates like the SQL
// backends' conflict clauses do.
func (s *InMemoryStore) InsertPosts(ctx context.Context, posts []models.BotPost) (int, error) {
	if err := validatePosts(posts); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, models.ErrStoreClosed
	}
	inserted := 0
	for _, p := range posts {
		if p.SlotKey != "" && s.slots[p.SlotKey] {
			continue
		}
		if p.SlotKey != "" {
			s.slots[p.SlotKey] = true
		}
		s.posts = append(s.posts, p)
		inserted++
	}
	return inserted, nil
}

// RecentBotPosts returns bot posts for the city and tag created at or after
// since, newest first.
func (s *InMemoryStore) RecentBotPosts(ctx context.Context, city string, tag models.PostType, since time.Time) ([]models.BotPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, models.ErrStoreClosed
	}
	var out []models.BotPost
	for _, p := range s.posts {
		if p.IsBot && p.City == city && p.Tag == tag && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// LiveBotPosts returns unexpired bot posts for the city, newest first.
func (s *InMemoryStore) LiveBotPosts(ctx context.Context, city string, now time.Time) ([]models.BotPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, models.ErrStoreClosed
	}
	var out []models.BotPost
	for _, p := range s.posts {
		if p.IsBot && p.City == city && p.ExpiresAt.After(now) {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// DeletePosts removes posts by ID.
func (s *InMemoryStore) DeletePosts(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.ErrStoreClosed
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.posts[:0]
	for _, p := range s.posts {
		if drop[p.ID] {
			delete(s.slots, p.SlotKey)
			continue
		}
		kept = append(kept, p)
	}
	s.posts = kept
	return nil
}

// DeleteExpired removes bot posts whose expiry has passed.
func (s *InMemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, models.ErrStoreClosed
	}
	var deleted int64
	kept := s.posts[:0]
	for _, p := range s.posts {
		if p.IsBot && !p.ExpiresAt.After(now) {
			delete(s.slots, p.SlotKey)
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	s.posts = kept
	return deleted, nil
}

// Close marks the store closed; subsequent operations fail with
// models.ErrStoreClosed, matching the SQL backends' closed-pool behavior.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortNewestFirst(posts []models.BotPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
