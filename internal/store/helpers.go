package store

import (
	"database/sql"
	"fmt"

	"github.com/citypulse/pulsebot/internal/models"
)

// postColumns is the canonical column order shared by both SQL backends.
var postColumns = []string{
	"id", "city", "message", "tag", "mood", "author", "is_bot", "slot_key", "created_at", "expires_at",
}

// validatePosts rejects a batch carrying a tag the schema does not know.
// An unknown tag is an upstream programming error; failing the whole batch
// beats storing a row no reader can classify.
func validatePosts(posts []models.BotPost) error {
	for _, p := range posts {
		if !models.IsValidPostType(p.Tag) {
			return fmt.Errorf("post %s has tag %q: %w", p.ID, p.Tag, models.ErrInvalidPostType)
		}
	}
	return nil
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanPost scans a BotPost from sql.Rows in postColumns order.
func scanPost(rows *sql.Rows) (models.BotPost, error) {
	var p models.BotPost
	var tag string
	var slotKey sql.NullString
	err := rows.Scan(
		&p.ID, &p.City, &p.Message, &tag, &p.Mood, &p.Author, &p.IsBot,
		&slotKey, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return p, fmt.Errorf("scan post failed: %w", err)
	}
	p.Tag = models.PostType(tag)
	p.SlotKey = slotKey.String
	return p, nil
}
