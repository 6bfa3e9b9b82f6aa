package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ritik/fanout-timeline/internal/config"
	"github.com/ritik/fanout-timeline/internal/models"
)

// TimelineStore is the authoritative, Postgres-backed record of which
// post landed in whose timeline. It is the source of truth the cache's
// ring buffers are warmed from, bounded to cfg.MaxTimelineEntries rows
// per user.
type TimelineStore struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewTimelineStore(db *sqlx.DB, cfg *config.Config) *TimelineStore {
	return &TimelineStore{db: db, cfg: cfg}
}

// InsertEntry records postID landing in userID's timeline, then trims the
// timeline back down to MaxTimelineEntries with a second statement (a
// trim in the same statement could not see the row just inserted). The
// ON CONFLICT clause makes redelivery of the same fanout message a
// no-op, which is what makes the Timeline Worker's consumer idempotent.
func (s *TimelineStore) InsertEntry(ctx context.Context, userID, postID int64, ts interface{}) error {
	insertQuery := `
		INSERT INTO timeline (user_id, post_id, ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, post_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, insertQuery, userID, postID, ts); err != nil {
		return fmt.Errorf("failed to insert timeline entry: %w", err)
	}

	trimQuery := `
		DELETE FROM timeline
		WHERE user_id = $1
		AND id NOT IN (
			SELECT id FROM timeline
			WHERE user_id = $1
			ORDER BY ts DESC, id DESC
			LIMIT $2
		)
	`
	if _, err := s.db.ExecContext(ctx, trimQuery, userID, s.cfg.MaxTimelineEntries); err != nil {
		return fmt.Errorf("failed to trim timeline: %w", err)
	}
	return nil
}

// ReadRange returns userID's timeline newest-first, joined against posts
// and users so callers never need a second round trip.
func (s *TimelineStore) ReadRange(ctx context.Context, userID int64, limit, offset int) ([]*models.TimelineEntry, error) {
	query := `
		SELECT t.id, t.user_id, t.post_id, t.ts,
		       p.body, p.author_id, u.username AS author_username
		FROM timeline t
		JOIN posts p ON t.post_id = p.id
		JOIN users u ON p.author_id = u.id
		WHERE t.user_id = $1
		ORDER BY t.ts DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`
	entries := []*models.TimelineEntry{}
	if err := s.db.SelectContext(ctx, &entries, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	return entries, nil
}

// Rebuild recomputes userID's entire timeline from the posts of every
// user they follow (plus their own posts), replacing whatever was there
// before. It runs inside a transaction so a concurrent read never sees
// a half-cleared timeline.
func (s *TimelineStore) Rebuild(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM timeline WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear timeline: %w", err)
	}

	insertQuery := `
		INSERT INTO timeline (user_id, post_id, ts)
		SELECT $1, p.id, p.created_at
		FROM posts p
		WHERE p.author_id = $1
		   OR p.author_id IN (SELECT followed_id FROM follows WHERE follower_id = $1)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2
		ON CONFLICT (user_id, post_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insertQuery, userID, s.cfg.MaxTimelineEntries); err != nil {
		return fmt.Errorf("failed to rebuild timeline: %w", err)
	}

	return tx.Commit()
}

func (s *TimelineStore) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE timeline CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate timeline: %w", err)
	}
	return nil
}
