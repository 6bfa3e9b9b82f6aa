package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrSelfFollow is returned when a user attempts to follow themselves.
var ErrSelfFollow = errors.New("a user cannot follow themselves")

// FollowStore handles follow-graph database operations.
type FollowStore struct {
	db *sqlx.DB
}

func NewFollowStore(db *sqlx.DB) *FollowStore {
	return &FollowStore{db: db}
}

// Create records followerID following followedID. Self-follows are
// rejected at this layer, before the table's check constraint is
// reached, so the reactor gets a typed error it can surface to the
// caller.
func (s *FollowStore) Create(ctx context.Context, followerID, followedID int64) error {
	if followerID == followedID {
		return ErrSelfFollow
	}

	query := `INSERT INTO follows (follower_id, followed_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, followerID, followedID)
	if err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

func (s *FollowStore) Delete(ctx context.Context, followerID, followedID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`
	_, err := s.db.ExecContext(ctx, query, followerID, followedID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// GetFollowers returns the IDs of every user who follows userID. This is
// the fan-out target list the publisher consults on every new post.
func (s *FollowStore) GetFollowers(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT follower_id FROM follows WHERE followed_id = $1`
	var followers []int64
	if err := s.db.SelectContext(ctx, &followers, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return followers, nil
}

func (s *FollowStore) GetFollowing(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT followed_id FROM follows WHERE follower_id = $1`
	var following []int64
	if err := s.db.SelectContext(ctx, &following, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return following, nil
}

func (s *FollowStore) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)`
	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, followerID, followedID); err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

func (s *FollowStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM follows"); err != nil {
		return 0, fmt.Errorf("failed to count follows: %w", err)
	}
	return count, nil
}

// BulkCreate inserts many follow edges in one statement, used by the seed
// CLI. Self-follows are dropped from the batch rather than failing it.
func (s *FollowStore) BulkCreate(ctx context.Context, edges []struct {
	FollowerID int64
	FollowedID int64
}) error {
	filtered := make([]struct {
		FollowerID int64
		FollowedID int64
	}, 0, len(edges))
	for _, e := range edges {
		if e.FollowerID != e.FollowedID {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(filtered))
	valueArgs := make([]interface{}, 0, len(filtered)*2)
	for i, e := range filtered {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		valueArgs = append(valueArgs, e.FollowerID, e.FollowedID)
	}

	query := fmt.Sprintf("INSERT INTO follows (follower_id, followed_id) VALUES %s ON CONFLICT DO NOTHING", strings.Join(valueStrings, ","))
	_, err := s.db.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		return fmt.Errorf("failed to bulk create follows: %w", err)
	}
	return nil
}

func (s *FollowStore) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE follows CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate follows: %w", err)
	}
	return nil
}
