package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/ritik/fanout-timeline/internal/models"
)

// ErrInvalidBody is returned when a post body falls outside the
// 1-280 character bound. Rejected here, before any write, so bad
// input never reaches the fan-out pipeline.
var ErrInvalidBody = errors.New("post body must be between 1 and 280 characters")

// PostStore handles post-related database operations.
type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

func (s *PostStore) Create(ctx context.Context, authorID int64, body string) (*models.Post, error) {
	if n := utf8.RuneCountInString(body); n < 1 || n > 280 {
		return nil, ErrInvalidBody
	}

	query := `
		INSERT INTO posts (author_id, body)
		VALUES ($1, $2)
		RETURNING id, author_id, body, created_at
	`
	post := &models.Post{}
	err := s.db.QueryRowxContext(ctx, query, authorID, body).StructScan(post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

func (s *PostStore) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		SELECT p.id, p.author_id, p.body, p.created_at, u.username AS author_username
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.id = $1
	`
	post := &models.Post{}
	if err := s.db.GetContext(ctx, post, query, id); err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (s *PostStore) GetByAuthorID(ctx context.Context, authorID int64, limit int) ([]*models.Post, error) {
	query := `
		SELECT p.id, p.author_id, p.body, p.created_at, u.username AS author_username
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.author_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`
	posts := []*models.Post{}
	if err := s.db.SelectContext(ctx, &posts, query, authorID, limit); err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	return posts, nil
}

func (s *PostStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM posts"); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (s *PostStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// BulkCreate inserts many posts in one statement, used by the seed CLI.
func (s *PostStore) BulkCreate(ctx context.Context, posts []struct {
	AuthorID int64
	Body     string
}) error {
	if len(posts) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(posts))
	valueArgs := make([]interface{}, 0, len(posts)*2)
	for i, p := range posts {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		valueArgs = append(valueArgs, p.AuthorID, p.Body)
	}

	query := fmt.Sprintf("INSERT INTO posts (author_id, body) VALUES %s", strings.Join(valueStrings, ","))
	if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("failed to bulk create posts: %w", err)
	}
	return nil
}

func (s *PostStore) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE posts CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate posts: %w", err)
	}
	return nil
}
