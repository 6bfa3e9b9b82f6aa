package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ritik/fanout-timeline/internal/models"
)

// UserStore handles user-related database operations.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, username, email string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email)
		VALUES ($1, $2)
		RETURNING id, username, email, created_at
	`
	user := &models.User{}
	err := s.db.QueryRowxContext(ctx, query, username, email).StructScan(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users WHERE id = $1`
	user := &models.User{}
	if err := s.db.GetContext(ctx, user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users WHERE username = $1`
	user := &models.User{}
	if err := s.db.GetContext(ctx, user, query, username); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserStore) GetAll(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users ORDER BY id LIMIT $1 OFFSET $2`
	users := []*models.User{}
	if err := s.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func (s *UserStore) GetRandomUsers(ctx context.Context, count int) ([]*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users ORDER BY RANDOM() LIMIT $1`
	users := []*models.User{}
	if err := s.db.SelectContext(ctx, &users, query, count); err != nil {
		return nil, fmt.Errorf("failed to get random users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// BulkCreate creates multiple users in one transaction, used by the seed CLI.
func (s *UserStore) BulkCreate(ctx context.Context, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO users (username, email) VALUES ($1, $1 || '@example.com') ON CONFLICT (username) DO NOTHING")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, username := range usernames {
		if _, err := stmt.ExecContext(ctx, username); err != nil {
			return fmt.Errorf("failed to insert user %s: %w", username, err)
		}
	}

	return tx.Commit()
}

func (s *UserStore) Truncate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE users CASCADE")
	if err != nil {
		return fmt.Errorf("failed to truncate users: %w", err)
	}
	return nil
}
