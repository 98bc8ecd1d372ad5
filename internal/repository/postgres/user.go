package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, first_name, last_name, role, is_active, is_deleted`

// UserStore reads accounts from the users table.
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore creates a UserStore on db.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByID returns the user with id, including inactive and deleted accounts.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListActiveByRole returns active, non-deleted users with role ordered by id.
func (s *UserStore) ListActiveByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	users := make([]*model.User, 0)
	query := `SELECT ` + userColumns + ` FROM users
		WHERE role = $1 AND is_active = TRUE AND is_deleted = FALSE
		ORDER BY id`
	if err := s.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
