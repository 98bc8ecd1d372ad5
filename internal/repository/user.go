package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/hiroki-koketsu/todo-workflow/internal/model"
)

// UserRepository is a read-mostly in-memory user directory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[int64]*model.User
}

// NewUserRepository creates a directory holding users.
func NewUserRepository(users ...*model.User) *UserRepository {
	r := &UserRepository{users: make(map[int64]*model.User)}
	for _, u := range users {
		r.Put(u)
	}
	return r
}

// LoadUserRepository reads a JSON array of users from path.
func LoadUserRepository(path string) (*UserRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var users []*model.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return NewUserRepository(users...), nil
}

// Put inserts or replaces a user.
func (r *UserRepository) Put(user *model.User) {
	u := *user
	r.mu.Lock()
	r.users[u.ID] = &u
	r.mu.Unlock()
}

// GetByID returns the user with id, including inactive and deleted accounts.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	user := *u
	return &user, nil
}

// ListActiveByRole returns active, non-deleted users with role ordered by id.
func (r *UserRepository) ListActiveByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.User, 0)
	for _, u := range r.users {
		if u.Role == role && u.Usable() {
			user := *u
			users = append(users, &user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
