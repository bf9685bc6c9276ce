package user

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gochat/internal/common"
)

// MemoryRepository backs the "memory" store driver and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*User)}
}

func (r *MemoryRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUniqueLocked(user); err != nil {
		return err
	}
	if _, ok := r.users[user.ID]; ok {
		return common.ConflictError("user %s already exists", user.ID)
	}
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *MemoryRepository) checkUniqueLocked(user *User) error {
	for _, u := range r.users {
		if u.ID == user.ID {
			continue
		}
		if strings.EqualFold(u.Username, user.Username) || u.Email == user.Email {
			return common.ConflictError("username or email already taken")
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.NotFoundError("user %s", id)
	}
	return u.Clone(), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, common.NotFoundError("user")
}

func (r *MemoryRepository) FindByIDs(ctx context.Context, ids []string) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return common.NotFoundError("user %s", user.ID)
	}
	if err := r.checkUniqueLocked(user); err != nil {
		return err
	}
	r.users[user.ID] = user.Clone()
	return nil
}

func (r *MemoryRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]*User, error) {
	needle := strings.ToLower(query)
	out := r.filter(excludeID, func(u *User) bool {
		return strings.Contains(strings.ToLower(u.Username), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) List(ctx context.Context, excludeID string) ([]*User, error) {
	return r.filter(excludeID, func(*User) bool { return true }), nil
}

func (r *MemoryRepository) filter(excludeID string, keep func(*User) bool) []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*User{}
	for _, u := range r.users {
		if u.ID != excludeID && keep(u) {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
