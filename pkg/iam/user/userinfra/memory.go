package userinfra

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
)

// MemoryUserRepository keeps users in process memory with the same
// uniqueness rules as the users table. For development and tests.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[kernel.UserID]*user.User
	updates int
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: make(map[kernel.UserID]*user.User)}
}

func (r *MemoryUserRepository) FindByExternalID(ctx context.Context, ext kernel.ExternalID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.ExternalID == ext {
			return clone(u), nil
		}
	}
	return nil, user.ErrUserNotFound().WithDetail("external_id", ext)
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, user.ErrUserNotFound().WithDetail("email", email)
}

func (r *MemoryUserRepository) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return user.ErrUserAlreadyExists().WithDetail("constraint", "users_pkey")
	}
	for _, existing := range r.byID {
		if existing.ExternalID == u.ExternalID {
			return user.ErrUserAlreadyExists().WithDetail("constraint", "users_external_id_key")
		}
		if existing.Email == u.Email {
			return user.ErrUserAlreadyExists().WithDetail("constraint", "users_email_key")
		}
	}
	r.byID[u.ID] = clone(u)
	return nil
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id kernel.UserID, upd user.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return user.ErrUserNotFound().WithDetail("user_id", id)
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.AvatarURL != nil {
		v := *upd.AvatarURL
		u.AvatarURL = &v
	}
	u.UpdatedAt = time.Now()
	r.updates++
	return nil
}

// Updates returns how many UpdateProfile calls succeeded
func (r *MemoryUserRepository) Updates() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updates
}

// Len returns the number of stored users
func (r *MemoryUserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func clone(u *user.User) *user.User {
	c := *u
	if u.AvatarURL != nil {
		v := *u.AvatarURL
		c.AvatarURL = &v
	}
	return &c
}
