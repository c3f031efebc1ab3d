package memory

import (
	"context"
	"sync"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/store"
)

// Directory is an in-memory source of application approvals and user
// profiles. Entries are registered with SetApproved and SetProfile.
type Directory struct {
	mu       sync.RWMutex
	approved map[int64]bool
	profiles map[int64]domain.UserProfile
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		approved: make(map[int64]bool),
		profiles: make(map[int64]domain.UserProfile),
	}
}

// SetApproved records whether the user has an approved application.
func (d *Directory) SetApproved(userID int64, approved bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.approved[userID] = approved
}

// SetProfile registers a user profile.
func (d *Directory) SetProfile(profile domain.UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[profile.UserID] = profile
}

// HasApprovedApplication reports whether the user has an approved application.
func (d *Directory) HasApprovedApplication(ctx context.Context, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.approved[userID], nil
}

// GetUserProfile returns the registered profile or store.ErrProfileNotFound.
func (d *Directory) GetUserProfile(ctx context.Context, userID int64) (domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[userID]
	if !ok {
		return domain.UserProfile{}, store.ErrProfileNotFound
	}
	return p, nil
}
