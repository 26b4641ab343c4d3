package profile

import (
	"context"
	"fmt"

	"barbershop/backend/internal/models"
	"barbershop/backend/internal/store"
)

const Collection = "userProfiles"

type Repo struct {
	st store.Store
}

func NewRepo(st store.Store) *Repo {
	return &Repo{st: st}
}

// Get returns nil when the user has no profile yet.
func (r *Repo) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	path, err := store.Join(Collection, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	snap, err := r.st.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	var p models.UserProfile
	if err := snap.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if p.UID == "" {
		p.UID = uid
	}
	return &p, nil
}

// Put overwrites the whole profile record.
func (r *Repo) Put(ctx context.Context, p models.UserProfile) error {
	path, err := store.Join(Collection, p.UID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := r.st.Set(ctx, path, p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
