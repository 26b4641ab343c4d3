package profile

import (
	"context"
	"fmt"

	"barbershop/backend/internal/models"

	"go.uber.org/zap"
)

// TokenRevoker ends every session of a user. *auth.Client satisfies it.
type TokenRevoker interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type Service struct {
	repo     *Repo
	revoker  TokenRevoker
	adminUID string
	log      *zap.Logger
}

func NewService(repo *Repo, revoker TokenRevoker, adminUID string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, revoker: revoker, adminUID: adminUID, log: log}
}

// IsAdmin reports whether the identity is the configured barber account or
// carries the admin claim.
func (s *Service) IsAdmin(who models.Identity) bool {
	if who.UID == "" {
		return false
	}
	return who.Admin || (s.adminUID != "" && who.UID == s.adminUID)
}

// Phone returns the saved phone, or "" when the user has none.
func (s *Service) Phone(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	p, err := s.repo.Get(ctx, uid)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", nil
	}
	return p.Phone, nil
}

// GetProfile returns the caller's profile.
func (s *Service) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrBadRequest)
	}
	p, err := s.repo.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: profile not found", ErrNotFound)
	}
	return p, nil
}

// SavePhone normalizes and stores the caller's phone, overwriting the
// profile with the identity's current name and email.
func (s *Service) SavePhone(ctx context.Context, who models.Identity, in UpdatePhoneInput) (*models.UserProfile, error) {
	if who.UID == "" {
		return nil, fmt.Errorf("%w: sign in first", ErrUnauthorized)
	}
	in.Trim()
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	name := who.DisplayName
	if name == "" {
		name = "User"
	}
	p := models.UserProfile{
		UID:         who.UID,
		DisplayName: name,
		Email:       who.Email,
		Phone:       phone,
	}
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("phone saved", zap.String("uid", who.UID))
	return &p, nil
}

// Resolve decides where a signed-in user lands. A failure to read the
// profile revokes the user's sessions so the client signs in again.
func (s *Service) Resolve(ctx context.Context, who models.Identity) (*Session, error) {
	if who.UID == "" {
		return nil, fmt.Errorf("%w: sign in first", ErrUnauthorized)
	}
	if s.IsAdmin(who) {
		return &Session{Route: RouteAdmin, Admin: true}, nil
	}

	p, err := s.repo.Get(ctx, who.UID)
	if err != nil {
		s.log.Error("profile lookup failed after sign-in", zap.String("uid", who.UID), zap.Error(err))
		if s.revoker != nil {
			if rerr := s.revoker.RevokeRefreshTokens(ctx, who.UID); rerr != nil {
				s.log.Warn("failed to revoke sessions", zap.String("uid", who.UID), zap.Error(rerr))
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrSetupFailed, err)
	}
	if p == nil || p.Phone == "" {
		return &Session{Route: RouteNeedsPhone, Profile: p}, nil
	}
	return &Session{Route: RouteClient, Profile: p}, nil
}
