package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository"
)

// TokenPair is handed to clients after login and on refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenService issues access tokens and rotates refresh tokens. Only the hash
// of a refresh token is stored.
type TokenService struct {
	manager    *auth.TokenManager
	refresh    repository.RefreshTokenRepository
	users      repository.UserRepository
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(manager *auth.TokenManager, refresh repository.RefreshTokenRepository, users repository.UserRepository, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		manager:    manager,
		refresh:    refresh,
		users:      users,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *TokenService) Issue(ctx context.Context, u *models.User) (*TokenPair, error) {
	return s.issue(ctx, u, primitive.NewObjectID())
}

// issue stores a refresh token record under id and signs the pair.
func (s *TokenService) issue(ctx context.Context, u *models.User, id primitive.ObjectID) (*TokenPair, error) {
	access, err := s.manager.Issue(u)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	plain, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now()
	record := &models.RefreshToken{
		ID:        id,
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.refresh.Create(ctx, record); err != nil {
		return nil, apperr.Internal(err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: plain,
		ExpiresIn:    int64(s.manager.AccessTTL().Seconds()),
	}, nil
}

var errInvalidRefresh = apperr.Unauthenticated("invalid refresh token")

// Rotate exchanges a live refresh token for a new pair. The old token is
// claimed with a conditional revoke before the new one is stored, so of two
// concurrent rotations of the same token only one succeeds.
func (s *TokenService) Rotate(ctx context.Context, plain string) (*TokenPair, *models.User, error) {
	old, err := s.refresh.FindActiveByHash(ctx, auth.HashToken(plain))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, errInvalidRefresh
		}
		return nil, nil, apperr.Internal(err)
	}
	if old.Expired(s.now()) {
		_ = s.refresh.Revoke(ctx, old.ID, nil)
		return nil, nil, apperr.Unauthenticated("refresh token expired")
	}

	u, err := s.users.FindByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, errInvalidRefresh
		}
		return nil, nil, apperr.Internal(err)
	}

	replacement := primitive.NewObjectID()
	if err := s.refresh.Revoke(ctx, old.ID, &replacement); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, errInvalidRefresh
		}
		return nil, nil, apperr.Internal(err)
	}

	pair, err := s.issue(ctx, u, replacement)
	if err != nil {
		return nil, nil, err
	}
	return pair, u, nil
}

func (s *TokenService) Revoke(ctx context.Context, plain string) error {
	ok, err := s.refresh.RevokeByHash(ctx, auth.HashToken(plain))
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return errInvalidRefresh
	}
	return nil
}
