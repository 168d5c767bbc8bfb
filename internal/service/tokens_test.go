package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/repository/memstore"
)

func TestTokenRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seed(t, "u@shop.test", models.RoleUser, "pw")
	svc := NewTokenService(auth.NewTokenManager("secret", time.Minute), memstore.NewRefreshTokens(), f.users, time.Hour)

	pair, err := svc.Issue(ctx, u)
	require.NoError(t, err)
	assert.EqualValues(t, 60, pair.ExpiresIn)

	rotated, who, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, who.ID)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	require.NoError(t, svc.Revoke(ctx, rotated.RefreshToken))
	assert.ErrorIs(t, svc.Revoke(ctx, rotated.RefreshToken), apperr.ErrUnauthenticated)
}

func TestTokenRotationExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seed(t, "u@shop.test", models.RoleUser, "pw")
	svc := NewTokenService(auth.NewTokenManager("secret", time.Minute), memstore.NewRefreshTokens(), f.users, time.Hour)

	pair, err := svc.Issue(ctx, u)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.Unauthenticated("refresh token expired"))
}

// staleRefreshTokens answers lookups from a snapshot taken before any
// rotation, as a second request racing the first would see it.
type staleRefreshTokens struct {
	*memstore.RefreshTokens
	snapshot *models.RefreshToken
}

func (s *staleRefreshTokens) FindActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if s.snapshot == nil {
		t, err := s.RefreshTokens.FindActiveByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		s.snapshot = t
	}
	t := *s.snapshot
	return &t, nil
}

func TestTokenRotationConcurrentReuse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.seed(t, "u@shop.test", models.RoleUser, "pw")
	store := &staleRefreshTokens{RefreshTokens: memstore.NewRefreshTokens()}
	svc := NewTokenService(auth.NewTokenManager("secret", time.Minute), store, f.users, time.Hour)

	pair, err := svc.Issue(ctx, u)
	require.NoError(t, err)

	first, _, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, _, err = svc.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.Unauthenticated("invalid refresh token"))

	old, err := store.RefreshTokens.FindActiveByHash(ctx, auth.HashToken(pair.RefreshToken))
	assert.Nil(t, old)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	live, err := store.RefreshTokens.FindActiveByHash(ctx, auth.HashToken(first.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, u.ID, live.UserID)
}
