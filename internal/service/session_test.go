package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository"
)

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "pw@shop.test", models.RoleUser, "secret-pass")
	social := &models.User{Email: "social@shop.test", Role: models.RoleUser, Provider: models.ProviderGoogle}
	require.NoError(t, f.users.Create(ctx, social))

	u, err := f.session.Authenticate(ctx, "PW@shop.test", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "pw@shop.test", u.Email)

	_, err = f.session.Authenticate(ctx, "pw@shop.test", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = f.session.Authenticate(ctx, "missing@shop.test", "secret-pass")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = f.session.Authenticate(ctx, "social@shop.test", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestFederatedLoginCreatesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := auth.Identity{Email: "new@shop.test", Name: "New", Provider: models.ProviderGoogle}

	first, err := f.session.FederatedLogin(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, first.Role)
	assert.False(t, first.HasPassword())

	second, err := f.session.FederatedLogin(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, total, err := f.users.List(ctx, repository.UserFilter{}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestFederatedLoginConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := auth.Identity{Email: "race@shop.test", Provider: models.ProviderGoogle}

	var wg sync.WaitGroup
	ids := make([]primitive.ObjectID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := f.session.FederatedLogin(ctx, id)
			if assert.NoError(t, err) {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for _, got := range ids {
		assert.Equal(t, ids[0], got)
	}
	n, err := f.users.CountByRoles(ctx, models.RoleUser)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFederatedLoginKeepsExistingRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seed(t, "admin@shop.test", models.RoleAdmin, "pw")

	u, err := f.session.FederatedLogin(ctx, auth.Identity{Email: "admin@shop.test", Provider: models.ProviderGoogle})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, u.ID)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestMaterializeMissingUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.Materialize(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.session.Register(ctx, " Buyer@Shop.test ", "long-enough", "Buyer")
	require.NoError(t, err)
	assert.Equal(t, "buyer@shop.test", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, models.ProviderCredentials, u.Provider)

	_, err = f.session.Register(ctx, "buyer@shop.test", "long-enough", "Again")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.session.Register(ctx, "other@shop.test", "short", "Other")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.session.Register(ctx, "nope", "long-enough", "Other")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
