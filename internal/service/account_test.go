package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

func TestChangeOwnPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seed(t, "admin@shop.test", models.RoleAdmin, "current-pass")
	s := f.sessionFor(t, admin)

	cases := []struct {
		name    string
		current string
		next    string
		want    error
	}{
		{"missing current", "", "new-password", apperr.ErrValidation},
		{"missing new", "current-pass", "", apperr.ErrValidation},
		{"too short", "current-pass", "1234567", apperr.ErrValidation},
		{"wrong current", "wrong-pass", "new-password", apperr.ErrInvalidCredentials},
		{"unchanged", "current-pass", "current-pass", apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.account.ChangeOwnPassword(ctx, s, tc.current, tc.next)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.logs.all())

	require.NoError(t, f.account.ChangeOwnPassword(ctx, s, "current-pass", "new-password"))

	_, err := f.session.Authenticate(ctx, "admin@shop.test", "new-password")
	assert.NoError(t, err)
	_, err = f.session.Authenticate(ctx, "admin@shop.test", "current-pass")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	entries := f.logs.all()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionPasswordChangedSelf, entries[0].Action)
	assert.Equal(t, admin.ID, entries[0].AdminID)
}

func TestChangeOwnPasswordStatusCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.sessionFor(t, f.seed(t, "u@shop.test", models.RoleUser, "current-pass"))

	assert.Equal(t, 401, apperr.HTTPStatus(f.account.ChangeOwnPassword(ctx, s, "nope-nope", "new-password")))
	assert.Equal(t, 400, apperr.HTTPStatus(f.account.ChangeOwnPassword(ctx, s, "current-pass", "current-pass")))
	assert.Equal(t, 400, apperr.HTTPStatus(f.account.ChangeOwnPassword(ctx, s, "current-pass", "seven77")))
}

func TestChangeOwnPasswordPlainUserIsNotAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.sessionFor(t, f.seed(t, "u@shop.test", models.RoleUser, "current-pass"))

	require.NoError(t, f.account.ChangeOwnPassword(ctx, s, "current-pass", "new-password"))
	assert.Empty(t, f.logs.all())
}
