package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository/memstore"
)

func ptr[T any](v T) *T { return &v }

func adminSession() *auth.Session {
	return &auth.Session{UserID: primitive.NewObjectID(), Email: "admin@shop.test", Role: models.RoleAdmin}
}

func seededCoupons(t *testing.T) (*CouponService, *memstore.Coupons) {
	t.Helper()
	store := memstore.NewCoupons()
	svc := NewCouponService(store)
	ctx := context.Background()
	_, err := svc.Create(ctx, adminSession(), CouponInput{
		Code:         "WELCOME10",
		Discount:     ptr(10.0),
		DiscountType: ptr(models.DiscountPercent),
		MinCartValue: ptr(500.0),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, adminSession(), CouponInput{
		Code:         "OLD5",
		Discount:     ptr(5.0),
		DiscountType: ptr(models.DiscountFlat),
		IsActive:     ptr(false),
	})
	require.NoError(t, err)
	return svc, store
}

func TestValidateCoupon(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededCoupons(t)

	_, err := svc.Validate(ctx, "WELCOME10", 300)
	var below *BelowMinimumError
	require.True(t, errors.As(err, &below))
	assert.Equal(t, 500.0, below.MinCartValue)
	assert.Equal(t, 400, apperr.HTTPStatus(err))

	c, err := svc.Validate(ctx, "WELCOME10", 1000)
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.Discount)
	assert.Equal(t, models.DiscountPercent, c.DiscountType)
	assert.Equal(t, "WELCOME10", c.Code)

	_, err = svc.Validate(ctx, "WELCOME10", 500)
	assert.NoError(t, err)
}

func TestValidateCouponHidesInactive(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededCoupons(t)

	_, inactive := svc.Validate(ctx, "OLD5", 100)
	_, missing := svc.Validate(ctx, "NOPE", 100)
	assert.ErrorIs(t, inactive, apperr.ErrNotFound)
	assert.Equal(t, missing.Error(), inactive.Error())

	_, err := svc.Validate(ctx, "welcome10", 1000)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Validate(ctx, "  ", 1000)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDiscountFor(t *testing.T) {
	percent := &models.Coupon{Discount: 10, DiscountType: models.DiscountPercent}
	flat := &models.Coupon{Discount: 50, DiscountType: models.DiscountFlat}

	assert.Equal(t, "100", DiscountFor(percent, decimal.NewFromInt(1000)).String())
	assert.Equal(t, "12.35", DiscountFor(percent, decimal.RequireFromString("123.45")).String())
	assert.Equal(t, "50", DiscountFor(flat, decimal.NewFromInt(80)).String())
	assert.Equal(t, "30", DiscountFor(flat, decimal.NewFromInt(30)).String())
	assert.True(t, DiscountFor(flat, decimal.Zero).IsZero())
}

func TestCouponCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededCoupons(t)
	admin := adminSession()

	_, err := svc.Create(ctx, admin, CouponInput{Code: "WELCOME10", Discount: ptr(1.0), DiscountType: ptr(models.DiscountFlat)})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.Create(ctx, admin, CouponInput{Code: "BIG", Discount: ptr(150.0), DiscountType: ptr(models.DiscountPercent)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.Create(ctx, admin, CouponInput{Code: "ODD", Discount: ptr(1.0), DiscountType: ptr(models.DiscountType("bogo"))})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 2)

	old := list[0]
	assert.Equal(t, "OLD5", old.Code)
	updated, err := svc.Update(ctx, admin, old.ID, CouponInput{IsActive: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	_, err = svc.Update(ctx, admin, old.ID, CouponInput{DiscountType: ptr(models.DiscountPercent), Discount: ptr(101.0)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, svc.Delete(ctx, admin, old.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, old.ID), apperr.ErrNotFound)

	user := &auth.Session{UserID: primitive.NewObjectID(), Role: models.RoleUser}
	_, err = svc.List(ctx, user)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
