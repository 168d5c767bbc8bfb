package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func TestValidateCoupon(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.coupons.Create(context.Background(), &models.Coupon{
		Code: "SPRING10", Discount: 10, DiscountType: models.DiscountPercent, MinCartValue: 50, IsActive: true,
	}))
	require.NoError(t, s.coupons.Create(context.Background(), &models.Coupon{
		Code: "OLD", Discount: 5, DiscountType: models.DiscountFlat, IsActive: false,
	}))

	t.Run("applies", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/coupons/validate", "", gin.H{"code": "SPRING10", "cartTotal": 80})
		requireStatus(t, rec, http.StatusOK)
		body := decode(t, rec)
		assert.Equal(t, "SPRING10", body["code"])
		assert.EqualValues(t, 10, body["discount"])
		assert.Equal(t, "percent", body["discountType"])
	})

	t.Run("below minimum", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/coupons/validate", "", gin.H{"code": "SPRING10", "cartTotal": 49.99})
		requireStatus(t, rec, http.StatusBadRequest)
		body := decode(t, rec)
		assert.Equal(t, "below_minimum", body["reason"])
		assert.EqualValues(t, 50, body["minCartValue"])
	})

	t.Run("unknown and inactive codes look the same", func(t *testing.T) {
		for _, code := range []string{"NOPE", "OLD", "spring10"} {
			rec := s.do(t, http.MethodPost, "/coupons/validate", "", gin.H{"code": code, "cartTotal": 100})
			requireStatus(t, rec, http.StatusNotFound)
			assert.Equal(t, "coupon not found", decode(t, rec)["error"])
		}
	})

	t.Run("missing cart total", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/coupons/validate", "", gin.H{"code": "SPRING10"})
		requireStatus(t, rec, http.StatusBadRequest)
		assert.Contains(t, decode(t, rec)["details"], "cartTotal is required")
	})

	t.Run("zero cart total is still checked", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/coupons/validate", "", gin.H{"code": "SPRING10", "cartTotal": 0})
		requireStatus(t, rec, http.StatusBadRequest)
		assert.Equal(t, "below_minimum", decode(t, rec)["reason"])
	})
}

func TestCreateCouponByAdmin(t *testing.T) {
	s := newTestServer(t)
	_, admin := s.seed(t, "staff@shop.test", models.RoleAdmin, "staff-pw")

	rec := s.do(t, http.MethodPost, "/admin/api/coupons", admin, gin.H{"code": "BIG", "discount": 150, "discountType": "percent"})
	requireStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/admin/api/coupons", admin, gin.H{"code": "FLAT5", "discount": 5, "discountType": "flat"})
	requireStatus(t, rec, http.StatusCreated)
	assert.Equal(t, true, decode(t, rec)["isActive"])

	rec = s.do(t, http.MethodPost, "/admin/api/coupons", admin, gin.H{"code": "FLAT5", "discount": 7, "discountType": "flat"})
	requireStatus(t, rec, http.StatusConflict)

	rec = s.do(t, http.MethodGet, "/admin/api/coupons", admin, nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, decode(t, rec)["data"], 1)
}
