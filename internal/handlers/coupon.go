package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/service"
)

type validateCouponRequest struct {
	Code      string   `json:"code" binding:"required"`
	CartTotal *float64 `json:"cartTotal" binding:"required"`
}

type couponRequest struct {
	Code         string               `json:"code"`
	Discount     *float64             `json:"discount"`
	DiscountType *models.DiscountType `json:"discountType"`
	MinCartValue *float64             `json:"minCartValue"`
	IsActive     *bool                `json:"isActive"`
	Image        *string              `json:"image"`
}

func (r couponRequest) input() service.CouponInput {
	return service.CouponInput{
		Code:         r.Code,
		Discount:     r.Discount,
		DiscountType: r.DiscountType,
		MinCartValue: r.MinCartValue,
		IsActive:     r.IsActive,
		Image:        r.Image,
	}
}

// ValidateCoupon returns the discount terms of an active coupon, or the
// reason it cannot be applied to the given cart total.
func ValidateCoupon(coupons *service.CouponService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		coupon, err := coupons.Validate(ctx, req.Code, *req.CartTotal)
		if err != nil {
			var below *service.BelowMinimumError
			if errors.As(err, &below) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":        below.Error(),
					"reason":       "below_minimum",
					"minCartValue": below.MinCartValue,
				})
				return
			}
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"code":         coupon.Code,
			"discount":     coupon.Discount,
			"discountType": coupon.DiscountType,
		})
	}
}

func ListCoupons(coupons *service.CouponService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := coupons.List(ctx, middleware.CurrentSession(c))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
	}
}

func CreateCoupon(coupons *service.CouponService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req couponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		coupon, err := coupons.Create(ctx, middleware.CurrentSession(c), req.input())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, coupon)
	}
}

func UpdateCoupon(coupons *service.CouponService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req couponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		coupon, err := coupons.Update(ctx, middleware.CurrentSession(c), id, req.input())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, coupon)
	}
}

func DeleteCoupon(coupons *service.CouponService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := coupons.Delete(ctx, middleware.CurrentSession(c), id); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "coupon deleted"})
	}
}
