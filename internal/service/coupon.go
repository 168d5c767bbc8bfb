package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/repository"
)

// BelowMinimumError rejects a coupon when the cart total is under the
// coupon's minimum cart value.
type BelowMinimumError struct {
	MinCartValue float64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("cart total must be at least %.2f to use this coupon", e.MinCartValue)
}

// Unwrap classifies the rejection as a validation failure.
func (e *BelowMinimumError) Unwrap() error {
	return apperr.ErrValidation
}

var errCouponNotFound = apperr.NotFound("coupon not found")

type CouponService struct {
	coupons repository.CouponRepository
}

func NewCouponService(coupons repository.CouponRepository) *CouponService {
	return &CouponService{coupons: coupons}
}

// Validate looks up an active coupon by exact code. Absent and inactive codes
// are reported the same way.
func (s *CouponService) Validate(ctx context.Context, code string, cartTotal float64) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation("code is required")
	}
	if cartTotal < 0 {
		return nil, apperr.Validation("cartTotal must not be negative")
	}

	c, err := s.coupons.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errCouponNotFound
		}
		return nil, apperr.Internal(err)
	}
	if cartTotal < c.MinCartValue {
		return nil, &BelowMinimumError{MinCartValue: c.MinCartValue}
	}
	return c, nil
}

// DiscountFor is the amount taken off subtotal. It never exceeds subtotal and
// percent discounts are rounded half up to cents.
func DiscountFor(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	amount := decimal.NewFromFloat(c.Discount)
	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercent:
		discount = subtotal.Mul(amount).Div(decimal.NewFromInt(100)).Round(2)
	case models.DiscountFlat:
		discount = amount
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}

// CouponInput is used for create and, with nil meaning unchanged, update.
type CouponInput struct {
	Code         string
	Discount     *float64
	DiscountType *models.DiscountType
	MinCartValue *float64
	IsActive     *bool
	Image        *string
}

func (s *CouponService) Create(ctx context.Context, actor *auth.Session, in CouponInput) (*models.Coupon, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, apperr.Validation("code is required")
	}
	if in.Discount == nil || in.DiscountType == nil {
		return nil, apperr.Validation("discount and discountType are required")
	}

	c := &models.Coupon{
		Code:         code,
		Discount:     *in.Discount,
		DiscountType: *in.DiscountType,
		IsActive:     true,
	}
	if in.MinCartValue != nil {
		c.MinCartValue = *in.MinCartValue
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.Image != nil {
		c.Image = strings.TrimSpace(*in.Image)
	}
	if err := validateCoupon(c); err != nil {
		return nil, err
	}

	if err := s.coupons.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("coupon code already exists")
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

// Update applies a partial change. The code itself is immutable.
func (s *CouponService) Update(ctx context.Context, actor *auth.Session, id primitive.ObjectID, in CouponInput) (*models.Coupon, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	current, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errCouponNotFound
		}
		return nil, apperr.Internal(err)
	}

	merged := *current
	if in.Discount != nil {
		merged.Discount = *in.Discount
	}
	if in.DiscountType != nil {
		merged.DiscountType = *in.DiscountType
	}
	if in.MinCartValue != nil {
		merged.MinCartValue = *in.MinCartValue
	}
	if err := validateCoupon(&merged); err != nil {
		return nil, err
	}

	updated, err := s.coupons.Update(ctx, id, repository.CouponUpdate{
		Discount:     in.Discount,
		DiscountType: in.DiscountType,
		MinCartValue: in.MinCartValue,
		IsActive:     in.IsActive,
		Image:        in.Image,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errCouponNotFound
		}
		return nil, apperr.Internal(err)
	}
	return updated, nil
}

func (s *CouponService) Delete(ctx context.Context, actor *auth.Session, id primitive.ObjectID) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.coupons.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errCouponNotFound
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *CouponService) List(ctx context.Context, actor *auth.Session) ([]models.Coupon, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return coupons, nil
}

func validateCoupon(c *models.Coupon) error {
	if !c.DiscountType.Valid() {
		return apperr.Validation("discountType must be flat or percent")
	}
	if c.Discount <= 0 {
		return apperr.Validation("discount must be greater than 0")
	}
	if c.DiscountType == models.DiscountPercent && c.Discount > 100 {
		return apperr.Validation("percent discount cannot exceed 100")
	}
	if c.MinCartValue < 0 {
		return apperr.Validation("minCartValue must not be negative")
	}
	return nil
}
