// Package repository holds the persistence contracts used by the services and
// their MongoDB implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserFilter narrows user listings.
type UserFilter struct {
	Roles  []models.Role
	Search string
}

// ProfileUpdate carries the optional fields an admin may edit on a user.
type ProfileUpdate struct {
	Name         *string
	IsSubscribed *bool
}

type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateRole(ctx context.Context, id primitive.ObjectID, role models.Role) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	// UpgradeToAdmin sets role and password hash in one write and fills the
	// name only when the stored one is empty.
	UpgradeToAdmin(ctx context.Context, id primitive.ObjectID, role models.Role, hash, name string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByRoles(ctx context.Context, roles ...models.Role) (int64, error)
	List(ctx context.Context, filter UserFilter, page, limit int) ([]models.User, int64, error)
	IncrementOrderStats(ctx context.Context, id primitive.ObjectID, amount float64, at time.Time) error
	AddToSet(ctx context.Context, id primitive.ObjectID, field string, productID primitive.ObjectID) error
	Pull(ctx context.Context, id primitive.ObjectID, field string, productID primitive.ObjectID) error
}

// Product reference set fields on the user document.
const (
	FieldWishlist = "wishlist"
	FieldLiked    = "liked"
)

// AdminLogFilter narrows audit queries. Zero values match everything.
type AdminLogFilter struct {
	Action  models.AdminAction
	AdminID *primitive.ObjectID
	From    *time.Time
	To      *time.Time
}

type AdminLogRepository interface {
	Insert(ctx context.Context, entry *models.AdminLog) error
	List(ctx context.Context, filter AdminLogFilter, page, limit int) ([]models.AdminLog, int64, error)
}

// CouponUpdate is a partial coupon edit.
type CouponUpdate struct {
	Discount     *float64
	DiscountType *models.DiscountType
	MinCartValue *float64
	IsActive     *bool
	Image        *string
}

type CouponRepository interface {
	FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	Update(ctx context.Context, id primitive.ObjectID, upd CouponUpdate) (*models.Coupon, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context) ([]models.Coupon, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, t *models.RefreshToken) error
	FindActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
	RevokeByHash(ctx context.Context, hash string) (bool, error)
}

var (
	_ UserRepository         = (*MongoUsers)(nil)
	_ AdminLogRepository     = (*MongoAdminLogs)(nil)
	_ CouponRepository       = (*MongoCoupons)(nil)
	_ RefreshTokenRepository = (*MongoRefreshTokens)(nil)
)
