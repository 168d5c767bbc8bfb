package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the privilege level persisted on a user.
type Role string

const (
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"
	RoleMasterAdmin Role = "master_admin"
)

// Auth providers. Only credential users carry a password hash.
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
)

// OrderStats is the aggregate kept on the user document and bumped at checkout.
type OrderStats struct {
	TotalOrders int        `bson:"totalOrders" json:"totalOrders"`
	TotalSpent  float64    `bson:"totalSpent" json:"totalSpent"`
	LastOrderAt *time.Time `bson:"lastOrderAt,omitempty" json:"lastOrderAt,omitempty"`
}

// User represents the application user account.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"passwordHash,omitempty" json:"-"`
	Name         string               `bson:"name" json:"name"`
	Image        string               `bson:"image,omitempty" json:"image,omitempty"`
	Provider     string               `bson:"provider" json:"provider"`
	Role         Role                 `bson:"role" json:"role"`
	IsSubscribed bool                 `bson:"isSubscribed" json:"isSubscribed"`
	Stats        OrderStats           `bson:"stats" json:"stats"`
	Wishlist     []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	Liked        []primitive.ObjectID `bson:"liked" json:"liked"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasPassword reports whether the account can log in with credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
