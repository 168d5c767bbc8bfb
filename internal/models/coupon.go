package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DiscountType string

const (
	DiscountFlat    DiscountType = "flat"
	DiscountPercent DiscountType = "percent"
)

func (d DiscountType) Valid() bool {
	return d == DiscountFlat || d == DiscountPercent
}

type Coupon struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code         string             `bson:"code" json:"code"`
	Discount     float64            `bson:"discount" json:"discount"`
	DiscountType DiscountType       `bson:"discountType" json:"discountType"`
	MinCartValue float64            `bson:"minCartValue" json:"minCartValue"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	Image        string             `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
