package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type MongoCoupons struct {
	col *mongo.Collection
}

func NewMongoCoupons(db *mongo.Database) *MongoCoupons {
	return &MongoCoupons{col: db.Collection("coupons")}
}

func (r *MongoCoupons) FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": code, "isActive": true})
}

func (r *MongoCoupons) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoCoupons) findOne(ctx context.Context, filter bson.M) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.col.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoCoupons) Create(ctx context.Context, c *models.Coupon) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}

func (r *MongoCoupons) Update(ctx context.Context, id primitive.ObjectID, upd CouponUpdate) (*models.Coupon, error) {
	set := bson.M{"updatedAt": time.Now()}
	if upd.Discount != nil {
		set["discount"] = *upd.Discount
	}
	if upd.DiscountType != nil {
		set["discountType"] = *upd.DiscountType
	}
	if upd.MinCartValue != nil {
		set["minCartValue"] = *upd.MinCartValue
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.Coupon
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoCoupons) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCoupons) List(ctx context.Context) ([]models.Coupon, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	coupons := []models.Coupon{}
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}
