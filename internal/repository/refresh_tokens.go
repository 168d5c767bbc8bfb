package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

type MongoRefreshTokens struct {
	col *mongo.Collection
}

func NewMongoRefreshTokens(db *mongo.Database) *MongoRefreshTokens {
	return &MongoRefreshTokens{col: db.Collection("refresh_tokens")}
}

func (r *MongoRefreshTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	res, err := r.col.InsertOne(ctx, t)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = id
	}
	return nil
}

func (r *MongoRefreshTokens) FindActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.col.FindOne(ctx, bson.M{"tokenHash": hash, "revoked": false}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Revoke marks an active token revoked. ErrNotFound means it was already
// revoked, or never existed.
func (r *MongoRefreshTokens) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	set := bson.M{"revoked": true}
	if replacedBy != nil {
		set["replacedByToken"] = *replacedBy
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "revoked": false}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeByHash reports whether an active token matched.
func (r *MongoRefreshTokens) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	res, err := r.col.UpdateOne(ctx, bson.M{"tokenHash": hash, "revoked": false}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
