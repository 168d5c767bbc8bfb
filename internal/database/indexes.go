package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/logger"
)

// indexSpec groups the indexes of one collection.
type indexSpec struct {
	collection string
	models     []mongo.IndexModel
}

func indexSpecs() []indexSpec {
	return []indexSpec{
		{
			collection: "users",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetName("email_unique").SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "role", Value: 1}},
					Options: options.Index().SetName("role_index"),
				},
			},
		},
		{
			collection: "admin_logs",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("createdAt_desc"),
				},
				{
					Keys:    bson.D{{Key: "adminId", Value: 1}, {Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("adminId_createdAt"),
				},
				{
					Keys:    bson.D{{Key: "action", Value: 1}, {Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("action_createdAt"),
				},
			},
		},
		{
			collection: "coupons",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "code", Value: 1}},
					Options: options.Index().SetName("code_unique").SetUnique(true),
				},
			},
		},
		{
			collection: "orders",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "userId", Value: 1}},
					Options: options.Index().SetName("userId_index"),
				},
				{
					Keys:    bson.D{{Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("createdAt_desc"),
				},
			},
		},
		{
			collection: "products",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "isDeleted", Value: 1}, {Key: "isActive", Value: 1}},
					Options: options.Index().SetName("visibility_index"),
				},
			},
		},
		{
			collection: "categories",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "slug", Value: 1}},
					Options: options.Index().SetName("slug_unique").SetUnique(true),
				},
			},
		},
		{
			collection: "refresh_tokens",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "tokenHash", Value: 1}},
					Options: options.Index().SetName("tokenHash_unique").SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "expiresAt", Value: 1}},
					Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
				},
			},
		},
		{
			collection: "contact_messages",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
					Options: options.Index().SetName("status_createdAt"),
				},
			},
		},
	}
}

// EnsureIndexes creates every index the service relies on. A failure on one
// collection is logged and the remaining collections are still processed; the
// first error is returned.
func EnsureIndexes(db *mongo.Database, log logger.Logger) error {
	var firstErr error
	for _, spec := range indexSpecs() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		names, err := db.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models)
		cancel()
		if err != nil {
			log.Warn("index creation failed",
				logger.String("collection", spec.collection),
				logger.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Debug("indexes ensured",
			logger.String("collection", spec.collection),
			logger.Any("indexes", names),
		)
	}
	return firstErr
}
