package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

type MongoAdminLogs struct {
	col *mongo.Collection
}

func NewMongoAdminLogs(db *mongo.Database) *MongoAdminLogs {
	return &MongoAdminLogs{col: db.Collection("admin_logs")}
}

func (r *MongoAdminLogs) Insert(ctx context.Context, entry *models.AdminLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.col.InsertOne(ctx, entry)
	return err
}

// List returns entries newest first.
func (r *MongoAdminLogs) List(ctx context.Context, filter AdminLogFilter, page, limit int) ([]models.AdminLog, int64, error) {
	query := adminLogQuery(filter)

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	logs := []models.AdminLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func adminLogQuery(filter AdminLogFilter) bson.M {
	query := bson.M{}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.AdminID != nil {
		query["adminId"] = *filter.AdminID
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lte"] = *filter.To
		}
		query["createdAt"] = created
	}
	return query
}
