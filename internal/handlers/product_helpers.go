package handlers

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

const (
	productsCollection   = "products"
	categoriesCollection = "categories"
)

// liveProduct matches products that have not been soft deleted.
func liveProduct(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}}
}

func decodeProduct(raw bson.Raw) (models.Product, error) {
	var p models.Product
	if err := bson.Unmarshal(raw, &p); err != nil {
		return models.Product{}, err
	}
	decorateProduct(&p)
	return p, nil
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	products := make([]models.Product, 0)
	for cursor.Next(ctx) {
		product, err := decodeProduct(cursor.Current)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func findLiveProduct(ctx context.Context, db *mongo.Database, id primitive.ObjectID) (*models.Product, error) {
	raw, err := db.Collection(productsCollection).FindOne(ctx, liveProduct(id)).Raw()
	if err == mongo.ErrNoDocuments {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	p, err := decodeProduct(raw)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &p, nil
}

// resolveCategoryNamesByIDs maps category ids to names, keeping request order
// and dropping duplicates.
func resolveCategoryNamesByIDs(ctx context.Context, db *mongo.Database, ids []string) (models.StringList, error) {
	seen := map[primitive.ObjectID]struct{}{}
	ordered := make([]primitive.ObjectID, 0, len(ids))
	for _, raw := range ids {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		objectID, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("invalid category_id: %s", value))
		}
		if _, ok := seen[objectID]; ok {
			continue
		}
		seen[objectID] = struct{}{}
		ordered = append(ordered, objectID)
	}
	if len(ordered) == 0 {
		return nil, apperr.Validation("category_id required")
	}

	cursor, err := db.Collection(categoriesCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ordered}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, apperr.Internal(err)
	}

	nameByID := make(map[primitive.ObjectID]string, len(categories))
	for _, category := range categories {
		nameByID[category.ID] = category.Name
	}

	names := make([]string, 0, len(ordered))
	for _, objectID := range ordered {
		name, ok := nameByID[objectID]
		if !ok {
			return nil, apperr.Validation(fmt.Sprintf("category not found: %s", objectID.Hex()))
		}
		names = append(names, name)
	}
	return models.NormalizeList(names), nil
}
