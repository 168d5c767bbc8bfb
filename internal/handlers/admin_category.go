package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/models"
)

type categoryCreateRequest struct {
	Name     string `json:"name" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

type categoryUpdateRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lower-cases a name and joins its alphanumeric runs with dashes.
func slugify(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-"), "-")
}

func findCategories(ctx context.Context, db *mongo.Database, filter bson.M, sort bson.D) ([]models.Category, error) {
	cursor, err := db.Collection(categoriesCollection).Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// AdminListCategories lists all categories, optionally filtered by ?isActive.
func AdminListCategories(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := bson.M{}
		if v := strings.TrimSpace(c.Query("isActive")); v != "" {
			filter["isActive"] = v == "true"
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		categories, err := findCategories(ctx, db, filter, bson.D{{Key: "createdAt", Value: -1}})
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": categories})
	}
}

func CreateCategory(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req categoryCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		name := strings.TrimSpace(req.Name)
		slug := slugify(name)
		if slug == "" {
			respondError(c, log, apperr.Validation("name must contain letters or digits"))
			return
		}

		category := models.Category{
			Name:      name,
			Slug:      slug,
			IsActive:  true,
			CreatedAt: time.Now(),
		}
		if req.IsActive != nil {
			category.IsActive = *req.IsActive
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(categoriesCollection).InsertOne(ctx, category)
		if mongo.IsDuplicateKeyError(err) {
			respondError(c, log, apperr.Conflict("category already exists"))
			return
		}
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		category.ID = res.InsertedID.(primitive.ObjectID)

		c.JSON(http.StatusCreated, category)
	}
}

// UpdateCategory renames or toggles a category. A rename is propagated to
// the product documents that carry the old name.
func UpdateCategory(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req categoryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		set := bson.M{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			slug := slugify(name)
			if slug == "" {
				respondError(c, log, apperr.Validation("name must contain letters or digits"))
				return
			}
			set["name"] = name
			set["slug"] = slug
		}
		if req.IsActive != nil {
			set["isActive"] = *req.IsActive
		}
		if len(set) == 0 {
			respondError(c, log, apperr.Validation("no fields to update"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var previous models.Category
		err := db.Collection(categoriesCollection).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}).Decode(&previous)
		switch {
		case err == mongo.ErrNoDocuments:
			respondError(c, log, apperr.NotFound("category not found"))
			return
		case mongo.IsDuplicateKeyError(err):
			respondError(c, log, apperr.Conflict("category already exists"))
			return
		case err != nil:
			respondError(c, log, apperr.Internal(err))
			return
		}

		updated := previous
		if name, ok := set["name"].(string); ok && name != previous.Name {
			res, err := db.Collection(productsCollection).UpdateMany(ctx,
				bson.M{"category": previous.Name},
				bson.M{"$set": bson.M{"category.$[c]": name}},
				options.Update().SetArrayFilters(options.ArrayFilters{Filters: bson.A{bson.M{"c": previous.Name}}}),
			)
			if err != nil {
				log.Error("category rename propagation failed", logger.String("category_id", id.Hex()), logger.Error(err))
			} else {
				log.Info("category renamed", logger.String("category_id", id.Hex()), logger.Int64("products", res.ModifiedCount))
			}
			updated.Name = name
			updated.Slug = set["slug"].(string)
		}
		if req.IsActive != nil {
			updated.IsActive = *req.IsActive
		}

		c.JSON(http.StatusOK, updated)
	}
}

// DeleteCategory deactivates a category. Products keep their category names.
func DeleteCategory(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(categoriesCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isActive": false}})
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, log, apperr.NotFound("category not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "category deactivated"})
	}
}
