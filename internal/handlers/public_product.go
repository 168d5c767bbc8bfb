package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/logger"
)

var visibleProducts = bson.M{
	"isActive":  bson.M{"$ne": false},
	"isDeleted": bson.M{"$ne": true},
}

// publicProductFilter builds the storefront query from the listing params.
func publicProductFilter(category, search, featured, onSale string) bson.M {
	filter := bson.M{}
	for k, v := range visibleProducts {
		filter[k] = v
	}
	if category = strings.TrimSpace(category); category != "" {
		filter["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(category) + "$", Options: "i"}
	}
	if search = strings.TrimSpace(search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"brand": pattern}}
	}
	if strings.EqualFold(strings.TrimSpace(featured), "true") {
		filter["isFeatured"] = true
	}
	if strings.EqualFold(strings.TrimSpace(onSale), "true") {
		filter["saleEnabled"] = true
		filter["salePrice"] = bson.M{"$gt": 0}
	}
	return filter
}

func productSort(sort string) bson.D {
	switch sort {
	case "price_asc":
		return bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		return bson.D{{Key: "price", Value: -1}}
	case "name":
		return bson.D{{Key: "name", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

// ListProducts serves the storefront catalog. Filters: category, search,
// featured, onSale; sort: newest, price_asc, price_desc, name.
func ListProducts(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, log, apperr.Validation(err.Error()))
			return
		}
		filter := publicProductFilter(c.Query("category"), c.Query("search"), c.Query("featured"), c.Query("onSale"))

		ctx, cancel := requestContext(c)
		defer cancel()

		col := db.Collection(productsCollection)
		total, err := col.CountDocuments(ctx, filter)
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		opts := options.Find().
			SetSkip(int64((page - 1) * limit)).
			SetLimit(int64(limit)).
			SetSort(productSort(c.Query("sort")))
		cursor, err := col.Find(ctx, filter, opts)
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":       products,
			"pagination": paginationBody(page, limit, total),
		})
	}
}

func GetProduct(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := findLiveProduct(ctx, db, id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if !product.IsActive {
			respondError(c, log, apperr.NotFound("product not found"))
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// ListCategories returns the active categories by name.
func ListCategories(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		categories, err := findCategories(ctx, db, bson.M{"isActive": true}, bson.D{{Key: "name", Value: 1}})
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": categories})
	}
}
