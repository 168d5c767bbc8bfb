package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repository"
)

type productRefRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func productSetOf(u *models.User, field string) []primitive.ObjectID {
	if field == repository.FieldLiked {
		return u.Liked
	}
	return u.Wishlist
}

// orderByIDs keeps the order of ids and drops products that no longer exist.
func orderByIDs(ids []primitive.ObjectID, products []models.Product) []models.Product {
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(products))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ListProductSet returns the products in the caller's wishlist or liked set.
func ListProductSet(db *mongo.Database, users repository.UserRepository, field string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.CurrentSession(c)
		if err := auth.RequireRole(session, models.RoleUser); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := users.FindByID(ctx, session.UserID)
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		ids := productSetOf(u, field)
		if len(ids) == 0 {
			c.JSON(http.StatusOK, gin.H{"data": []models.Product{}})
			return
		}

		cursor, err := db.Collection(productsCollection).Find(ctx, bson.M{
			"_id":       bson.M{"$in": ids},
			"isDeleted": bson.M{"$ne": true},
		})
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
		c.JSON(http.StatusOK, gin.H{"data": orderByIDs(ids, products)})
	}
}

// AddToProductSet adds a live product to the caller's wishlist or liked set.
func AddToProductSet(db *mongo.Database, users repository.UserRepository, field string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.CurrentSession(c)
		if err := auth.RequireRole(session, models.RoleUser); err != nil {
			respondError(c, log, err)
			return
		}
		var req productRefRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			respondError(c, log, apperr.Validation("invalid productId"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := db.Collection(productsCollection).FindOne(ctx, liveProduct(productID)).Err(); err != nil {
			if err == mongo.ErrNoDocuments {
				respondError(c, log, apperr.NotFound("product not found"))
				return
			}
			respondError(c, log, apperr.Internal(err))
			return
		}

		if err := users.AddToSet(ctx, session.UserID, field, productID); err != nil {
			respondError(c, log, productSetErr(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": field + " updated"})
	}
}

// RemoveFromProductSet is idempotent and does not require the product to
// still exist.
func RemoveFromProductSet(users repository.UserRepository, field string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.CurrentSession(c)
		if err := auth.RequireRole(session, models.RoleUser); err != nil {
			respondError(c, log, err)
			return
		}
		productID, ok := objectIDParam(c, "productId")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := users.Pull(ctx, session.UserID, field, productID); err != nil {
			respondError(c, log, productSetErr(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": field + " updated"})
	}
}

func productSetErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Unauthenticated("account no longer exists")
	}
	return apperr.Internal(err)
}
