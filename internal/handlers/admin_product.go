package handlers

import (
	"net/http"
	"regexp"
	"strconv"
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

// AdminListProducts pages through every non-deleted product, active or not.
func AdminListProducts(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, log, apperr.Validation(err.Error()))
			return
		}

		filter := bson.M{"isDeleted": bson.M{"$ne": true}}
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
			filter["$or"] = bson.A{
				bson.M{"name": pattern},
				bson.M{"brand": pattern},
				bson.M{"description": pattern},
			}
		}
		if isActive := strings.TrimSpace(c.Query("isActive")); isActive != "" {
			filter["isActive"] = strings.EqualFold(isActive, "true")
		}

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
			SetSort(bson.D{{Key: "createdAt", Value: -1}})
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

// CreateProduct accepts multipart/form-data with a required image.
func CreateProduct(db *mongo.Database, uploads *UploadStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": "multipart/form-data required"})
			return
		}
		form, err := parseProductForm(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		switch {
		case !form.NameSet || form.Name == "":
			err = apperr.Validation("name required")
		case !form.PriceSet || form.Price <= 0:
			err = apperr.Validation("invalid price")
		case !form.StockSet:
			err = apperr.Validation("stock required")
		case form.Stock < 0:
			err = apperr.Validation("stock must be zero or greater")
		case !form.CategoryIDSet:
			err = apperr.Validation("category_id required")
		case form.Image == nil:
			err = apperr.Validation("image required")
		default:
			err = validateSaleFields(form.Price, form.SaleEnabled, form.SalePrice, form.SalePriceSet)
		}
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		categories, err := resolveCategoryNamesByIDs(ctx, db, form.CategoryIDs)
		if err != nil {
			respondError(c, log, err)
			return
		}
		imagePath, err := uploads.SaveImage(form.Image, "products")
		if err != nil {
			respondError(c, log, err)
			return
		}

		isActive := true
		if form.IsActiveSet {
			isActive = form.IsActive
		}
		now := time.Now()
		product := models.Product{
			Name:        form.Name,
			Description: form.Description,
			Brand:       form.Brand,
			Price:       form.Price,
			SaleEnabled: form.SaleEnabled,
			SalePrice:   form.SalePrice,
			Category:    categories,
			Sizes:       form.Sizes,
			Colors:      form.Colors,
			ImagePath:   imagePath,
			Stock:       form.Stock,
			IsActive:    isActive,
			IsFeatured:  form.IsFeatured,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if !product.SaleEnabled {
			product.SalePrice = 0
		}

		res, err := db.Collection(productsCollection).InsertOne(ctx, product)
		if err != nil {
			uploads.discard(imagePath)
			respondError(c, log, apperr.Internal(err))
			return
		}
		product.ID = res.InsertedID.(primitive.ObjectID)
		decorateProduct(&product)

		log.Info("product created", logger.String("product_id", product.ID.Hex()))
		c.JSON(http.StatusCreated, product)
	}
}

// UpdateProduct applies a partial multipart edit. ?removeImage=true drops the
// stored image when no new one is sent.
func UpdateProduct(db *mongo.Database, uploads *UploadStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		removeImage := false
		if raw := strings.TrimSpace(c.Query("removeImage")); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				respondError(c, log, apperr.Validation("removeImage must be boolean"))
				return
			}
			removeImage = parsed
		}
		if !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": "multipart/form-data required"})
			return
		}
		form, err := parseProductForm(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		existing, err := findLiveProduct(ctx, db, id)
		if err != nil {
			respondError(c, log, err)
			return
		}

		set := bson.M{}
		unset := bson.M{}
		if form.NameSet {
			if form.Name == "" {
				respondError(c, log, apperr.Validation("name required"))
				return
			}
			set["name"] = form.Name
		}
		if form.PriceSet {
			if form.Price <= 0 {
				respondError(c, log, apperr.Validation("invalid price"))
				return
			}
			set["price"] = form.Price
		}
		if form.StockSet {
			if form.Stock < 0 {
				respondError(c, log, apperr.Validation("stock must be zero or greater"))
				return
			}
			set["stock"] = form.Stock
		}
		if form.DescriptionSet {
			set["description"] = form.Description
		}
		if form.BrandSet {
			set["brand"] = form.Brand
		}
		if form.SizesSet {
			set["sizes"] = form.Sizes
		}
		if form.ColorsSet {
			set["colors"] = form.Colors
		}
		if form.IsActiveSet {
			set["isActive"] = form.IsActive
		}
		if form.IsFeaturedSet {
			set["isFeatured"] = form.IsFeatured
		}
		if form.CategoryIDSet {
			categories, err := resolveCategoryNamesByIDs(ctx, db, form.CategoryIDs)
			if err != nil {
				respondError(c, log, err)
				return
			}
			set["category"] = categories
		}

		pricing, err := resolveSaleChange(existing, form.saleChange())
		if err != nil {
			respondError(c, log, err)
			return
		}
		if pricing.SetSaleEnabled {
			set["saleEnabled"] = pricing.SaleEnabled
		}
		if pricing.SetSalePrice {
			set["salePrice"] = pricing.SalePrice
		}

		newImage := ""
		if form.Image != nil {
			newImage, err = uploads.SaveImage(form.Image, "products")
			if err != nil {
				respondError(c, log, err)
				return
			}
			set["imagePath"] = newImage
		} else if removeImage {
			unset["imagePath"] = ""
		}

		if len(set) == 0 && len(unset) == 0 {
			respondError(c, log, apperr.Validation("no fields to update"))
			return
		}
		set["updatedAt"] = time.Now()

		update := bson.M{"$set": set}
		if len(unset) > 0 {
			update["$unset"] = unset
		}

		var updated models.Product
		err = db.Collection(productsCollection).FindOneAndUpdate(ctx, liveProduct(id), update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
		if err == mongo.ErrNoDocuments {
			uploads.discard(newImage)
			respondError(c, log, apperr.NotFound("product not found"))
			return
		}
		if err != nil {
			uploads.discard(newImage)
			respondError(c, log, apperr.Internal(err))
			return
		}

		if old := strings.TrimSpace(existing.ImagePath); old != "" && (newImage != "" || removeImage) {
			uploads.discard(old)
		}

		decorateProduct(&updated)
		log.Info("product updated", logger.String("product_id", id.Hex()))
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteProduct soft deletes a product and removes its image file.
func DeleteProduct(db *mongo.Database, uploads *UploadStore, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var existing models.Product
		err := db.Collection(productsCollection).FindOneAndUpdate(ctx, liveProduct(id), bson.M{"$set": bson.M{
			"isDeleted": true,
			"deletedAt": time.Now(),
			"isActive":  false,
		}}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			respondError(c, log, apperr.NotFound("product not found"))
			return
		}
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		uploads.discard(existing.ImagePath)
		log.Info("product deleted", logger.String("product_id", id.Hex()))
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
