package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/models"
)

type orderStatusRequest struct {
	Status        *models.OrderStatus   `json:"status"`
	PaymentStatus *models.PaymentStatus `json:"paymentStatus"`
}

// statusUpdate validates a status edit. Nothing else on an order is mutable.
func (r orderStatusRequest) statusUpdate() (bson.M, error) {
	set := bson.M{}
	if r.Status != nil {
		if !r.Status.Valid() {
			return nil, apperr.Validation("invalid status")
		}
		set["status"] = *r.Status
	}
	if r.PaymentStatus != nil {
		if !r.PaymentStatus.Valid() {
			return nil, apperr.Validation("invalid paymentStatus")
		}
		set["paymentStatus"] = *r.PaymentStatus
	}
	if len(set) == 0 {
		return nil, apperr.Validation("status or paymentStatus is required")
	}
	return set, nil
}

func AdminListOrders(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, log, apperr.Validation(err.Error()))
			return
		}

		filter := bson.M{}
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			if !models.OrderStatus(v).Valid() {
				respondError(c, log, apperr.Validation("invalid status"))
				return
			}
			filter["status"] = v
		}
		if v := strings.TrimSpace(c.Query("paymentStatus")); v != "" {
			if !models.PaymentStatus(v).Valid() {
				respondError(c, log, apperr.Validation("invalid paymentStatus"))
				return
			}
			filter["paymentStatus"] = v
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		col := db.Collection(ordersCollection)
		total, err := col.CountDocuments(ctx, filter)
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		cursor, err := col.Find(ctx, filter, options.Find().
			SetSkip(int64((page-1)*limit)).
			SetLimit(int64(limit)).
			SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		orders := []models.Order{}
		if err := cursor.All(ctx, &orders); err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":       orders,
			"pagination": paginationBody(page, limit, total),
		})
	}
}

func AdminGetOrder(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var order models.Order
		err := db.Collection(ordersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondError(c, log, apperr.NotFound("order not found"))
			return
		}
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// UpdateOrderStatus changes the fulfilment and/or payment status.
func UpdateOrderStatus(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		set, err := req.statusUpdate()
		if err != nil {
			respondError(c, log, err)
			return
		}
		set["updatedAt"] = time.Now()

		ctx, cancel := requestContext(c)
		defer cancel()

		var order models.Order
		err = db.Collection(ordersCollection).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&order)
		if err == mongo.ErrNoDocuments {
			respondError(c, log, apperr.NotFound("order not found"))
			return
		}
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		log.Info("order status updated",
			logger.String("order_id", id.Hex()),
			logger.String("status", string(order.Status)),
			logger.String("payment_status", string(order.PaymentStatus)))
		c.JSON(http.StatusOK, order)
	}
}
