package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service"
)

const (
	ordersCollection = "orders"
	maxOrderItems    = 50
)

var paymentMethods = map[string]struct{}{
	"card":             {},
	"cash_on_delivery": {},
}

type orderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type createOrderRequest struct {
	Items           []orderItemRequest     `json:"items" binding:"required,dive"`
	Email           string                 `json:"email"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod" binding:"required"`
	CouponCode      string                 `json:"couponCode"`
}

type outOfStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return "product out of stock"
}

type productUnavailableError struct {
	ProductID primitive.ObjectID
}

func (e productUnavailableError) Error() string {
	return "product not available"
}

// Checkout wires the collaborators of order placement.
type Checkout struct {
	DB      *mongo.Database
	Users   repository.UserRepository
	Coupons *service.CouponService
	Metrics *metrics.Metrics
	Log     logger.Logger
}

// buildOrderDraft validates the request shape. Prices are filled in later
// from the product documents.
func buildOrderDraft(req createOrderRequest, session *auth.Session, now time.Time) (models.Order, error) {
	if len(req.Items) == 0 {
		return models.Order{}, apperr.Validation("at least one item is required")
	}
	if len(req.Items) > maxOrderItems {
		return models.Order{}, apperr.Validation(fmt.Sprintf("at most %d items per order", maxOrderItems))
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if _, ok := paymentMethods[method]; !ok {
		return models.Order{}, apperr.Validation("invalid payment method")
	}

	order := models.Order{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentPending,
		Status:          models.OrderPending,
		CouponCode:      strings.TrimSpace(req.CouponCode),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if session != nil {
		id := session.UserID
		order.UserID = &id
		order.Email = session.Email
	} else {
		order.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if order.Email == "" {
			return models.Order{}, apperr.Validation("email is required for guest checkout")
		}
	}

	order.Items = make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID))
		if err != nil {
			return models.Order{}, apperr.Validation("invalid productId")
		}
		if item.Quantity <= 0 {
			return models.Order{}, apperr.Validation("quantity must be greater than zero")
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID: productID,
			Quantity:  item.Quantity,
			Size:      strings.TrimSpace(item.Size),
			Color:     strings.TrimSpace(item.Color),
		})
	}
	return order, nil
}

// priceLine snapshots the product onto a cart line and checks the chosen
// variant and stock.
func priceLine(p *models.Product, line models.OrderItem) (models.OrderItem, error) {
	if !p.IsActive {
		return models.OrderItem{}, productUnavailableError{ProductID: p.ID}
	}
	if len(p.Sizes) > 0 {
		if line.Size == "" {
			return models.OrderItem{}, apperr.Validation(fmt.Sprintf("size is required for %s", p.Name))
		}
		if !p.Sizes.Contains(line.Size) {
			return models.OrderItem{}, apperr.Validation(fmt.Sprintf("size %s is not offered for %s", line.Size, p.Name))
		}
	}
	if len(p.Colors) > 0 {
		if line.Color == "" {
			return models.OrderItem{}, apperr.Validation(fmt.Sprintf("color is required for %s", p.Name))
		}
		if !p.Colors.Contains(line.Color) {
			return models.OrderItem{}, apperr.Validation(fmt.Sprintf("color %s is not offered for %s", line.Color, p.Name))
		}
	}
	if p.Stock < line.Quantity {
		return models.OrderItem{}, outOfStockError{ProductID: p.ID, Available: p.Stock, Requested: line.Quantity}
	}

	line.Name = p.Name
	line.Image = p.ImagePath
	line.Price = effectivePrice(p)
	return line, nil
}

// orderSubtotal sums the priced lines in decimal arithmetic.
func orderSubtotal(items []models.OrderItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal.Round(2)
}

// applyTotals fills subtotal, discount and total. A nil coupon means no
// discount.
func applyTotals(order *models.Order, coupon *models.Coupon) {
	subtotal := orderSubtotal(order.Items)
	discount := decimal.Zero
	if coupon != nil {
		discount = service.DiscountFor(coupon, subtotal)
		order.CouponCode = coupon.Code
	} else {
		order.CouponCode = ""
	}
	order.Subtotal = subtotal.InexactFloat64()
	order.Discount = discount.InexactFloat64()
	order.Total = subtotal.Sub(discount).InexactFloat64()
}

// place runs stock reservation, pricing, coupon validation and the insert in
// one transaction.
func (co *Checkout) place(ctx context.Context, order *models.Order) error {
	session, err := co.DB.Client().StartSession()
	if err != nil {
		return apperr.Internal(err)
	}
	defer session.EndSession(ctx)

	products := co.DB.Collection(productsCollection)
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		priced := make([]models.OrderItem, 0, len(order.Items))
		for _, line := range order.Items {
			raw, err := products.FindOne(sessCtx, liveProduct(line.ProductID)).Raw()
			if err == mongo.ErrNoDocuments {
				return nil, productUnavailableError{ProductID: line.ProductID}
			}
			if err != nil {
				return nil, err
			}
			product, err := decodeProduct(raw)
			if err != nil {
				return nil, err
			}
			item, err := priceLine(&product, line)
			if err != nil {
				return nil, err
			}

			res, err := products.UpdateOne(sessCtx,
				bson.M{"_id": line.ProductID, "isDeleted": bson.M{"$ne": true}, "stock": bson.M{"$gte": line.Quantity}},
				bson.M{"$inc": bson.M{"stock": -line.Quantity}},
			)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, outOfStockError{ProductID: line.ProductID, Available: product.Stock, Requested: line.Quantity}
			}
			priced = append(priced, item)
		}
		order.Items = priced

		var coupon *models.Coupon
		if order.CouponCode != "" {
			c, err := co.Coupons.Validate(sessCtx, order.CouponCode, orderSubtotal(priced).InexactFloat64())
			if err != nil {
				return nil, err
			}
			coupon = c
		}
		applyTotals(order, coupon)

		res, err := co.DB.Collection(ordersCollection).InsertOne(sessCtx, order)
		if err != nil {
			return nil, err
		}
		order.ID = res.InsertedID.(primitive.ObjectID)
		return nil, nil
	})
	return err
}

// CreateOrder places an order for the signed-in user or a guest.
func (co *Checkout) CreateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		session := middleware.CurrentSession(c)
		order, err := buildOrderDraft(req, session, time.Now())
		if err != nil {
			respondError(c, co.Log, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		if err := co.place(ctx, &order); err != nil {
			co.respondCheckoutError(c, err)
			return
		}

		if order.UserID != nil {
			if err := co.Users.IncrementOrderStats(ctx, *order.UserID, order.Total, order.CreatedAt); err != nil {
				co.Log.Error("order stats update failed",
					logger.String("user_id", order.UserID.Hex()),
					logger.String("order_id", order.ID.Hex()),
					logger.Error(err))
			}
		}
		if co.Metrics != nil {
			co.Metrics.Orders.WithLabelValues(fmt.Sprint(order.CouponCode != "")).Inc()
		}

		co.Log.Info("order created",
			logger.String("order_id", order.ID.Hex()),
			logger.Bool("guest", order.UserID == nil),
			logger.Float64("total", order.Total))
		c.JSON(http.StatusCreated, order)
	}
}

func (co *Checkout) respondCheckoutError(c *gin.Context, err error) {
	var stockErr outOfStockError
	if errors.As(err, &stockErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     stockErr.Error(),
			"reason":    "out_of_stock",
			"productId": stockErr.ProductID.Hex(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}
	var unavailable productUnavailableError
	if errors.As(err, &unavailable) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     unavailable.Error(),
			"reason":    "product_unavailable",
			"productId": unavailable.ProductID.Hex(),
		})
		return
	}
	var below *service.BelowMinimumError
	if errors.As(err, &below) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":        below.Error(),
			"reason":       "below_minimum",
			"minCartValue": below.MinCartValue,
		})
		return
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		respondError(c, co.Log, err)
		return
	}
	respondError(c, co.Log, apperr.Internal(err))
}

// MyOrders lists the signed-in user's orders, newest first.
func MyOrders(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := middleware.CurrentSession(c)
		if err := auth.RequireRole(session, models.RoleUser); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		cursor, err := db.Collection(ordersCollection).Find(ctx,
			bson.M{"userId": session.UserID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		orders := []models.Order{}
		if err := cursor.All(ctx, &orders); err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": orders})
	}
}
