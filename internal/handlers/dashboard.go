package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/models"
)

const (
	defaultRevenueDays = 30
	maxRevenueDays     = 365
)

type dailyRevenue struct {
	Date    string  `bson:"_id" json:"date"`
	Revenue float64 `bson:"revenue" json:"revenue"`
	Orders  int     `bson:"orders" json:"orders"`
}

type dashboardStats struct {
	Users           int64          `json:"users"`
	Products        int64          `json:"products"`
	Orders          int64          `json:"orders"`
	PendingOrders   int64          `json:"pendingOrders"`
	NewMessages     int64          `json:"newMessages"`
	Revenue         float64        `json:"revenue"`
	RevenueByDay    []dailyRevenue `json:"revenueByDay"`
	RevenueFromDate string         `json:"revenueFrom"`
}

var revenueMatch = bson.M{"status": bson.M{"$ne": models.OrderCancelled}}

// Dashboard reports catalogue and order counts, total revenue over
// non-cancelled orders, and revenue per UTC day for the last ?days days.
func Dashboard(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := defaultRevenueDays
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > maxRevenueDays {
				respondError(c, log, apperr.Validation("days must be between 1 and 365"))
				return
			}
			days = parsed
		}
		from := startOfDayUTC(time.Now()).AddDate(0, 0, -(days - 1))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		stats := dashboardStats{RevenueFromDate: from.Format(dateLayout)}
		g, gctx := errgroup.WithContext(ctx)
		count := func(dst *int64, col string, filter bson.M) {
			g.Go(func() error {
				n, err := db.Collection(col).CountDocuments(gctx, filter)
				*dst = n
				return err
			})
		}
		count(&stats.Users, "users", bson.M{})
		count(&stats.Products, productsCollection, bson.M{"isDeleted": bson.M{"$ne": true}})
		count(&stats.Orders, ordersCollection, bson.M{})
		count(&stats.PendingOrders, ordersCollection, bson.M{"status": models.OrderPending})
		count(&stats.NewMessages, contactCollection, bson.M{"status": models.ContactNew})

		g.Go(func() error {
			total, err := totalRevenue(gctx, db)
			stats.Revenue = total
			return err
		})
		g.Go(func() error {
			series, err := revenueByDay(gctx, db, from)
			stats.RevenueByDay = series
			return err
		})

		if err := g.Wait(); err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func totalRevenue(ctx context.Context, db *mongo.Database) (float64, error) {
	cursor, err := db.Collection(ordersCollection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: revenueMatch}},
		{{Key: "$group", Value: bson.M{"_id": nil, "revenue": bson.M{"$sum": "$total"}}}},
	})
	if err != nil {
		return 0, err
	}
	var out []struct {
		Revenue float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Revenue, nil
}

func revenueByDay(ctx context.Context, db *mongo.Database, from time.Time) ([]dailyRevenue, error) {
	match := bson.M{"createdAt": bson.M{"$gte": from}}
	for k, v := range revenueMatch {
		match[k] = v
	}
	cursor, err := db.Collection(ordersCollection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"revenue": bson.M{"$sum": "$total"},
			"orders":  bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	})
	if err != nil {
		return nil, err
	}
	series := []dailyRevenue{}
	if err := cursor.All(ctx, &series); err != nil {
		return nil, err
	}
	return fillRevenueGaps(series, from, startOfDayUTC(time.Now())), nil
}

// fillRevenueGaps returns one entry per day from..to inclusive, with zero
// revenue for days without orders.
func fillRevenueGaps(series []dailyRevenue, from, to time.Time) []dailyRevenue {
	byDate := make(map[string]dailyRevenue, len(series))
	for _, d := range series {
		byDate[d.Date] = d
	}
	out := make([]dailyRevenue, 0, len(series))
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		if d, ok := byDate[key]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, dailyRevenue{Date: key})
	}
	return out
}
