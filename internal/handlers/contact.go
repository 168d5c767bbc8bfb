package handlers

import (
	"net/http"
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

const contactCollection = "contact_messages"

type contactRequest struct {
	Name    string `json:"name" binding:"required,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"max=200"`
	Message string `json:"message" binding:"required,max=5000"`
}

type contactStatusRequest struct {
	Status models.ContactStatus `json:"status" binding:"required"`
}

// SubmitContact stores a contact form message with status new.
func SubmitContact(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			respondError(c, log, apperr.Validation("message is required"))
			return
		}

		now := time.Now()
		msg := models.ContactMessage{
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Subject:   strings.TrimSpace(req.Subject),
			Message:   strings.TrimSpace(req.Message),
			Status:    models.ContactNew,
			CreatedAt: now,
			UpdatedAt: now,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := db.Collection(contactCollection).InsertOne(ctx, msg)
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		msg.ID = res.InsertedID.(primitive.ObjectID)

		c.JSON(http.StatusCreated, gin.H{"id": msg.ID.Hex(), "message": "message received"})
	}
}

// ListContactMessages pages through messages, optionally by ?status.
func ListContactMessages(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, log, apperr.Validation(err.Error()))
			return
		}
		filter := bson.M{}
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			status := models.ContactStatus(v)
			if !status.Valid() {
				respondError(c, log, apperr.Validation("invalid status"))
				return
			}
			filter["status"] = status
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		col := db.Collection(contactCollection)
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
		messages := []models.ContactMessage{}
		if err := cursor.All(ctx, &messages); err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":       messages,
			"pagination": paginationBody(page, limit, total),
		})
	}
}

func UpdateContactStatus(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req contactStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if !req.Status.Valid() {
			respondError(c, log, apperr.Validation("invalid status"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var msg models.ContactMessage
		err := db.Collection(contactCollection).FindOneAndUpdate(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"status": req.Status, "updatedAt": time.Now()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&msg)
		if err == mongo.ErrNoDocuments {
			respondError(c, log, apperr.NotFound("message not found"))
			return
		}
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}
