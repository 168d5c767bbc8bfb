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

const (
	siteConfigCollection = "site_config"
	maxBanners           = 10
)

type siteConfigRequest struct {
	Banners      []models.Banner `json:"banners" binding:"dive"`
	Announcement string          `json:"announcement" binding:"max=500"`
}

// GetSiteConfig returns banners and the announcement. The storefront only
// sees active banners.
func GetSiteConfig(db *mongo.Database, activeOnly bool, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		cfg := models.SiteConfig{ID: models.SiteConfigKey, Banners: []models.Banner{}}
		err := db.Collection(siteConfigCollection).FindOne(ctx, bson.M{"_id": models.SiteConfigKey}).Decode(&cfg)
		if err != nil && err != mongo.ErrNoDocuments {
			respondError(c, log, apperr.Internal(err))
			return
		}

		if activeOnly {
			active := make([]models.Banner, 0, len(cfg.Banners))
			for _, b := range cfg.Banners {
				if b.IsActive {
					active = append(active, b)
				}
			}
			cfg.Banners = active
		}
		c.JSON(http.StatusOK, cfg)
	}
}

// UpdateSiteConfig replaces the whole site config document.
func UpdateSiteConfig(db *mongo.Database, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req siteConfigRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if len(req.Banners) > maxBanners {
			respondError(c, log, apperr.Validation("too many banners"))
			return
		}

		cfg := models.SiteConfig{
			ID:           models.SiteConfigKey,
			Banners:      req.Banners,
			Announcement: strings.TrimSpace(req.Announcement),
			UpdatedAt:    time.Now(),
		}
		if cfg.Banners == nil {
			cfg.Banners = []models.Banner{}
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		_, err := db.Collection(siteConfigCollection).ReplaceOne(ctx,
			bson.M{"_id": models.SiteConfigKey}, cfg, options.Replace().SetUpsert(true))
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		log.Info("site config updated", logger.Int("banners", len(cfg.Banners)))
		c.JSON(http.StatusOK, cfg)
	}
}
