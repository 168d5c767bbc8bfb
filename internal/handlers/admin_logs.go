package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const dateLayout = "2006-01-02"

// ListAdminLogs returns audit entries newest first. Filters: action, adminId,
// startDate, endDate. Dates are RFC 3339 or YYYY-MM-DD; a date-only endDate
// covers the whole day.
func ListAdminLogs(logs repository.AdminLogRepository, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireMasterAdmin(middleware.CurrentSession(c)); err != nil {
			respondError(c, log, err)
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondError(c, log, apperr.Validation(err.Error()))
			return
		}
		filter, err := parseAdminLogFilter(c.Query("action"), c.Query("adminId"), c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		entries, total, err := logs.List(ctx, filter, page, limit)
		if err != nil {
			respondError(c, log, apperr.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":       entries,
			"pagination": paginationBody(page, limit, total),
		})
	}
}

func parseAdminLogFilter(action, adminID, startDate, endDate string) (repository.AdminLogFilter, error) {
	var filter repository.AdminLogFilter

	if action = strings.TrimSpace(action); action != "" {
		a := models.AdminAction(action)
		if !a.Valid() {
			return filter, apperr.Validation("unknown action")
		}
		filter.Action = a
	}

	if adminID = strings.TrimSpace(adminID); adminID != "" {
		id, err := primitive.ObjectIDFromHex(adminID)
		if err != nil {
			return filter, apperr.Validation("invalid adminId")
		}
		filter.AdminID = &id
	}

	if startDate = strings.TrimSpace(startDate); startDate != "" {
		from, _, err := parseDate(startDate)
		if err != nil {
			return filter, apperr.Validation("invalid startDate")
		}
		filter.From = &from
	}

	if endDate = strings.TrimSpace(endDate); endDate != "" {
		to, dateOnly, err := parseDate(endDate)
		if err != nil {
			return filter, apperr.Validation("invalid endDate")
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}

	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, apperr.Validation("startDate must not be after endDate")
	}
	return filter, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
