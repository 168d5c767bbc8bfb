package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/apperr"
	"storefront/internal/logger"
)

// respondError writes err as {"error", "code"} with the mapped status.
// Internal errors are logged with their cause and answered generically.
func respondError(c *gin.Context, log logger.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			logger.String("route", c.FullPath()),
			logger.String("request_id", c.GetString("request_id")),
			logger.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": apperr.PublicMessage(err),
		"code":  apperr.CodeOf(err),
	})
}

// respondValidationError renders binding failures field by field.
func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email", field))
			case "min", "gte", "gt":
				details = append(details, fmt.Sprintf("%s is too small", field))
			case "oneof":
				details = append(details, fmt.Sprintf("%s must be one of [%s]", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"code":    apperr.CodeValidation,
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": "invalid body",
		"code":  apperr.CodeValidation,
	})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
