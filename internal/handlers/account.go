package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/service"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword replaces the caller's own password.
func ChangePassword(accounts *service.AccountService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := accounts.ChangeOwnPassword(ctx, middleware.CurrentSession(c), req.CurrentPassword, req.NewPassword); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}
