package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/service"
)

// CookieOptions controls the session cookie set for the admin UI.
type CookieOptions struct {
	Secure bool
	MaxAge int
}

// AdminLogin authenticates credentials and only lets admin-level accounts
// through. The access token is returned and also set as the session cookie
// so admin pages pass the page guard.
func AdminLogin(sessions *service.SessionService, tokens *service.TokenService, cookie CookieOptions, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := sessions.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if !auth.IsAdminLevel(u.Role) {
			log.Warn("admin login by non-admin", logger.String("user_id", u.ID.Hex()))
			respondError(c, log, apperr.Forbidden("insufficient permissions"))
			return
		}

		pair, err := tokens.Issue(ctx, u)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, pair.AccessToken, cookie.MaxAge, "/", "", cookie.Secure, true)
		log.Info("admin signed in", logger.String("user_id", u.ID.Hex()), logger.String("role", string(u.Role)))
		c.JSON(http.StatusOK, authResponse{TokenPair: pair, User: toUserResponse(u)})
	}
}

// AdminLogout clears the session cookie.
func AdminLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
		c.Redirect(http.StatusFound, middleware.AdminLoginPath)
	}
}
