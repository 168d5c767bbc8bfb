package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/models"
)

// RequireRole answers 401 or 403 JSON when the session is missing or too weak.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireRole(CurrentSession(c), min); err != nil {
			abortError(c, err)
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

func RequireMasterAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleMasterAdmin)
}

// Page redirect targets.
const (
	AdminLoginPath = "/admin/login"
	PublicRootPath = "/"
)

// RequirePageRole guards HTML pages. Without a session it redirects to the
// admin login page; with a weaker role it redirects to the public site.
func RequirePageRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := CurrentSession(c)
		if s == nil {
			c.Redirect(http.StatusFound, AdminLoginPath)
			c.Abort()
			return
		}
		if !auth.AtLeast(s.Role, min) {
			c.Redirect(http.StatusFound, PublicRootPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
