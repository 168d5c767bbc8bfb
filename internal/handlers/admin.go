package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

// AdminLoginPage renders the login form. Signed-in admins go straight to the
// dashboard.
func AdminLoginPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s := middleware.CurrentSession(c); s != nil && auth.IsAdminLevel(s.Role) {
			c.Redirect(http.StatusFound, "/admin")
			return
		}
		c.HTML(http.StatusOK, "login.html", gin.H{})
	}
}

// AdminPage renders one of the back-office screens. Route guards decide who
// may see it.
func AdminPage(template string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := middleware.CurrentSession(c)
		c.HTML(http.StatusOK, template, gin.H{
			"name":     s.Name,
			"email":    s.Email,
			"role":     s.Role,
			"isMaster": s.Role == models.RoleMasterAdmin,
		})
	}
}
