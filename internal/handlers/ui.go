package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// Home serves the storefront entry page from dir, falling back to the admin
// login when no public build is deployed.
func Home(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		if _, err := os.Stat(index); err != nil {
			c.Redirect(http.StatusFound, "/admin/login")
			return
		}
		c.File(index)
	}
}
