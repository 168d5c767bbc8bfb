package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/logger"
)

const (
	sessionKey = "session"
	// SessionCookie carries the access token for browser pages.
	SessionCookie = "session"
)

// SessionMaterializer rebuilds a session from the stored user.
type SessionMaterializer interface {
	Materialize(ctx context.Context, userID primitive.ObjectID) (*auth.Session, error)
}

// SessionAuth attaches a session when the request carries a valid token. It
// never aborts; RequireRole and RequirePageRole decide what a missing
// session means for a route.
func SessionAuth(tokens *auth.TokenManager, sessions SessionMaterializer, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.Next()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			log.Debug("token rejected", logger.String("path", c.FullPath()), logger.Error(err))
			c.Next()
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			log.Debug("token subject invalid", logger.String("sub", claims.Subject))
			c.Next()
			return
		}

		session, err := sessions.Materialize(c.Request.Context(), userID)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeInternal {
				log.Error("session lookup failed", logger.String("user_id", userID.Hex()), logger.Error(err))
				abortError(c, err)
				return
			}
			c.Next()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// CurrentSession returns the session attached by SessionAuth, or nil.
func CurrentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*auth.Session)
	return s
}

func extractToken(c *gin.Context) string {
	if raw := strings.TrimSpace(c.GetHeader("Authorization")); raw != "" {
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func abortError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{
		"error": apperr.PublicMessage(err),
		"code":  apperr.CodeOf(err),
	})
}
