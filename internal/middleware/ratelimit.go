package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/ratelimit"
)

// RateLimit allows limit requests per client address per window for scope.
// Limiter failures let the request through.
func RateLimit(l ratelimit.Limiter, scope string, limit int, window time.Duration, log logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		ok, err := l.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable", logger.String("scope", scope), logger.Error(err))
			c.Next()
			return
		}
		if !ok {
			if m != nil {
				m.RateLimited.WithLabelValues(scope).Inc()
			}
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
