package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/service"
)

// Metrics observes every request on the metrics service, labelled by the
// route template rather than the raw URL so path parameters do not explode
// the label cardinality.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
