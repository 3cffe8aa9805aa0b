package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request once the handler chain returns.
// Long-lived streams are logged when they close.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger := log.With().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user-agent", c.Request.UserAgent()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			logger.Error().Msg(c.Errors.String())
		case c.Writer.Status() >= 500:
			logger.Warn().Msg("Request failed")
		default:
			logger.Info().Msg("Request processed")
		}
	}
}
