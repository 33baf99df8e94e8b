package middlewares

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-Id"

// RequestID tags every request with an id, reusing the one sent by the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Logger logs every request through the "http" zap logger.
func Logger() gin.HandlerFunc {
	return ginzap.GinzapWithConfig(zap.L().Named("http"), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health"},
		Context: func(c *gin.Context) []zap.Field {
			return []zap.Field{zap.String("request_id", c.GetString("request_id"))}
		},
	})
}

// Recovery turns handler panics into 500 responses and logs the stack.
func Recovery() gin.HandlerFunc {
	return ginzap.RecoveryWithZap(zap.L().Named("http"), true)
}
