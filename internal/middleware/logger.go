package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request correlation ID
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key holding the request ID
const requestIDKey = "requestID"

// Logger middleware tags each request with an ID and logs it once it completes
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		log.Printf("[%s] %s %s %s %d %v %s",
			id,
			c.Request.Method,
			path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
			c.Errors.String(),
		)
	}
}

// RequestID returns the ID assigned by Logger, or "" outside a logged request
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
