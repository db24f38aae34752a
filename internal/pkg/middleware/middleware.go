package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/pkg/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderRequestID carries the correlation id of a request.
	HeaderRequestID = "X-Request-ID"
	// HeaderUserID carries the caller identity asserted by the marketplace gateway.
	HeaderUserID = "X-User-ID"

	ctxKeyRequestID = "request_id"
	ctxKeyUserID    = "user_id"
)

// RecoveryMiddleware turns panics into 500 responses and logs the stack.
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", GetRequestID(c)),
					zap.ByteString("stack", debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorBody{Message: "internal server error"})
			}
		}()
		c.Next()
	}
}

// LoggerMiddleware writes one structured line per request.
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", GetRequestID(c)),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// RequestIDMiddleware propagates or generates X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// CORSMiddleware allows the marketplace web client to call the API.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", HeaderRequestID, HeaderUserID},
		ExposeHeaders:   []string{HeaderRequestID},
		MaxAge:          12 * time.Hour,
	})
}

// SecurityHeadersMiddleware sets conservative response headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// IdentityMiddleware requires the gateway-asserted X-User-ID header.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			response.Unauthorized(c, "missing caller identity")
			return
		}
		c.Set(ctxKeyUserID, userID)
		c.Next()
	}
}

// GetUserID returns the caller identity set by IdentityMiddleware.
func GetUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// GetRequestID returns the request id set by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}
