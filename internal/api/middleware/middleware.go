// Package middleware provides gin middleware for the mock reporting service.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/reportviewer/consts"
	"github.com/verustcode/reportviewer/pkg/errors"
	"github.com/verustcode/reportviewer/pkg/idgen"
	"github.com/verustcode/reportviewer/pkg/logger"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

// Context keys set by the middleware
const (
	ContextKeyRequestID = "request_id"
	ContextKeySubject   = "subject"
)

// LoggerConfig holds the configuration for the Logger middleware
type LoggerConfig struct {
	// AccessLog logs successful requests (status < 400) at info level
	AccessLog bool
}

// Logger returns a middleware that logs HTTP requests. A nil cfg disables access logs.
func Logger(cfg *LoggerConfig) gin.HandlerFunc {
	accessLog := cfg != nil && cfg.AccessLog

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("request_id", c.GetString(ContextKeyRequestID)),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		case accessLog:
			logger.Info("Request", fields...)
		}
	}
}

// Recovery returns a middleware that turns panics into 500 replies
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    errors.ErrCodeInternal,
					"message": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// RequestID echoes the caller's X-Request-ID or assigns a new one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get(consts.HeaderRequestID)
		if requestID == "" {
			requestID = idgen.NewRequestID()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(consts.HeaderRequestID, requestID)
		c.Next()
	}
}

// Metrics records request counts and latencies by route pattern
func Metrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}

// ErrorHandler renders the last error attached with c.Error as JSON.
// AppErrors keep their message and code; anything else becomes a 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		if appErr, ok := errors.AsAppError(err); ok {
			c.JSON(appErr.HTTPStatus(), gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": err.Error(),
		})
	}
}

// TokenValidator validates bearer tokens and returns the token subject
type TokenValidator interface {
	ValidateToken(token string) (subject string, err error)
}

// BearerAuth rejects requests without a valid bearer token
func BearerAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if authHeader == "" || !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    errors.ErrCodeUnauthorized,
				"message": "Bearer token required",
			})
			return
		}

		subject, err := validator.ValidateToken(token)
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    errors.ErrCodeUnauthorized,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}
