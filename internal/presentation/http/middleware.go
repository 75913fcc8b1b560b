package http

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wabridge/internal/infrastructure/config"
	"wabridge/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "request_id"

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs request and response information
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID, _ := c.Get(RequestIDKey)

		c.Next()

		latency := time.Since(start)
		log.Printf(
			"[%s] %s %s %s | %d | %v | %s",
			requestID,
			c.Request.Method,
			path,
			query,
			c.Writer.Status(),
			latency,
			c.ClientIP(),
		)
	}
}

// ErrorHandlerMiddleware handles panics and converts them to error responses
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %v", err)
				c.JSON(http.StatusInternalServerError, newErrorResponse[any](
					"INTERNAL_ERROR",
					"An internal error occurred",
					nil,
				))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// CORSMiddlewareWithConfig handles CORS headers with configurable options.
func CORSMiddlewareWithConfig(corsConfig config.CORSConfig) gin.HandlerFunc {
	if len(corsConfig.AllowedOrigins) == 0 {
		corsConfig.AllowedOrigins = []string{"*"}
	}
	if len(corsConfig.AllowedMethods) == 0 {
		corsConfig.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(corsConfig.AllowedHeaders) == 0 {
		corsConfig.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	}
	if len(corsConfig.ExposeHeaders) == 0 {
		corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	}
	if corsConfig.MaxAge == 0 {
		corsConfig.MaxAge = 86400
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowedOrigin := getAllowedOrigin(origin, corsConfig.AllowedOrigins); allowedOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowedOrigin)
		}
		if len(corsConfig.AllowedMethods) > 0 {
			c.Header("Access-Control-Allow-Methods", strings.Join(corsConfig.AllowedMethods, ", "))
		}
		if len(corsConfig.AllowedHeaders) > 0 {
			c.Header("Access-Control-Allow-Headers", strings.Join(corsConfig.AllowedHeaders, ", "))
		}
		if len(corsConfig.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(corsConfig.ExposeHeaders, ", "))
		}
		if corsConfig.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if corsConfig.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", strconv.Itoa(corsConfig.MaxAge))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func getAllowedOrigin(origin string, allowedOrigins []string) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if allowed == origin {
			return origin
		}
		if strings.HasPrefix(allowed, "*.") {
			domain := allowed[1:]
			if strings.HasSuffix(origin, domain) {
				return origin
			}
		}
	}
	return ""
}

// IsOriginAllowed checks if an origin is in the allowed list (exported for websocket use).
func IsOriginAllowed(origin string, allowedOrigins []string) bool {
	return getAllowedOrigin(origin, allowedOrigins) != ""
}

// ContentTypeMiddleware ensures JSON content type for API requests.
func ContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/ready" {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := c.GetHeader("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
				c.JSON(http.StatusUnsupportedMediaType, newErrorResponse[any](
					"UNSUPPORTED_MEDIA_TYPE",
					"Content-Type must be application/json",
					nil,
				))
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// MetricsMiddleware records HTTP request metrics using Prometheus.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.IncrementInFlight()
		defer m.DecrementInFlight()

		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		path := normalizePath(c.Request.URL.Path)
		status := strconv.Itoa(c.Writer.Status())
		m.RecordHTTPRequest(c.Request.Method, path, status, duration)
	}
}

// normalizePath collapses dynamic path segments for metric cardinality.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if len(part) == 36 && strings.Count(part, "-") == 4 {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
