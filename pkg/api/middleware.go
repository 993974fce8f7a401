package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/utils/backpressure"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// CORSConfig lists the allowed origins, methods and headers
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// LoggingMiddleware logs request information
func LoggingMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.middleware")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Infow("Request handled",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

// MetricsMiddleware captures API metrics labelled by route template
func MetricsMiddleware(recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		recorder.RecordAPIRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(config CORSConfig) gin.HandlerFunc {
	origins := strings.Join(orDefault(config.AllowedOrigins, "*"), ", ")
	methods := strings.Join(orDefault(config.AllowedMethods, "GET", "POST", "PUT", "DELETE", "OPTIONS"), ", ")
	headers := strings.Join(orDefault(config.AllowedHeaders, "Content-Type", "Authorization"), ", ")

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methods)
		c.Writer.Header().Set("Access-Control-Allow-Headers", headers)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ErrorMiddleware catches panics and returns an error response
func ErrorMiddleware() gin.HandlerFunc {
	log := logger.GetLogger("api.error")

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("API panic recovered: %v", err)

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: fmt.Sprintf("internal server error: %v", err),
					Type:  "internal",
				})
			}
		}()

		c.Next()
	}
}

// RateLimitMiddleware limits the number of requests per client
func RateLimitMiddleware(limiter *backpressure.KeyedLimiter) gin.HandlerFunc {
	log := logger.GetLogger("api.ratelimit")

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !limiter.Allow(clientIP) {
			log.Warnf("Rate limit exceeded for client: %s", clientIP)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Type:  "rate_limited",
			})
			return
		}

		c.Next()
	}
}

func orDefault(values []string, defaults ...string) []string {
	if len(values) == 0 {
		return defaults
	}
	return values
}
