package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/folio_comments/internal/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger 为每个请求生成 request id，把日志条目挂到请求 ctx 上，并在结束时记录一行
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		entry := logger.Std().WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), entry))

		c.Next()

		status := c.Writer.Status()
		done := logger.For(c.Request.Context()).WithFields(logrus.Fields{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case status >= 500:
			done.Error("request failed")
		case status >= 400:
			done.Warn("request rejected")
		default:
			done.Info("request completed")
		}
	}
}

// Timeout 为请求 ctx 设置截止时间，存储操作会继承它
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
