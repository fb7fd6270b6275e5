package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fardannozami/nanomid-pair-gateway/internal/domain/pairing"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/metrics"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestIDKey struct{}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()
	}
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID := RequestIDFromContext(c.Request.Context())
		if requestID == "" {
			requestID = c.GetString("request_id")
		}

		log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery logs the panic and answers with the generic JSON error.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.String("request_id", RequestIDFromContext(c.Request.Context())),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
	})
}

// RateLimit spends one point per request, keyed by client address.
func RateLimit(l ratelimit.Limiter, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}

		ok, err := l.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Error("rate limiter", zap.String("ip", ip), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
			return
		}
		if !ok {
			if m != nil {
				m.RateLimited.Inc()
			}
			err := pairing.NewError(pairing.KindRateLimited, ip, nil)
			log.Warn("rate limit exceeded", zap.String("path", c.Request.URL.Path), zap.Error(err))
			status, msg := errorStatus(err)
			c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
			return
		}

		c.Next()
	}
}
