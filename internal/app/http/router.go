package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/metrics"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// FrontendOrigin is the single allowed CORS origin. Empty allows any.
	FrontendOrigin string
	// TrustedProxies may set X-Forwarded-For. Empty trusts none, so the
	// rate limit keys on the socket address.
	TrustedProxies []string
	Limiter        ratelimit.Limiter
	Metrics        *metrics.Metrics
	Log            *zap.Logger
}

func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(RequestID(), RequestLogger(log), Recovery(log))
	r.Use(securityHeaders(), corsPolicy(opts.FrontendOrigin))

	r.GET("/health", h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api")
	if opts.Limiter != nil {
		api.Use(RateLimit(opts.Limiter, opts.Metrics, log))
	}
	api.POST("/pair", h.Pair)
	if h.attemptsUC != nil {
		api.GET("/attempts", h.Attempts)
	}

	return r, nil
}

func corsPolicy(origin string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-Attempt-ID"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	})
}
