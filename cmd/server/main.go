package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fardannozami/nanomid-pair-gateway/internal/app/http"
	"github.com/fardannozami/nanomid-pair-gateway/internal/app/usecase"
	"github.com/fardannozami/nanomid-pair-gateway/internal/config"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/audit"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/automation"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/browser"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/db"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/metrics"
	"github.com/fardannozami/nanomid-pair-gateway/internal/infra/ratelimit"
	"github.com/fardannozami/nanomid-pair-gateway/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(logger.Config{Development: cfg.LogDevelopment})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	if !cfg.Nanomid.HasCredentials() {
		zl.Warn("NANOMID_EMAIL or NANOMID_PASSWORD not set, pairing requests will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	launcher := browser.NewPlaywrightLauncher(browser.PlaywrightConfig{
		ExecutablePath: cfg.Browser.ExecutablePath,
		Install:        cfg.Browser.Install,
	}, zl.Named("browser"))
	defer func() {
		if err := launcher.Close(); err != nil {
			zl.Warn("stop playwright", zap.Error(err))
		}
	}()

	pairer := automation.NewPairer(launcher,
		automation.Credentials{Email: cfg.Nanomid.Email, Password: cfg.Nanomid.Password},
		automation.Options{
			LoginURL:         cfg.Nanomid.LoginURL,
			DevicesURL:       cfg.Nanomid.DevicesURL,
			DashboardTimeout: cfg.Browser.DashboardTimeout,
			SettleDelay:      cfg.Browser.SettleDelay,
			ScreenshotPath:   cfg.Browser.ScreenshotPath,
		},
		zl.Named("pairer"),
	)

	var (
		recorder   usecase.AttemptRecorder
		attemptsUC *usecase.ListAttemptsUsecase
	)
	if cfg.SQLitePath != "" {
		conn, err := db.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		defer closeDB(conn, zl)

		store, err := audit.NewStore(ctx, conn)
		if err != nil {
			return fmt.Errorf("audit store: %w", err)
		}
		recorder = store
		attemptsUC = usecase.NewListAttemptsUsecase(store)
		zl.Info("audit store enabled", zap.String("path", cfg.SQLitePath))
	}

	var (
		limiter ratelimit.Limiter
		err     error
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		limiter, err = ratelimit.NewRedis(rdb, "pair:rl", cfg.RateLimit.Points, cfg.RateLimit.Window)
		if err != nil {
			return err
		}
		zl.Info("rate limit backed by redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		limiter = ratelimit.NewMemory(cfg.RateLimit.Points, cfg.RateLimit.Window)
	}

	m := metrics.New(prometheus.NewRegistry())

	pairUC := usecase.NewPairDeviceUsecase(pairer, usecase.PairDeviceConfig{
		MaxConcurrent:      int64(cfg.MaxConcurrentSessions),
		QueueTimeout:       cfg.QueueTimeout,
		PairTimeout:        cfg.PairTimeout,
		BreakerMaxFailures: uint32(cfg.Breaker.MaxFailures),
		BreakerTimeout:     cfg.Breaker.Timeout,
	}, recorder, m, zl.Named("pair"))

	handler := http.NewHandler(pairUC, attemptsUC, zl.Named("http"))
	router, err := http.NewRouter(handler, http.RouterOptions{
		FrontendOrigin: cfg.FrontendOrigin,
		TrustedProxies: cfg.TrustedProxies,
		Limiter:        limiter,
		Metrics:        m,
		Log:            zl.Named("http"),
	})
	if err != nil {
		return err
	}

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("HTTP listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func closeDB(conn *sql.DB, zl *zap.Logger) {
	if err := conn.Close(); err != nil {
		zl.Warn("close audit db", zap.Error(err))
	}
}
