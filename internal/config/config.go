package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	FrontendOrigin string
	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For is
	// believed. Empty means the socket address is the client address.
	TrustedProxies []string

	Nanomid   Nanomid
	RateLimit RateLimit
	Redis     Redis
	Browser   Browser
	Breaker   Breaker

	MaxConcurrentSessions int
	QueueTimeout          time.Duration
	PairTimeout           time.Duration

	SQLitePath     string
	LogDevelopment bool
}

type Nanomid struct {
	Email      string
	Password   string
	LoginURL   string
	DevicesURL string
}

type RateLimit struct {
	Points int
	Window time.Duration
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Browser struct {
	ExecutablePath   string
	Install          bool
	DashboardTimeout time.Duration
	SettleDelay      time.Duration
	ScreenshotPath   string
}

type Breaker struct {
	MaxFailures int
	Timeout     time.Duration
}

// Load reads the process environment, seeded from ./.env when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := Config{
		Port:           v.GetString("PORT"),
		FrontendOrigin: strings.TrimSpace(v.GetString("FRONTEND_ORIGIN")),
		TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		Nanomid: Nanomid{
			Email:      strings.TrimSpace(v.GetString("NANOMID_EMAIL")),
			Password:   v.GetString("NANOMID_PASSWORD"),
			LoginURL:   v.GetString("NANOMID_LOGIN_URL"),
			DevicesURL: v.GetString("NANOMID_DEVICES_URL"),
		},
		RateLimit: RateLimit{
			Points: v.GetInt("RATE_LIMIT_POINTS"),
			Window: v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Browser: Browser{
			ExecutablePath:   v.GetString("BROWSER_EXECUTABLE_PATH"),
			Install:          v.GetBool("PLAYWRIGHT_INSTALL"),
			DashboardTimeout: v.GetDuration("DASHBOARD_TIMEOUT"),
			SettleDelay:      v.GetDuration("SETTLE_DELAY"),
			ScreenshotPath:   v.GetString("SCREENSHOT_PATH"),
		},
		Breaker: Breaker{
			MaxFailures: v.GetInt("BREAKER_MAX_FAILURES"),
			Timeout:     v.GetDuration("BREAKER_TIMEOUT"),
		},
		MaxConcurrentSessions: v.GetInt("MAX_CONCURRENT_SESSIONS"),
		QueueTimeout:          v.GetDuration("QUEUE_TIMEOUT"),
		PairTimeout:           v.GetDuration("PAIR_TIMEOUT"),
		SQLitePath:            v.GetString("SQLITE_PATH"),
		LogDevelopment:        v.GetBool("LOG_DEVELOPMENT"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("FRONTEND_ORIGIN", "")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("NANOMID_EMAIL", "")
	v.SetDefault("NANOMID_PASSWORD", "")
	v.SetDefault("NANOMID_LOGIN_URL", "https://nanomid.com/en/login")
	v.SetDefault("NANOMID_DEVICES_URL", "https://nanomid.com/en/dashboard/player/devices")
	v.SetDefault("RATE_LIMIT_POINTS", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("BROWSER_EXECUTABLE_PATH", "")
	v.SetDefault("PLAYWRIGHT_INSTALL", false)
	v.SetDefault("DASHBOARD_TIMEOUT", "20s")
	v.SetDefault("SETTLE_DELAY", "1500ms")
	v.SetDefault("SCREENSHOT_PATH", "last-error.png")
	v.SetDefault("BREAKER_MAX_FAILURES", 5)
	v.SetDefault("BREAKER_TIMEOUT", "60s")
	v.SetDefault("MAX_CONCURRENT_SESSIONS", 2)
	v.SetDefault("QUEUE_TIMEOUT", "0s")
	v.SetDefault("PAIR_TIMEOUT", "60s")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("LOG_DEVELOPMENT", false)
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.RateLimit.Points <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d per %s", c.RateLimit.Points, c.RateLimit.Window)
	}
	if c.MaxConcurrentSessions <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_SESSIONS must be positive, got %d", c.MaxConcurrentSessions)
	}
	if c.PairTimeout <= 0 {
		return fmt.Errorf("PAIR_TIMEOUT must be positive, got %s", c.PairTimeout)
	}
	if c.Breaker.MaxFailures <= 0 {
		return fmt.Errorf("BREAKER_MAX_FAILURES must be positive, got %d", c.Breaker.MaxFailures)
	}
	return nil
}

// HasCredentials reports whether the target account is configured.
func (n Nanomid) HasCredentials() bool {
	return n.Email != "" && n.Password != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
