package ratelimit

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRedis shares windows between replicas. The increment and its expiry run
// as one Lua script, so a counted key always carries a TTL. Keys are
// "<prefix>:<key>".
func NewRedis(client *redis.Client, prefix string, limit int, period time.Duration) (*Window, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("redis limiter store: %w", err)
	}
	return newWindow(store, limit, period), nil
}
