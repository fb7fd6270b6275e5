// Package ratelimit counts requests per key in fixed windows. The window
// starts with the first request for a key and resets once it has elapsed.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type Limiter interface {
	// Allow consumes one point for key and reports whether it was within
	// the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// Window is a fixed-window Limiter over a ulule/limiter store.
type Window struct {
	limiter *limiter.Limiter
}

func newWindow(store limiter.Store, limit int, period time.Duration) *Window {
	return &Window{
		limiter: limiter.New(store, limiter.Rate{Period: period, Limit: int64(limit)}),
	}
}

// NewMemory keeps the windows in process. Expired windows are swept once per
// period.
func NewMemory(limit int, period time.Duration) *Window {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "pair",
		CleanUpInterval: period,
	})
	return newWindow(store, limit, period)
}

func (w *Window) Allow(ctx context.Context, key string) (bool, error) {
	lctx, err := w.limiter.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return !lctx.Reached, nil
}
