package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

const DefaultCacheTTL = 60 * time.Second

var ErrNoData = errors.New("no alert data available")

// Fetcher is the upstream the cache refreshes from.
type Fetcher interface {
	FetchActive(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Cache serves the encoded alert collection, refreshing from upstream at most
// once per TTL. Concurrent misses share one upstream request, and a failed
// refresh falls back to the last good copy.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	clock   clock.PassiveClock
	group   singleflight.Group

	mu        sync.RWMutex
	body      []byte
	fetchedAt time.Time
}

func NewCache(fetcher Fetcher, ttl time.Duration, clk clock.PassiveClock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		clock:   clk,
	}
}

// Alerts returns the encoded feature collection and the time it was fetched.
func (c *Cache) Alerts(ctx context.Context) ([]byte, time.Time, error) {
	if body, at, ok := c.fresh(); ok {
		return body, at, nil
	}

	v, err, _ := c.group.Do("alerts", func() (any, error) {
		// A caller that just finished refreshing may have beaten us here.
		if body, at, ok := c.fresh(); ok {
			return cached{body, at}, nil
		}
		return c.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		c.mu.RLock()
		body, at := c.body, c.fetchedAt
		c.mu.RUnlock()
		if body != nil {
			slog.Warn("serving stale alerts after refresh failure", "fetched_at", at, "error", err)
			return body, at, nil
		}
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrNoData, err)
	}

	res := v.(cached)
	return res.body, res.at, nil
}

type cached struct {
	body []byte
	at   time.Time
}

func (c *Cache) fresh() ([]byte, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.body == nil || c.clock.Since(c.fetchedAt) > c.ttl {
		return nil, time.Time{}, false
	}
	return c.body, c.fetchedAt, true
}

func (c *Cache) refresh(ctx context.Context) (cached, error) {
	fc, err := c.fetcher.FetchActive(ctx)
	if err != nil {
		return cached{}, err
	}
	body, err := json.Marshal(fc)
	if err != nil {
		return cached{}, fmt.Errorf("error encoding alerts: %w", err)
	}

	now := c.clock.Now()
	c.mu.Lock()
	c.body, c.fetchedAt = body, now
	c.mu.Unlock()

	return cached{body, now}, nil
}
