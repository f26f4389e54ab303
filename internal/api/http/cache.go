package http

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// reportCache keeps analyzed runs for a short time so dashboards polling the
// same run do not reparse every log. A nil cache never hits.
type reportCache struct {
	cache *ttlcache.Cache[string, *types.RunReport]
}

func newReportCache(ttl time.Duration) *reportCache {
	if ttl <= 0 {
		return nil
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *types.RunReport](ttl),
		ttlcache.WithDisableTouchOnHit[string, *types.RunReport](),
	)
	go cache.Start()
	return &reportCache{cache: cache}
}

func cacheKey(label, dir string) string {
	return label + "\x00" + dir
}

func (c *reportCache) get(key string) (*types.RunReport, bool) {
	if c == nil {
		return nil, false
	}
	item := c.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *reportCache) set(key string, r *types.RunReport) {
	if c == nil {
		return
	}
	c.cache.Set(key, r, ttlcache.DefaultTTL)
}

func (c *reportCache) stop() {
	if c != nil {
		c.cache.Stop()
	}
}

// analyze returns a cached report or analyzes the run
func (h *Handlers) analyze(ctx context.Context, label, dir string) (*types.RunReport, error) {
	key := cacheKey(label, dir)
	if r, ok := h.cache.get(key); ok {
		return r, nil
	}

	r, err := h.aggregator.AnalyzeRun(ctx, label, dir)
	if err != nil {
		return nil, err
	}
	h.cache.set(key, r)
	return r, nil
}
