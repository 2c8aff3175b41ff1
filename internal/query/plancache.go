package query

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adamskt/Coalesce/internal/logger"
	"github.com/adamskt/Coalesce/internal/meta"
)

const (
	planCacheTTL      = 2 * time.Hour
	planCacheRedisTTL = 2 * time.Hour
)

type planCacheEntry struct {
	plan     *Plan
	lastUsed time.Time
}

// PlanCache keeps compiled plans keyed by entity and tree name, in-process
// with an optional Redis layer shared across instances. Plans are immutable
// once built, so cached values are handed out without copying.
type PlanCache struct {
	mu         sync.Mutex
	items      map[string]*planCacheEntry
	totalBytes int64
	maxBytes   int64

	rdb *redis.Client
}

// NewPlanCache builds a cache; rdb may be nil, maxBytes <= 0 disables the
// memory cap.
func NewPlanCache(rdb *redis.Client, maxBytes int64) *PlanCache {
	return &PlanCache{
		items:    make(map[string]*planCacheEntry),
		maxBytes: maxBytes,
		rdb:      rdb,
	}
}

// PlanFor returns the compiled plan for (entity, treeName), building and
// caching it on miss. treeName must already be the resolved tree's name
// ("none", "default" or a declared name), never raw client input.
func (c *PlanCache) PlanFor(ctx context.Context, e *meta.EntityDescriptor, treeName string, tree meta.IncludeTree) (*Plan, error) {
	key := "includeplan:" + e.Name + ":" + treeName
	now := time.Now()

	if plan := c.get(key, now); plan != nil {
		return plan, nil
	}

	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
			var plan Plan
			if err := json.Unmarshal([]byte(cached), &plan); err == nil {
				c.set(key, &plan, now)
				return &plan, nil
			}
			logger.Warn("plan_cache_bad_redis_entry", map[string]any{"key": key})
		}
	}

	plan, err := BuildPlan(e, tree)
	if err != nil {
		return nil, err
	}
	c.set(key, plan, now)

	if c.rdb != nil {
		if data, err := json.Marshal(plan); err == nil {
			if err := c.rdb.Set(ctx, key, data, planCacheRedisTTL).Err(); err != nil {
				logger.Warn("plan_cache_redis_store_failed", map[string]any{
					"key":   key,
					"error": err.Error(),
				})
			}
		}
	}
	return plan, nil
}

func (c *PlanCache) get(key string, now time.Time) *Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return nil
	}
	if now.Sub(entry.lastUsed) > planCacheTTL {
		c.totalBytes -= estimatePlanBytes(entry.plan)
		delete(c.items, key)
		return nil
	}
	entry.lastUsed = now
	return entry.plan
}

func (c *PlanCache) set(key string, plan *Plan, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := estimatePlanBytes(plan)
	if c.maxBytes > 0 && c.totalBytes+size > c.maxBytes {
		logger.Warn("plan_cache_memory_limit_exceeded", map[string]any{
			"item_bytes":  size,
			"total_bytes": c.totalBytes,
			"max_bytes":   c.maxBytes,
		})
		return
	}
	if existing, ok := c.items[key]; ok {
		c.totalBytes -= estimatePlanBytes(existing.plan)
	}
	c.items[key] = &planCacheEntry{plan: plan, lastUsed: now}
	c.totalBytes += size
}

func estimatePlanBytes(p *Plan) int64 {
	var n int64
	for _, j := range p.Joins {
		n += int64(len(j.Table)+len(j.Alias)+len(j.On)+len(j.Path)+len(j.Entity)+len(j.PKKey)) + 48
	}
	for _, c := range p.Columns {
		n += int64(len(c.Expr)+len(c.Key)) + 32
	}
	return n + 64
}
