// Package cache memoizes accepted plans by request fingerprint so
// identical requests within the TTL window return instantly without a
// model call.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/planforge/coach/core"
)

// Config holds cache sizing and expiry.
type Config struct {
	MaxSize         int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns the default plan cache configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSize:         1024,
		TTL:             1 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

type entry struct {
	plan      *core.GeneratedPlan
	expiresAt time.Time
}

func (e *entry) expired() bool { return time.Now().After(e.expiresAt) }

// Stats are cumulative cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	HitRate     float64 `json:"hit_rate"`
	Expirations int64   `json:"expirations"`
}

// PlanCache is an LRU cache with per-entry TTL. Entries are written
// atomically per key and never partially updated. It deliberately does
// not deduplicate concurrent computes for the same key: results are
// idempotent, and the cache only reduces average latency and cost.
type PlanCache struct {
	mu       sync.Mutex
	lru      *lru.Cache[string, *entry]
	config   *Config
	stats    Stats
	stopChan chan struct{}
}

// New creates a plan cache and starts its expiry sweeper.
func New(config *Config) (*PlanCache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	inner, err := lru.New[string, *entry](config.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	c := &PlanCache{
		lru:      inner,
		config:   config,
		stats:    Stats{MaxSize: config.MaxSize},
		stopChan: make(chan struct{}),
	}
	go c.sweep()
	return c, nil
}

// GetOrRun returns the cached plan for key when present and unexpired;
// otherwise it invokes compute, stores a successful result, and returns
// it. Errors from compute are never cached.
func (c *PlanCache) GetOrRun(ctx context.Context, key string, compute func(context.Context) (*core.GeneratedPlan, error)) (*core.GeneratedPlan, bool, error) {
	if plan, ok := c.Get(key); ok {
		return plan, true, nil
	}
	plan, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	c.Set(key, plan)
	return plan, false, nil
}

// Get returns the cached plan for key, treating expired entries as
// absent.
func (c *PlanCache) Get(key string) (*core.GeneratedPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if e.expired() {
		c.lru.Remove(key)
		c.stats.Expirations++
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.plan, true
}

// Set stores a plan under key with the configured TTL.
func (c *PlanCache) Set(key string, plan *core.GeneratedPlan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, &entry{plan: plan, expiresAt: time.Now().Add(c.config.TTL)})
}

// Len returns the number of live entries.
func (c *PlanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *PlanCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.lru.Len()
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Close stops the expiry sweeper.
func (c *PlanCache) Close() { close(c.stopChan) }

func (c *PlanCache) sweep() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *PlanCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && e.expired() {
			c.lru.Remove(key)
			c.stats.Expirations++
		}
	}
}

var _ core.PlanCache = (*PlanCache)(nil)
