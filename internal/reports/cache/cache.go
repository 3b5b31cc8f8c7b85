// Package cache keeps short-lived derived stats in Redis.
//
// The cache is an accelerator, never an authority: every value it holds can
// be recomputed from the ledger, entries expire within seconds, and any
// failure degrades to direct aggregation. Writes and invalidations are fire
// and forget so the scan path never waits on Redis.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	platformredis "taptrail/internal/platform/redis"
)

// DefaultTTL bounds staleness of cached stats.
const DefaultTTL = 15 * time.Second

// opTimeout caps every Redis round trip so a slow cache cannot slow a scan.
const opTimeout = 200 * time.Millisecond

// Stats is a nil-safe Redis-backed stats cache. A nil *Stats (or one built
// over a nil client) is valid and behaves as a permanent miss.
type Stats struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New constructs a Stats cache. client may be nil when Redis is not
// configured.
func New(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Stats {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Stats{client: client, ttl: ttl, logger: logger}
}

func (c *Stats) disabled() bool {
	return c == nil || c.client == nil
}

func key(day string) string { return "taptrail:stats:day:" + day }

// Get loads the cached value for the local day into dst. ok is false on
// miss, disabled cache, or any Redis failure.
func (c *Stats) Get(ctx context.Context, day string, dst any) (ok bool) {
	if c.disabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key(day)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WarnContext(ctx, "stats cache entry corrupt, ignoring", "day", day, "error", err)
		return false
	}
	return true
}

// Set stores the value for the local day, best effort.
func (c *Stats) Set(ctx context.Context, day string, v any) {
	if c.disabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key(day), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "stats cache set failed", "day", day, "error", err)
	}
}

// InvalidateDay drops the cached stats for the local day, best effort. The
// sequencer calls this after every append.
func (c *Stats) InvalidateDay(ctx context.Context, day string) {
	if c.disabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, key(day)).Err(); err != nil {
		c.logger.WarnContext(ctx, "stats cache invalidation failed", "day", day, "error", err)
	}
}
