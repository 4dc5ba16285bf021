// Package ratelimit implements the per-site dispatch throttle the
// general worker consults before handing a site to a provider adapter,
// and the seen-URL negative cache it marks discovered URLs in, both
// backed by Redis the way the
// teacher's HTTP middleware backs its per-bucket rate limiter with a
// minute-window INCR key.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SiteLimiter enforces a fixed per-site dispatch ceiling per minute
// window, mirroring the teacher's raito:rl:<bucket>:<window> INCR/EXPIRE
// pattern with a site-scoped key instead of a per-API-key one.
type SiteLimiter struct {
	client         *redis.Client
	perMinuteLimit int
}

func NewSiteLimiter(client *redis.Client, perMinuteLimit int) *SiteLimiter {
	if perMinuteLimit <= 0 {
		perMinuteLimit = 30
	}
	return &SiteLimiter{client: client, perMinuteLimit: perMinuteLimit}
}

// Allow reports whether siteID may be dispatched again this minute. A
// nil client (Redis unconfigured) always allows, matching the
// teacher's graceful-degradation default for an optional dependency.
func (l *SiteLimiter) Allow(ctx context.Context, siteID string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	window := time.Now().UTC().Format("200601021504")
	key := fmt.Sprintf("jobscraper:rl:%s:%s", siteID, window)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		l.client.Expire(ctx, key, 90*time.Second)
	}
	return count <= int64(l.perMinuteLimit), nil
}

// SeenCache is an in-process-fronting negative cache for URLs already
// known to the store, so a hot listing re-fetch does not round-trip to
// Postgres for every candidate URL on every tick.
type SeenCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSeenCache(client *redis.Client, ttl time.Duration) *SeenCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SeenCache{client: client, ttl: ttl}
}

func seenKey(url string) string {
	return "jobscraper:seen:" + url
}

// Seen reports whether url was previously marked via Mark. A nil client
// always reports unseen, pushing the caller back to the store's
// authoritative ListSeenJobUrlsForSite/FindExistingJobUrls query.
func (c *SeenCache) Seen(ctx context.Context, url string) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	n, err := c.client.Exists(ctx, seenKey(url)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records url as seen for ttl, called once a URL has been
// enqueued or ingested so the next listing fetch can skip it cheaply.
func (c *SeenCache) Mark(ctx context.Context, url string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, seenKey(url), "1", c.ttl).Err()
}

// MarkAll marks a batch of URLs seen via a single pipelined round trip.
func (c *SeenCache) MarkAll(ctx context.Context, urls []string) error {
	if c == nil || c.client == nil || len(urls) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, u := range urls {
		pipe.Set(ctx, seenKey(u), "1", c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
