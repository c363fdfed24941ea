// Package cache keeps the last price served per listing in Redis so repeated
// searches only surface new listings and price drops.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"product-filter/src/logger"
	"product-filter/src/metrics"
	"product-filter/src/models"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 24 * time.Hour
	scanBatch  = 500
)

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// PriceCache suppresses listings whose price has not dropped since they were
// last served.
type PriceCache struct {
	client  redisClient
	ttl     time.Duration
	metrics *metrics.Registry
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPriceCache connects to the configured Redis instance.
func NewPriceCache(cfg models.MCacheConfig, m *metrics.Registry, log *logger.Logger) *PriceCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	return newPriceCache(rdb, ttl, m, log)
}

func newPriceCache(client redisClient, ttl time.Duration, m *metrics.Registry, log *logger.Logger) *PriceCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &PriceCache{client: client, ttl: ttl, metrics: m, Logger: log}
}

// -----------------------------------------------------------------------------

// Ping checks the connection to the Redis server.
func (c *PriceCache) Ping(ctx context.Context) string {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Sprintf("down: %v", err)
	}
	return "up"
}

// Close releases the connection pool.
func (c *PriceCache) Close() error {
	return c.client.Close()
}

// Key returns the cache key of one listing.
func Key(l models.MListing) string {
	return fmt.Sprintf("product:%s:%s:%s", l.Category, l.Query, l.ID)
}

// -----------------------------------------------------------------------------

// Decide compares a listing with its cached price. New listings and price
// drops are kept and annotated; equal or higher prices are suppressed.
func Decide(l models.MListing, cached int64, found bool) (models.MListing, bool) {
	if !found || cached <= 0 {
		l.IsNew = true
		return l, true
	}
	if l.Price >= cached {
		return l, false
	}
	l.PreviousPrice = cached
	l.DiscountPercent = float64(cached-l.Price) * 100 / float64(cached)
	return l, true
}

// -----------------------------------------------------------------------------

// FilterChanged keeps new and cheaper listings and records their price. A
// Redis read failure lets every listing through.
func (c *PriceCache) FilterChanged(ctx context.Context, listings []models.MListing) ([]models.MListing, error) {
	if len(listings) == 0 {
		return listings, nil
	}

	keys := make([]string, len(listings))
	for i, l := range listings {
		keys[i] = Key(l)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.Logger.Error("Price cache read failed, passing %d listings through: %v", len(listings), err)
		return listings, err
	}

	kept := make([]models.MListing, 0, len(listings))
	suppressed := map[string]int{}
	for i, l := range listings {
		cached, found := parseCached(values[i])
		out, keep := Decide(l, cached, found)
		if !keep {
			c.Logger.Debug("Suppressed %s: %d (cached %d)", l.ID, l.Price, cached)
			suppressed[l.Category]++
			continue
		}
		if err := c.client.Set(ctx, keys[i], strconv.FormatInt(l.Price, 10), c.ttl).Err(); err != nil {
			c.Logger.Warning("Failed to cache price of %s: %v", l.ID, err)
		}
		kept = append(kept, out)
	}

	for category, n := range suppressed {
		c.metrics.ObserveSuppressed(category, n)
	}
	c.Logger.Info("Price cache kept %d of %d listings", len(kept), len(listings))
	return kept, nil
}

func parseCached(v interface{}) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	price, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// -----------------------------------------------------------------------------

// ClearCategory deletes every cached price of a category.
func (c *PriceCache) ClearCategory(ctx context.Context, category string) (int, error) {
	pattern := fmt.Sprintf("product:%s:*", category)
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete %s keys: %w", category, err)
			}
			deleted += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	c.Logger.Info("Cleared %d cached prices of %s", deleted, category)
	return deleted, nil
}
