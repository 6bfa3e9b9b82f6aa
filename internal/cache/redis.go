// Package cache is the hot-path, Redis-backed read layer: a per-user
// ring buffer of the newest timeline entries, plus a denormalized post
// store and the message-id dedup set the Timeline Worker consults for
// idempotent delivery.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ritik/fanout-timeline/internal/config"
)

// UniversalClient covers both redis.Client (single node) and redis.Ring
// (consistent-hash sharded) so the rest of this package never needs to
// know which one it is holding.
type UniversalClient = redis.UniversalClient

var client UniversalClient

// InitRedis opens the cache connection. When cfg.RedisAddrs names more
// than one host:port, it builds a redis.Ring instead of a single
// client: keys are partitioned across shards by consistent hashing
// (cespare/xxhash/v2 + dgryski/go-rendezvous under the hood), so adding
// or losing a shard only remaps a small fraction of keys.
func InitRedis(cfg *config.Config) (UniversalClient, error) {
	if len(cfg.RedisAddrs) == 0 {
		return nil, fmt.Errorf("no redis addresses configured")
	}

	if len(cfg.RedisAddrs) == 1 {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddrs[0],
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	} else {
		addrs := make(map[string]string, len(cfg.RedisAddrs))
		for i, addr := range cfg.RedisAddrs {
			addrs[fmt.Sprintf("shard%d", i)] = addr
		}
		client = redis.NewRing(&redis.RingOptions{
			Addrs:    addrs,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// GetClient returns the shared cache client.
func GetClient() UniversalClient {
	return client
}

// Close closes the cache connection.
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// FlushAll clears all cache data (for testing/reset).
func FlushAll(ctx context.Context) error {
	return client.FlushAll(ctx).Err()
}
