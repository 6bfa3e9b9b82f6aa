package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ritik/fanout-timeline/internal/config"
	"github.com/ritik/fanout-timeline/internal/models"
	"github.com/ritik/fanout-timeline/internal/ringbuffer"
)

const (
	feedBufferKeyPrefix = "feed:buffer:"
	postCacheKeyPrefix  = "tweet:"
	messageSeenPrefix   = "msg:processed:"
	hotUsersKey         = "users:hot"
)

// FeedCache is the hot-path cache: one ring buffer per user plus a
// denormalized post lookup and the idempotency set consumers check
// before an insert.
type FeedCache struct {
	client    UniversalClient
	ringSize  int
	postTTL   time.Duration
	feedTTL   time.Duration
	dedupTTL  time.Duration
}

func NewFeedCache(client UniversalClient, cfg *config.Config) *FeedCache {
	return &FeedCache{
		client:   client,
		ringSize: cfg.RingCapacity,
		postTTL:  cfg.TweetCacheTTL,
		feedTTL:  cfg.TimelineCacheTTL,
		dedupTTL: cfg.DedupTTL,
	}
}

func feedBufferKey(userID int64) string {
	return fmt.Sprintf("%s%d", feedBufferKeyPrefix, userID)
}

func postCacheKey(postID int64) string {
	return fmt.Sprintf("%s%d", postCacheKeyPrefix, postID)
}

func messageSeenKey(messageID string) string {
	return fmt.Sprintf("%s%s", messageSeenPrefix, messageID)
}

// loadBuffer reads and deserializes userID's ring buffer, returning a
// fresh empty one on a cache miss.
func (c *FeedCache) loadBuffer(ctx context.Context, userID int64) (*ringbuffer.Buffer, error) {
	data, err := c.client.Get(ctx, feedBufferKey(userID)).Bytes()
	if err == redis.Nil {
		return ringbuffer.New(c.ringSize), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feed buffer: %w", err)
	}

	buf, err := ringbuffer.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize feed buffer: %w", err)
	}
	return buf, nil
}

func (c *FeedCache) saveBuffer(ctx context.Context, userID int64, buf *ringbuffer.Buffer) error {
	data, err := buf.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize feed buffer: %w", err)
	}
	return c.client.Set(ctx, feedBufferKey(userID), data, c.feedTTL).Err()
}

// AppendToFeed pushes entry into userID's ring buffer, overwriting the
// oldest slot once the buffer is full. This is what the Timeline Worker
// calls once per fanned-out message.
func (c *FeedCache) AppendToFeed(ctx context.Context, userID int64, entry models.CachedEntry) error {
	buf, err := c.loadBuffer(ctx, userID)
	if err != nil {
		return err
	}
	buf.Add(entry)
	return c.saveBuffer(ctx, userID, buf)
}

// GetFeed reads up to limit entries from userID's cached feed, newest
// first, starting offset entries back from the newest.
func (c *FeedCache) GetFeed(ctx context.Context, userID int64, limit, offset int) ([]models.CachedEntry, error) {
	buf, err := c.loadBuffer(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buf.Read(limit, offset), nil
}

// FeedExists reports whether userID has a cached feed at all, so a
// reader can distinguish "empty feed" from "cold cache, needs warming
// from the store".
func (c *FeedCache) FeedExists(ctx context.Context, userID int64) (bool, error) {
	n, err := c.client.Exists(ctx, feedBufferKey(userID)).Result()
	return n > 0, err
}

// InvalidateUser drops userID's cached feed, so the next read misses
// and warms it from the authoritative store.
func (c *FeedCache) InvalidateUser(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, feedBufferKey(userID)).Err()
}

// Warm replaces userID's cached feed wholesale with entries, newest
// first, used on a read-path cache miss and by the worker's hot-user
// warmup to repopulate the cache from the store.
func (c *FeedCache) Warm(ctx context.Context, userID int64, entries []models.CachedEntry) error {
	buf := ringbuffer.New(c.ringSize)
	for i := len(entries) - 1; i >= 0; i-- {
		buf.Add(entries[i])
	}
	return c.saveBuffer(ctx, userID, buf)
}

// CachePost stores a post's denormalized data for the feed read path.
func (c *FeedCache) CachePost(ctx context.Context, post *models.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}
	return c.client.Set(ctx, postCacheKey(post.ID), data, c.postTTL).Err()
}

// GetPost retrieves a cached post, returning (nil, nil) on a miss.
func (c *FeedCache) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	data, err := c.client.Get(ctx, postCacheKey(postID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached post: %w", err)
	}

	post := &models.Post{}
	if err := json.Unmarshal(data, post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post: %w", err)
	}
	return post, nil
}

// SeenMessage reports whether messageID has already been processed,
// implementing the at-least-once-delivery dedup check.
func (c *FeedCache) SeenMessage(ctx context.Context, messageID string) (bool, error) {
	n, err := c.client.Exists(ctx, messageSeenKey(messageID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check message dedup: %w", err)
	}
	return n > 0, nil
}

// MarkMessage records messageID as processed for dedupTTL, so a
// redelivered copy of the same message is recognized and skipped.
func (c *FeedCache) MarkMessage(ctx context.Context, messageID string) error {
	return c.client.Set(ctx, messageSeenKey(messageID), "1", c.dedupTTL).Err()
}

// RecordActivity bumps userID's score in the hot-users set, consulted
// by the worker's periodic cache warmup sweep.
func (c *FeedCache) RecordActivity(ctx context.Context, userID int64) error {
	return c.client.ZIncrBy(ctx, hotUsersKey, 1, fmt.Sprintf("%d", userID)).Err()
}

// HotUsers returns the n most active user IDs tracked in the hot-users
// set.
func (c *FeedCache) HotUsers(ctx context.Context, n int) ([]int64, error) {
	results, err := c.client.ZRevRange(ctx, hotUsersKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get hot users: %w", err)
	}

	ids := make([]int64, 0, len(results))
	for _, r := range results {
		var id int64
		if _, err := fmt.Sscanf(r, "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
