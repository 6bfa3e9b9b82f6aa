// Package reactor is the Follow-Graph Reactor: it keeps a user's
// timeline consistent with their follow graph whenever that graph
// changes, synchronously and out of the hot fanout path.
package reactor

import (
	"context"
	"fmt"

	"github.com/ritik/fanout-timeline/internal/cache"
	"github.com/ritik/fanout-timeline/internal/store"
)

// Reactor reacts to follow-graph edges changing.
type Reactor struct {
	follows  *store.FollowStore
	timeline *store.TimelineStore
	feedCache *cache.FeedCache
}

func New(follows *store.FollowStore, timeline *store.TimelineStore, feedCache *cache.FeedCache) *Reactor {
	return &Reactor{follows: follows, timeline: timeline, feedCache: feedCache}
}

// OnFollow records followerID following followedID, then synchronously
// invalidates and rebuilds followerID's timeline so their next read
// reflects the new followee's posts, capped at the store's K entries.
func (r *Reactor) OnFollow(ctx context.Context, followerID, followedID int64) error {
	if err := r.follows.Create(ctx, followerID, followedID); err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}

	if err := r.feedCache.InvalidateUser(ctx, followerID); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	if err := r.timeline.Rebuild(ctx, followerID); err != nil {
		return fmt.Errorf("failed to rebuild timeline: %w", err)
	}

	return nil
}

// OnUnfollow removes the edge and rebuilds followerID's timeline so the
// unfollowed user's posts drop out immediately.
func (r *Reactor) OnUnfollow(ctx context.Context, followerID, followedID int64) error {
	if err := r.follows.Delete(ctx, followerID, followedID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	if err := r.feedCache.InvalidateUser(ctx, followerID); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	if err := r.timeline.Rebuild(ctx, followerID); err != nil {
		return fmt.Errorf("failed to rebuild timeline: %w", err)
	}

	return nil
}
