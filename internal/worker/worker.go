// Package worker is the Timeline Worker: it consumes one
// feed_updates_<i> queue, deduplicates by message_id, and performs the
// idempotent timeline insert + cache append for each delivery.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ritik/fanout-timeline/internal/broker"
	"github.com/ritik/fanout-timeline/internal/metrics"
	"github.com/ritik/fanout-timeline/internal/models"
)

// timelineStore is the subset of *store.TimelineStore the worker needs.
// Narrowed to an interface so handle's dedup/idempotency logic can be
// exercised against a fake in tests without a live Postgres connection.
type timelineStore interface {
	InsertEntry(ctx context.Context, userID, postID int64, ts interface{}) error
	ReadRange(ctx context.Context, userID int64, limit, offset int) ([]*models.TimelineEntry, error)
}

// feedCache is the subset of *cache.FeedCache the worker needs, narrowed
// for the same reason as timelineStore.
type feedCache interface {
	SeenMessage(ctx context.Context, messageID string) (bool, error)
	MarkMessage(ctx context.Context, messageID string) error
	AppendToFeed(ctx context.Context, userID int64, entry models.CachedEntry) error
	RecordActivity(ctx context.Context, userID int64) error
	HotUsers(ctx context.Context, n int) ([]int64, error)
	Warm(ctx context.Context, userID int64, entries []models.CachedEntry) error
}

// Worker consumes one partition queue and applies its messages to the
// authoritative store and hot-path cache.
type Worker struct {
	id       int
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	prefetch int

	timelineStore timelineStore
	feedCache     feedCache
	reg           *metrics.Registry
}

// New dials url, opens a channel bound to feed_updates_<id>, and
// returns a Worker ready to Run.
func New(id int, url string, prefetch int, ts timelineStore, fc feedCache, reg *metrics.Registry) (*Worker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}

	return &Worker{
		id:            id,
		conn:          conn,
		channel:       ch,
		queue:         broker.QueueName(id),
		prefetch:      prefetch,
		timelineStore: ts,
		feedCache:     fc,
		reg:           reg,
	}, nil
}

func (w *Worker) Close() error {
	if w.channel != nil {
		w.channel.Close()
	}
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

func (w *Worker) metricName(suffix string) string {
	return fmt.Sprintf("worker.%d.%s", w.id, suffix)
}

// Run consumes w.queue until ctx is cancelled. Each delivery is handled
// in its own goroutine, bounded by a semaphore sized to the prefetch
// count — the pack's goroutine-per-delivery idiom for AMQP consumption,
// rather than a pooled-worker abstraction.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.channel.Consume(
		w.queue,
		fmt.Sprintf("worker-%d", w.id),
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	sem := make(chan struct{}, w.prefetch)
	depthTicker := time.NewTicker(10 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-depthTicker.C:
			w.sampleQueueDepth()
		case msg, ok := <-msgs:
			if !ok {
				log.Printf("worker[%d]: channel closed, stopping", w.id)
				return nil
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				w.handle(ctx, d)
			}(msg)
		}
	}
}

func (w *Worker) sampleQueueDepth() {
	q, err := w.channel.QueueInspect(w.queue)
	if err != nil {
		log.Printf("worker[%d]: queue inspect failed: %v", w.id, err)
		return
	}
	w.reg.SetGauge(w.metricName("queue_size"), float64(q.Messages))
}

// handle applies the fanout delivery contract: parse, version-check,
// dedup, mark seen, idempotent insert, cache append, activity record,
// ack/nack.
func (w *Worker) handle(ctx context.Context, msg amqp.Delivery) {
	start := time.Now()
	w.reg.Inc(w.metricName("message.received"))
	defer func() {
		w.reg.Observe(w.metricName("processing_time"), time.Since(start))
	}()

	var fm models.FanoutMessage
	if err := json.Unmarshal(msg.Body, &fm); err != nil {
		log.Printf("worker[%d]: malformed message, dropping: %v", w.id, err)
		w.reg.Inc(w.metricName("malformed"))
		msg.Nack(false, false)
		return
	}

	if fm.Version != models.CurrentFanoutVersion {
		log.Printf("worker[%d]: unrecognized fanout message version %d, dropping", w.id, fm.Version)
		w.reg.Inc(w.metricName("malformed"))
		msg.Nack(false, false)
		return
	}

	seen, err := w.feedCache.SeenMessage(ctx, fm.MessageID)
	if err != nil {
		log.Printf("worker[%d]: dedup check failed for %s: %v", w.id, fm.MessageID, err)
		msg.Nack(false, true)
		return
	}
	if seen {
		w.reg.Inc(w.metricName("message.duplicate"))
		msg.Ack(false)
		return
	}

	// Mark the message seen before touching the store or cache. The
	// ring buffer's Add is not idempotent, so if a crash lands after
	// AppendToFeed but before the ack, redelivery must see "seen" and stop
	// before it double-applies to the buffer. InsertEntry's own ON CONFLICT
	// already tolerates redelivery, but AppendToFeed does not.
	if err := w.feedCache.MarkMessage(ctx, fm.MessageID); err != nil {
		log.Printf("worker[%d]: mark-seen failed for %s: %v", w.id, fm.MessageID, err)
		msg.Nack(false, true)
		return
	}

	if err := w.timelineStore.InsertEntry(ctx, fm.UserID, fm.PostID, fm.Ts); err != nil {
		log.Printf("worker[%d]: store insert failed for %s: %v", w.id, fm.MessageID, err)
		w.reg.Inc(w.metricName("message.error"))
		msg.Nack(false, true)
		return
	}

	if err := w.feedCache.AppendToFeed(ctx, fm.UserID, fm.ToCachedEntry()); err != nil {
		log.Printf("worker[%d]: cache append failed for %s: %v", w.id, fm.MessageID, err)
	}

	if err := w.feedCache.RecordActivity(ctx, fm.UserID); err != nil {
		log.Printf("worker[%d]: activity tracking failed for %s: %v", w.id, fm.MessageID, err)
	}

	w.reg.Inc(w.metricName("message.success"))
	msg.Ack(false)
}

// WarmHotUsers rebuilds the cached feed of the most active users
// straight from the authoritative store, bypassing a normal read. It is
// owned by the worker (not the cache) so the cache package never has to
// call back into a worker-shaped dependency — see the cyclic-ownership
// redesign flag.
func (w *Worker) WarmHotUsers(ctx context.Context, n int) error {
	hotUsers, err := w.feedCache.HotUsers(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to list hot users: %w", err)
	}

	for _, userID := range hotUsers {
		entries, err := w.timelineStore.ReadRange(ctx, userID, n, 0)
		if err != nil {
			log.Printf("worker[%d]: warmup read failed for user %d: %v", w.id, userID, err)
			continue
		}

		cached := make([]models.CachedEntry, len(entries))
		for i, e := range entries {
			cached[i] = models.CachedEntry{
				PostID:         e.PostID,
				Body:           e.Body,
				AuthorID:       e.AuthorID,
				AuthorUsername: e.AuthorUsername,
				Ts:             e.Ts,
			}
		}

		if err := w.feedCache.Warm(ctx, userID, cached); err != nil {
			log.Printf("worker[%d]: warmup cache write failed for user %d: %v", w.id, userID, err)
		}
	}

	return nil
}

// RunWarmupLoop periodically calls WarmHotUsers until ctx is cancelled,
// mirroring the distilled system's 300s cache-warmup cadence.
func (w *Worker) RunWarmupLoop(ctx context.Context, interval time.Duration, topN int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.WarmHotUsers(ctx, topN); err != nil {
				log.Printf("worker[%d]: cache warmup error: %v", w.id, err)
			}
		}
	}
}
