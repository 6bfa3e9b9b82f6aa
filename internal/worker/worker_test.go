package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritik/fanout-timeline/internal/metrics"
	"github.com/ritik/fanout-timeline/internal/models"
)

func TestMetricName(t *testing.T) {
	w := &Worker{id: 3}
	assert.Equal(t, "worker.3.message.received", w.metricName("message.received"))
	assert.Equal(t, "worker.3.queue_size", w.metricName("queue_size"))
}

// fakeAcker is a hand-rolled amqp.Acknowledger so handle's Ack/Nack calls
// can be asserted on without a real AMQP channel.
type fakeAcker struct {
	acked    bool
	nacked   bool
	requeue  bool
	multiple bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked = true
	f.multiple = multiple
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.multiple = multiple
	f.requeue = requeue
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

// fakeTimelineStore fakes the narrow timelineStore interface, recording
// calls (and their relative order via the shared log) instead of hitting
// Postgres.
type fakeTimelineStore struct {
	insertErr error
	inserted  []int64 // post IDs
	log       *[]string
}

func (f *fakeTimelineStore) InsertEntry(ctx context.Context, userID, postID int64, ts interface{}) error {
	if f.log != nil {
		*f.log = append(*f.log, "insert")
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, postID)
	return nil
}

func (f *fakeTimelineStore) ReadRange(ctx context.Context, userID int64, limit, offset int) ([]*models.TimelineEntry, error) {
	return nil, nil
}

// fakeFeedCache fakes the narrow feedCache interface the worker depends on.
type fakeFeedCache struct {
	seen     bool
	seenErr  error
	markErr  error
	marked   []string
	appended []models.CachedEntry
	log      *[]string
}

func (f *fakeFeedCache) SeenMessage(ctx context.Context, messageID string) (bool, error) {
	return f.seen, f.seenErr
}

func (f *fakeFeedCache) MarkMessage(ctx context.Context, messageID string) error {
	if f.log != nil {
		*f.log = append(*f.log, "mark")
	}
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, messageID)
	return nil
}

func (f *fakeFeedCache) AppendToFeed(ctx context.Context, userID int64, entry models.CachedEntry) error {
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakeFeedCache) RecordActivity(ctx context.Context, userID int64) error { return nil }

func (f *fakeFeedCache) HotUsers(ctx context.Context, n int) ([]int64, error) { return nil, nil }

func (f *fakeFeedCache) Warm(ctx context.Context, userID int64, entries []models.CachedEntry) error {
	return nil
}

func validFanoutBody(t *testing.T, messageID string) []byte {
	t.Helper()
	fm := models.FanoutMessage{
		Version:        models.CurrentFanoutVersion,
		MessageID:      messageID,
		PostID:         42,
		AuthorID:       7,
		AuthorUsername: "alice",
		Body:           "hello",
		Ts:             time.Now(),
		UserID:         99,
	}
	b, err := json.Marshal(fm)
	require.NoError(t, err)
	return b
}

func TestHandle_DuplicateMessageAcksWithoutSideEffects(t *testing.T) {
	ts := &fakeTimelineStore{}
	fc := &fakeFeedCache{seen: true}
	w := &Worker{id: 1, timelineStore: ts, feedCache: fc, reg: metrics.NewRegistry()}

	acker := &fakeAcker{}
	msg := amqp.Delivery{Acknowledger: acker, Body: validFanoutBody(t, "dup-1")}

	w.handle(context.Background(), msg)

	assert.True(t, acker.acked)
	assert.False(t, acker.nacked)
	assert.Empty(t, ts.inserted)
	assert.Empty(t, fc.appended)
	assert.Empty(t, fc.marked)
}

func TestHandle_MalformedMessageRejectedWithoutRequeue(t *testing.T) {
	ts := &fakeTimelineStore{}
	fc := &fakeFeedCache{}
	w := &Worker{id: 1, timelineStore: ts, feedCache: fc, reg: metrics.NewRegistry()}

	acker := &fakeAcker{}
	msg := amqp.Delivery{Acknowledger: acker, Body: []byte("not json")}

	w.handle(context.Background(), msg)

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Empty(t, ts.inserted)
	assert.Empty(t, fc.marked)
}

func TestHandle_UnknownVersionRejectedWithoutRequeue(t *testing.T) {
	ts := &fakeTimelineStore{}
	fc := &fakeFeedCache{}
	w := &Worker{id: 1, timelineStore: ts, feedCache: fc, reg: metrics.NewRegistry()}

	fm := models.FanoutMessage{Version: 99, MessageID: "v-1"}
	body, err := json.Marshal(fm)
	require.NoError(t, err)

	acker := &fakeAcker{}
	msg := amqp.Delivery{Acknowledger: acker, Body: body}

	w.handle(context.Background(), msg)

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
	assert.Empty(t, ts.inserted)
}

func TestHandle_HappyPath_MarksMessageBeforeInserting(t *testing.T) {
	var order []string
	ts := &fakeTimelineStore{log: &order}
	fc := &fakeFeedCache{log: &order}
	w := &Worker{id: 1, timelineStore: ts, feedCache: fc, reg: metrics.NewRegistry()}

	acker := &fakeAcker{}
	msg := amqp.Delivery{Acknowledger: acker, Body: validFanoutBody(t, "happy-1")}

	w.handle(context.Background(), msg)

	assert.True(t, acker.acked)
	require.Len(t, ts.inserted, 1)
	assert.Equal(t, int64(42), ts.inserted[0])
	require.Len(t, fc.appended, 1)
	assert.Equal(t, []string{"mark", "insert"}, order)
}

func TestHandle_DedupCheckFailureRequeues(t *testing.T) {
	ts := &fakeTimelineStore{}
	fc := &fakeFeedCache{seenErr: assert.AnError}
	w := &Worker{id: 1, timelineStore: ts, feedCache: fc, reg: metrics.NewRegistry()}

	acker := &fakeAcker{}
	msg := amqp.Delivery{Acknowledger: acker, Body: validFanoutBody(t, "err-1")}

	w.handle(context.Background(), msg)

	assert.True(t, acker.nacked)
	assert.True(t, acker.requeue)
	assert.Empty(t, ts.inserted)
}

func TestHandle_InsertFailureRequeuesAfterMarkingSeen(t *testing.T) {
	var order []string
	ts := &fakeTimelineStore{insertErr: assert.AnError, log: &order}
	fc := &fakeFeedCache{log: &order}
	w := &Worker{id: 1, timelineStore: ts, feedCache: fc, reg: metrics.NewRegistry()}

	acker := &fakeAcker{}
	msg := amqp.Delivery{Acknowledger: acker, Body: validFanoutBody(t, "ins-err-1")}

	w.handle(context.Background(), msg)

	assert.True(t, acker.nacked)
	assert.True(t, acker.requeue)
	assert.Equal(t, []string{"mark", "insert"}, order)
}
