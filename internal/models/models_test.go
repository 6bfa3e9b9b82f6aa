package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFanoutMessage_ToCachedEntry(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := FanoutMessage{
		Version:        CurrentFanoutVersion,
		MessageID:      "batch-0",
		PostID:         42,
		AuthorID:       7,
		AuthorUsername: "alice",
		Body:           "hello",
		Ts:             ts,
		UserID:         99,
	}

	entry := msg.ToCachedEntry()

	assert.Equal(t, int64(42), entry.PostID)
	assert.Equal(t, int64(7), entry.AuthorID)
	assert.Equal(t, "alice", entry.AuthorUsername)
	assert.Equal(t, "hello", entry.Body)
	assert.True(t, ts.Equal(entry.Ts))
}

func TestBenchmarkResult_ToJSON_DurationsAreStrings(t *testing.T) {
	r := &BenchmarkResult{
		Label:           "fanout-on-write",
		TotalPosts:      100,
		TotalReads:      200,
		WriteLatencyP50: 5 * time.Millisecond,
		ReadLatencyP95:  12 * time.Millisecond,
		CacheHitRate:    0.87,
	}

	j := r.ToJSON()

	assert.Equal(t, "fanout-on-write", j.Label)
	assert.Equal(t, "5ms", j.WriteLatencyP50)
	assert.Equal(t, "12ms", j.ReadLatencyP95)
	assert.Equal(t, 0.87, j.CacheHitRate)
}
