package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucket_DeterministicForFixedCount(t *testing.T) {
	for _, userID := range []int64{0, 1, 24, 25, 1000, 987654321} {
		first := Bucket(userID, 24)
		second := Bucket(userID, 24)
		assert.Equal(t, first, second, "routing must be stable for a fixed bucket count")
		assert.GreaterOrEqual(t, first, int64(0))
		assert.Less(t, first, int64(24))
	}
}

func TestBucket_MatchesModulo(t *testing.T) {
	assert.Equal(t, int64(5), Bucket(29, 24))
	assert.Equal(t, int64(0), Bucket(48, 24))
}

func TestBucket_NegativeUserIDNeverNegativeBucket(t *testing.T) {
	b := Bucket(-7, 24)
	assert.GreaterOrEqual(t, b, int64(0))
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "feed_updates_0", QueueName(0))
	assert.Equal(t, "feed_updates_3", QueueName(3))
}
