package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedBufferKey(t *testing.T) {
	assert.Equal(t, "feed:buffer:42", feedBufferKey(42))
}

func TestPostCacheKey(t *testing.T) {
	assert.Equal(t, "tweet:42", postCacheKey(42))
}

func TestMessageSeenKey(t *testing.T) {
	assert.Equal(t, "msg:processed:abc-123", messageSeenKey("abc-123"))
}
