package ringbuffer

import (
	"testing"

	"github.com/ritik/fanout-timeline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int64) models.CachedEntry {
	return models.CachedEntry{PostID: id}
}

func ids(items []models.CachedEntry) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.PostID
	}
	return out
}

// Scenario D: ring buffer C=4, add A..F (1..6), check newest-first reads.
func TestRead_NewestFirstWithOverwrite(t *testing.T) {
	b := New(4)
	for _, id := range []int64{1, 2, 3, 4, 5, 6} {
		b.Add(entry(id))
	}

	assert.Equal(t, 4, b.Count)
	assert.Equal(t, []int64{6, 5, 4, 3}, ids(b.Read(10, 0)))
	assert.Equal(t, []int64{4, 3}, ids(b.Read(2, 2)))
}

func TestAdd_InvariantsHoldAcrossManyWrites(t *testing.T) {
	b := New(5)
	for i := int64(0); i < 100; i++ {
		b.Add(entry(i))
		assert.GreaterOrEqual(t, b.Count, 0)
		assert.LessOrEqual(t, b.Count, b.Size)
		assert.GreaterOrEqual(t, b.Head, 0)
		assert.Less(t, b.Head, b.Size)
	}
}

func TestRead_EmptyBuffer(t *testing.T) {
	b := New(4)
	assert.Empty(t, b.Read(10, 0))
}

func TestRead_PartiallyFilled(t *testing.T) {
	b := New(10)
	b.Add(entry(1))
	b.Add(entry(2))
	assert.Equal(t, []int64{2, 1}, ids(b.Read(10, 0)))
}

func TestSerializeDeserialize_FixedPoint(t *testing.T) {
	b := New(4)
	for _, id := range []int64{1, 2, 3, 4, 5} {
		b.Add(entry(id))
	}

	data, err := b.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, b, restored)

	again, err := restored.Serialize()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
