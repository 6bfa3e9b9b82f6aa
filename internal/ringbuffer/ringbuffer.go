// Package ringbuffer implements the fixed-capacity, overwrite-oldest FIFO
// that backs each user's hot timeline cache entry.
package ringbuffer

import (
	"encoding/json"

	"github.com/ritik/fanout-timeline/internal/models"
)

// Buffer is a fixed-capacity circular buffer of the newest entries for a
// single user. The zero value is not usable; construct with New.
type Buffer struct {
	Size  int                  `json:"size"`
	Head  int                  `json:"head"`
	Count int                  `json:"count"`
	Items []models.CachedEntry `json:"items"`
}

// New allocates a ring buffer with the given fixed capacity.
func New(size int) *Buffer {
	if size <= 0 {
		size = 1
	}
	return &Buffer{
		Size:  size,
		Items: make([]models.CachedEntry, size),
	}
}

// Add writes item at the current head and advances head, overwriting the
// oldest slot once the buffer is full.
func (b *Buffer) Add(item models.CachedEntry) {
	b.Items[b.Head] = item
	b.Head = (b.Head + 1) % b.Size
	if b.Count < b.Size {
		b.Count++
	}
}

// Read returns up to limit entries starting offset back from the newest,
// walking backwards in insertion order (newest-first). Positions never
// written (on a not-yet-full buffer) are never emitted because Count
// bounds the walk.
func (b *Buffer) Read(limit, offset int) []models.CachedEntry {
	if limit <= 0 || offset >= b.Count {
		return []models.CachedEntry{}
	}

	n := b.Count - offset
	if n > limit {
		n = limit
	}

	out := make([]models.CachedEntry, 0, n)
	start := (b.Head - 1 - offset + b.Size*2) % b.Size
	for i := 0; i < n; i++ {
		pos := (start - i + b.Size*2) % b.Size
		out = append(out, b.Items[pos])
	}
	return out
}

// Serialize produces a deterministic, bit-identical encoding of the
// buffer's full state for storage in the cache.
func (b *Buffer) Serialize() ([]byte, error) {
	return json.Marshal(b)
}

// Deserialize is the inverse of Serialize; it is a fixed point for any
// buffer produced by Serialize.
func Deserialize(data []byte) (*Buffer, error) {
	var b Buffer
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
