package models

import "time"

// User represents a user in the follow-graph. The core never mutates it;
// it is created by an external collaborator.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Post is an immutable short message authored by a user.
type Post struct {
	ID        int64     `json:"id" db:"id"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// AuthorUsername is a joined/denormalized field, not stored on posts.
	AuthorUsername string `json:"author_username,omitempty" db:"author_username"`
}

// Follow is a directed edge: FollowerID follows FollowedID.
type Follow struct {
	FollowerID int64     `json:"follower_id" db:"follower_id"`
	FollowedID int64     `json:"followed_id" db:"followed_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TimelineEntry is an authoritative row in a user's timeline: which post
// landed in whose feed, and when.
type TimelineEntry struct {
	ID     int64     `json:"id" db:"id"`
	UserID int64     `json:"user_id" db:"user_id"`
	PostID int64     `json:"post_id" db:"post_id"`
	Ts     time.Time `json:"ts" db:"ts"`

	// Joined fields populated by ReadRange, not stored in timeline.
	Body           string `json:"body,omitempty" db:"body"`
	AuthorID       int64  `json:"author_id,omitempty" db:"author_id"`
	AuthorUsername string `json:"author_username,omitempty" db:"author_username"`
}

// CachedEntry is the denormalized payload a ring buffer slot holds, so a
// feed read needs no join.
type CachedEntry struct {
	PostID         int64     `json:"post_id"`
	Body           string    `json:"body"`
	AuthorID       int64     `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Ts             time.Time `json:"ts"`
}

// CurrentFanoutVersion is the only FanoutMessage schema version this
// module understands. Workers reject anything else as a poison message.
const CurrentFanoutVersion = 1

// FanoutMessage is the versioned wire schema the Fanout Publisher emits,
// one per follower (plus one for the author), and the Timeline Worker
// consumes.
type FanoutMessage struct {
	Version        int       `json:"version"`
	MessageID      string    `json:"message_id"`
	PostID         int64     `json:"post_id"`
	AuthorID       int64     `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Body           string    `json:"body"`
	Ts             time.Time `json:"ts"`
	UserID         int64     `json:"user_id"`
}

// ToCachedEntry projects the fanout message into the cache's denormalized
// shape.
func (m FanoutMessage) ToCachedEntry() CachedEntry {
	return CachedEntry{
		PostID:         m.PostID,
		Body:           m.Body,
		AuthorID:       m.AuthorID,
		AuthorUsername: m.AuthorUsername,
		Ts:             m.Ts,
	}
}

// BenchmarkResult summarizes one load-test run of the HTTP API, driven by
// the operator CLI's "benchmark" subcommand.
type BenchmarkResult struct {
	Label       string    `json:"label"`
	TotalPosts  int       `json:"total_posts"`
	TotalReads  int       `json:"total_reads"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    time.Duration

	WriteLatencyP50 time.Duration
	WriteLatencyP95 time.Duration
	WriteLatencyP99 time.Duration
	WriteLatencyAvg time.Duration

	ReadLatencyP50 time.Duration
	ReadLatencyP95 time.Duration
	ReadLatencyP99 time.Duration
	ReadLatencyAvg time.Duration

	WriteThroughput float64 `json:"write_throughput"`
	ReadThroughput  float64 `json:"read_throughput"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
}

// BenchmarkResultJSON is the on-disk shape: durations marshal as strings
// (time.Duration's default JSON encoding is an opaque int64 of
// nanoseconds, unreadable in a saved report) so `fanout results` can
// re-parse a previous run with String() already applied.
type BenchmarkResultJSON struct {
	Label      string    `json:"label"`
	TotalPosts int       `json:"total_posts"`
	TotalReads int       `json:"total_reads"`
	Timestamp  time.Time `json:"timestamp"`
	Duration   string    `json:"duration"`

	WriteLatencyP50 string `json:"write_latency_p50"`
	WriteLatencyP95 string `json:"write_latency_p95"`
	WriteLatencyP99 string `json:"write_latency_p99"`
	WriteLatencyAvg string `json:"write_latency_avg"`

	ReadLatencyP50 string `json:"read_latency_p50"`
	ReadLatencyP95 string `json:"read_latency_p95"`
	ReadLatencyP99 string `json:"read_latency_p99"`
	ReadLatencyAvg string `json:"read_latency_avg"`

	WriteThroughput float64 `json:"write_throughput"`
	ReadThroughput  float64 `json:"read_throughput"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
}

// ToJSON converts a result to its durable, human-readable form.
func (r *BenchmarkResult) ToJSON() BenchmarkResultJSON {
	return BenchmarkResultJSON{
		Label:           r.Label,
		TotalPosts:      r.TotalPosts,
		TotalReads:      r.TotalReads,
		Timestamp:       r.Timestamp,
		Duration:        r.Duration.String(),
		WriteLatencyP50: r.WriteLatencyP50.String(),
		WriteLatencyP95: r.WriteLatencyP95.String(),
		WriteLatencyP99: r.WriteLatencyP99.String(),
		WriteLatencyAvg: r.WriteLatencyAvg.String(),
		ReadLatencyP50:  r.ReadLatencyP50.String(),
		ReadLatencyP95:  r.ReadLatencyP95.String(),
		ReadLatencyP99:  r.ReadLatencyP99.String(),
		ReadLatencyAvg:  r.ReadLatencyAvg.String(),
		WriteThroughput: r.WriteThroughput,
		ReadThroughput:  r.ReadThroughput,
		CacheHitRate:    r.CacheHitRate,
	}
}
