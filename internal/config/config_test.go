package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_SingleRedisAddrAndSizes(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.RedisAddrs, 1)
	assert.Equal(t, 1000, cfg.MaxTimelineEntries)
	assert.Equal(t, 1000, cfg.RingCapacity)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 24, cfg.BucketCount)
}

func TestUpdate_KnownKeysApply(t *testing.T) {
	cfg := Default()

	cfg.Update("worker_count", 8)
	assert.Equal(t, 8, cfg.WorkerCount)

	cfg.Update("bucket-count", 48)
	assert.Equal(t, 48, cfg.BucketCount)

	cfg.Update("ring_capacity", 2000)
	assert.Equal(t, 2000, cfg.RingCapacity)
}

func TestUpdate_WrongTypeIsIgnored(t *testing.T) {
	cfg := Default()
	original := cfg.WorkerCount

	cfg.Update("worker_count", "not-an-int")
	assert.Equal(t, original, cfg.WorkerCount)
}

func TestUpdate_UnknownKeyIsNoop(t *testing.T) {
	cfg := Default()
	snapshot := *cfg

	cfg.Update("does_not_exist", 123)
	assert.Equal(t, snapshot, *cfg)
}

func TestPostgresDSN_ContainsAllFields(t *testing.T) {
	cfg := Default()
	dsn := cfg.PostgresDSN()

	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=fanout")
	assert.Contains(t, dsn, "sslmode=disable")
}
