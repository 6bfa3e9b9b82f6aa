// Package broker is the Partition Router: it owns the exchange/queue
// topology the Fanout Publisher writes to and the Timeline Worker reads
// from, and the pure routing-hash function both sides agree on.
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the consistent-hash exchange every fanout message
	// is published to. It requires the rabbitmq_consistent_hash_exchange
	// plugin on the broker.
	ExchangeName = "fanout.posts"

	// exchangeKind names the plugin-provided exchange type. It is not a
	// constant amqp091-go knows about, so it is passed as a bare string.
	exchangeKind = "x-consistent-hash"

	// hashHeader tells the plugin to hash this message header instead of
	// the routing key. The publisher sets it to a value derived from the
	// recipient's user ID on every publish.
	hashHeader = "routing_hash"

	// queueWeight is the binding weight every worker queue is bound with.
	// The plugin's binding key for this exchange type is an integer
	// weight, not a match value, so all queues must share the same one
	// for the hash ring to split evenly across them.
	queueWeight = "10"
)

// QueueName returns the name of the i-th worker queue.
func QueueName(i int) string {
	return fmt.Sprintf("feed_updates_%d", i)
}

// Bucket maps a user ID into one of bucketCount routing buckets, the
// value the publisher stamps onto the routing_hash header on every
// publish. The plugin hashes that header itself to pick a queue among
// the equally-weighted bindings Declare sets up; bucketCount only
// controls how finely that header value is spread before hashing. Both
// the publisher and tests (to check routing is deterministic) call this
// same function.
func Bucket(userID int64, bucketCount int) int64 {
	if bucketCount <= 0 {
		return 0
	}
	b := userID % int64(bucketCount)
	if b < 0 {
		b += int64(bucketCount)
	}
	return b
}

// Topology declares and owns the exchange/queue layout.
type Topology struct {
	channel     *amqp.Channel
	workerCount int
	bucketCount int
	queueTTL    int32
	maxLength   int32
}

// NewTopology wraps an already-open channel with the exchange/queue
// declarations this module needs. bucketCount is B, workerCount is W.
func NewTopology(channel *amqp.Channel, workerCount, bucketCount int) *Topology {
	return &Topology{
		channel:     channel,
		workerCount: workerCount,
		bucketCount: bucketCount,
		queueTTL:    2 * 60 * 60 * 1000, // 2h, same as the post cache TTL
		maxLength:   500000,
	}
}

// Declare creates the consistent-hash exchange, hashing on the
// routing_hash header rather than the routing key, and the W worker
// queues, then binds every queue once with an equal weight so the
// plugin's hash ring splits evenly across them. Idempotent: redeclaring
// with the same arguments is a no-op.
func (t *Topology) Declare() error {
	if err := t.channel.ExchangeDeclare(
		ExchangeName,
		exchangeKind,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"hash-header": hashHeader},
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for i := 0; i < t.workerCount; i++ {
		q := QueueName(i)
		_, err := t.channel.QueueDeclare(
			q,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			amqp.Table{
				"x-message-ttl":  t.queueTTL,
				"x-max-length":   t.maxLength,
				"x-max-priority": int32(10),
			},
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	for i := 0; i < t.workerCount; i++ {
		q := QueueName(i)
		if err := t.channel.QueueBind(q, queueWeight, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	return nil
}
