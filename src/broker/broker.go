// Package broker abstracts message publishing for build events and provides
// in-memory and Redpanda/Kafka implementations.
package broker

import "context"

// Broker abstracts message publishing and consumption. The in-memory
// implementation serves single-process runs and tests; the Redpanda
// implementation fans events out to other systems.
type Broker interface {
	// Publish sends a message to a topic. key selects the partition on
	// Kafka-compatible brokers and is ignored in memory.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel of messages from a topic. groupID is the
	// consumer group on Kafka-compatible brokers and is ignored in memory.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts the broker down; published-but-unsent messages are
	// flushed where the implementation supports it.
	Close() error
}

// Message is a consumed message.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}
