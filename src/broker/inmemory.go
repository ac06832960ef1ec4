package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer bounds each subscriber channel; a subscriber that stops
// draining loses newer messages instead of blocking the publisher.
const subscriberBuffer = 256

// InMemoryBroker is a process-local Broker. Messages published to a topic
// are fanned out to every subscriber registered at publish time.
type InMemoryBroker struct {
	mu          sync.Mutex
	subscribers map[string][]chan Message
	nextOffset  map[string]int64
	closed      bool
}

// NewInMemoryBroker creates an InMemoryBroker.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]chan Message),
		nextOffset:  make(map[string]int64),
	}
}

// Publish delivers the message to current subscribers of the topic.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    b.nextOffset[topic],
		Timestamp: time.Now().UnixMilli(),
	}
	b.nextOffset[topic]++

	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
	return nil
}

// Subscribe registers a new subscriber channel for the topic. The channel is
// closed when ctx is cancelled or the broker shuts down.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	ch := make(chan Message, subscriberBuffer)
	b.subscribers[topic] = append(b.subscribers[topic], ch)

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		b.removeLocked(topic, ch)
	}()

	return ch, nil
}

// removeLocked detaches and closes one subscriber channel. Callers hold b.mu.
func (b *InMemoryBroker) removeLocked(topic string, ch chan Message) {
	subs := b.subscribers[topic]
	for i, c := range subs {
		if c == ch {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes all subscriber channels.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, topic)
	}
	return nil
}
