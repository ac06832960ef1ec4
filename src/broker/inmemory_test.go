package broker

import (
	"context"
	"testing"
	"time"
)

func recvMessage(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "builds", "g1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := b.Publish(ctx, "builds", "teams/a", []byte("one")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := b.Publish(ctx, "builds", "teams/a", []byte("two")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	first := recvMessage(t, ch)
	if string(first.Value) != "one" || first.Key != "teams/a" || first.Offset != 0 {
		t.Errorf("first message = %+v, want value=one key=teams/a offset=0", first)
	}
	second := recvMessage(t, ch)
	if string(second.Value) != "two" || second.Offset != 1 {
		t.Errorf("second message = %+v, want value=two offset=1", second)
	}
}

func TestInMemoryBroker_FanOut(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	ch1, _ := b.Subscribe(ctx, "builds", "g1")
	ch2, _ := b.Subscribe(ctx, "builds", "g2")

	if err := b.Publish(ctx, "builds", "k", []byte("x")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got := recvMessage(t, ch1); string(got.Value) != "x" {
		t.Errorf("subscriber 1 got %q", got.Value)
	}
	if got := recvMessage(t, ch2); string(got.Value) != "x" {
		t.Errorf("subscriber 2 got %q", got.Value)
	}
}

func TestInMemoryBroker_TopicIsolation(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	ch, _ := b.Subscribe(ctx, "builds", "g")
	if err := b.Publish(ctx, "console", "k", []byte("noise")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-ch:
		t.Errorf("received message %+v from a different topic", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryBroker_Close(t *testing.T) {
	b := NewInMemoryBroker()
	ctx := context.Background()

	ch, _ := b.Subscribe(ctx, "builds", "g")
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Close()")
	}
	if err := b.Publish(ctx, "builds", "k", []byte("x")); err == nil {
		t.Error("Publish() after Close() succeeded, want error")
	}
	if _, err := b.Subscribe(ctx, "builds", "g"); err == nil {
		t.Error("Subscribe() after Close() succeeded, want error")
	}
	// Closing twice is harmless.
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestInMemoryBroker_SubscribeCancellation(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, "builds", "g")
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel not closed after context cancellation")
		}
	}
}
