package eventbus

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// routedEvent mirrors the shape of the routing decisions the worker pool
// carries in production.
type routedEvent struct {
	Agent string
	Model string
}

func TestWorkerPool_PublishesThroughBus(t *testing.T) {
	bus := New[routedEvent]()
	defer bus.Shutdown()
	wp := NewWorkerPool(bus, 2, 64)
	defer wp.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, cleanup := bus.Subscribe(ctx)
	defer cleanup()

	const total = 50
	for i := 0; i < total; i++ {
		wp.PublishAsync(routedEvent{Agent: "coder", Model: fmt.Sprintf("model-%d", i)})
	}

	received := 0
	timeout := time.After(2 * time.Second)
	for received < total {
		select {
		case ev := <-ch:
			if ev.Agent != "coder" {
				t.Fatalf("unexpected event: %+v", ev)
			}
			received++
		case <-timeout:
			t.Fatalf("received %d of %d events before timeout", received, total)
		}
	}
}

func TestWorkerPool_PublishAsyncNeverBlocks(t *testing.T) {
	bus := New[routedEvent]()
	defer bus.Shutdown()
	// one worker, tiny buffer, nobody subscribed: excess events are dropped
	wp := NewWorkerPool(bus, 1, 1)
	defer wp.Shutdown()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			wp.PublishAsync(routedEvent{Agent: "burst"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishAsync must never block the caller")
	}
}

func TestWorkerPool_PublishAfterShutdownIsDropped(t *testing.T) {
	bus := New[routedEvent]()
	defer bus.Shutdown()
	wp := NewWorkerPool(bus, 1, 4)
	wp.Shutdown()

	// must neither panic nor block
	wp.PublishAsync(routedEvent{Agent: "late", Model: "model-1"})
}
