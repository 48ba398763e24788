package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherPublishesToSubscriber(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "tenant-1")
	defer cleanup()

	dispatcher.NotifyChange("tenant-1", []string{"res-a", "res-b"})

	select {
	case received := <-stream:
		if received.EventType != EventReservationsChanged {
			t.Fatalf("expected event type %s, got %s", EventReservationsChanged, received.EventType)
		}
		if len(received.ReservationIDs) != 2 {
			t.Fatalf("expected 2 reservation ids, got %d", len(received.ReservationIDs))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message within deadline")
	}
}

func TestDispatcherIsolatedByTenant(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tenantStream, cleanup := dispatcher.Subscribe(ctx, "tenant-2")
	defer cleanup()
	otherStream, otherCleanup := dispatcher.Subscribe(ctx, "tenant-3")
	defer otherCleanup()

	dispatcher.NotifyChange("tenant-3", []string{"res-c"})

	select {
	case <-tenantStream:
		t.Fatal("did not expect realtime message for unrelated tenant")
	case <-time.After(200 * time.Millisecond):
	}

	select {
	case msg := <-otherStream:
		if msg.TenantID != "tenant-3" {
			t.Fatalf("expected tenant-3, received %s", msg.TenantID)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message for subscribed tenant")
	}
}

func TestDispatcherDropsMessagesForFullSubscriber(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "tenant-4")
	defer cleanup()

	for index := 0; index < defaultBufferSize+5; index++ {
		dispatcher.NotifyChange("tenant-4", []string{"res"})
	}
	if len(stream) != defaultBufferSize {
		t.Fatalf("expected buffered messages to cap at %d, got %d", defaultBufferSize, len(stream))
	}
}

func TestDispatcherUnsubscribesOnContextDone(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = dispatcher.Subscribe(ctx, "tenant-5")
	if dispatcher.SubscriberCount("tenant-5") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount("tenant-5") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected subscriber to be removed after cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDispatcherIgnoresEmptyTenant(t *testing.T) {
	dispatcher := NewDispatcher()
	stream, cleanup := dispatcher.Subscribe(context.Background(), "")
	defer cleanup()
	if _, ok := <-stream; ok {
		t.Fatal("expected closed stream for empty tenant")
	}
}

func TestDecodeMessage(t *testing.T) {
	payload, err := json.Marshal(ChangeMessage("tenant-6", []string{"res-1"}, time.Unix(1700000000, 0)))
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	message, err := decodeMessage(string(payload))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if message.TenantID != "tenant-6" || message.EventType != EventReservationsChanged {
		t.Fatalf("unexpected message: %#v", message)
	}
	if _, err := decodeMessage(`{"event":"reservations-changed"}`); err == nil {
		t.Fatal("expected missing tenant to be rejected")
	}
	if _, err := decodeMessage("not json"); err == nil {
		t.Fatal("expected malformed payload to be rejected")
	}
}

func TestRedisBridgeFallsBackToLocalDelivery(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	core, observed := observer.New(zap.WarnLevel)
	dispatcher := NewDispatcher()
	bridge, err := NewRedisBridge(client, "", dispatcher, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bridge.channel != DefaultChannel {
		t.Fatalf("expected default channel, got %q", bridge.channel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, cleanup := dispatcher.Subscribe(ctx, "tenant-7")
	defer cleanup()

	bridge.NotifyChange("tenant-7", []string{"res-9"})

	select {
	case msg := <-stream:
		if msg.ReservationIDs[0] != "res-9" {
			t.Fatalf("unexpected message: %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected local delivery when redis is unreachable")
	}
	if observed.FilterMessage("redis publish failed, delivering locally").Len() != 1 {
		t.Fatal("expected publish failure to be logged")
	}
}

func TestNewRedisBridgeRequiresClient(t *testing.T) {
	if _, err := NewRedisBridge(nil, "", nil, nil); err == nil {
		t.Fatal("expected missing client error")
	}
}
