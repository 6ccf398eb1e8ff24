package notification

import (
	"context"
	"testing"
	"time"

	"leadboard_backend/internal/events"
	"leadboard_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestProgressRelayCarriesEventsAcrossClients(t *testing.T) {
	mr := miniredis.RunT(t)
	publisher := NewProgressRelay(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.Discard())
	listener := NewProgressRelay(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.ImportJobProgressed, 16)
	done := make(chan error, 1)
	go func() {
		done <- listener.Listen(ctx, func(e events.ImportJobProgressed) { received <- e })
	}()

	sent := events.ImportJobProgressed{
		BaseEvent: events.NewBaseEvent(),
		JobID:     uuid.New(),
		ActorID:   uuid.New(),
		Status:    "processing",
		TotalRows: 10,
		Processed: 5,
		Created:   4,
		Failed:    1,
	}

	// The listener subscribes asynchronously; publish until it hears one.
	deadline := time.After(2 * time.Second)
	var got events.ImportJobProgressed
wait:
	for {
		if err := publisher.Handle(ctx, sent); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case got = <-received:
			break wait
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no progress event received")
		}
	}

	if got.JobID != sent.JobID || got.ActorID != sent.ActorID {
		t.Fatalf("unexpected event ids: %+v", got)
	}
	if got.Processed != 5 || got.Created != 4 || got.Failed != 1 || got.Status != "processing" {
		t.Fatalf("unexpected counters: %+v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listen returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener did not stop")
	}
}

func TestProgressRelayIgnoresOtherEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	relay := NewProgressRelay(redis.NewClient(&redis.Options{Addr: mr.Addr()}), logger.Discard())

	if err := relay.Handle(context.Background(), events.LeadCreated{LeadID: uuid.New()}); err != nil {
		t.Fatalf("expected other events to be ignored, got %v", err)
	}
}

func TestProgressRelayResubscribesWhenRedisComesBack(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	listener := NewProgressRelay(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}), logger.Discard())
	listener.backoff = 10 * time.Millisecond
	listener.maxBackoff = 50 * time.Millisecond
	publisher := NewProgressRelay(redis.NewClient(&redis.Options{Addr: addr}), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.ImportJobProgressed, 16)
	stopped := make(chan struct{})
	go func() {
		listener.Run(ctx, func(e events.ImportJobProgressed) { received <- e })
		close(stopped)
	}()

	// Let the first subscription attempts fail before Redis is reachable.
	time.Sleep(60 * time.Millisecond)
	if err := mr.Restart(); err != nil {
		t.Fatalf("restart redis: %v", err)
	}

	sent := events.ImportJobProgressed{BaseEvent: events.NewBaseEvent(), JobID: uuid.New(), ActorID: uuid.New(), Status: "completed"}
	deadline := time.After(3 * time.Second)
wait:
	for {
		_ = publisher.Handle(ctx, sent)
		select {
		case got := <-received:
			if got.JobID != sent.JobID {
				t.Fatalf("unexpected job id %s", got.JobID)
			}
			break wait
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatalf("relay did not recover after redis came back")
		}
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("relay did not stop on cancel")
	}
}
