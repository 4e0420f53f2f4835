package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcher_PublishReachesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventLoginSucceeded, func(_ context.Context, e Event) error {
		t.Fatal("wrong event type delivered")
		return nil
	})

	event := Event{ID: "e1", Type: EventLoginFailed, Timestamp: time.Now()}
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("expected one delivery of e1, got %v", got)
	}

	// A failing handler must not block delivery of later events.
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish after handler error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected second delivery, got %d", len(got))
	}
}
