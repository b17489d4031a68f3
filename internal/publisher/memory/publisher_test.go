package memory

import (
	"context"
	"errors"
	"testing"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "index-events", map[string]string{"k": "v"})
	if err != nil || id1 != "mem-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "index-events", "payload")
	if err != nil || id2 != "mem-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "index-events" || pub.Len() != 2 {
		t.Fatalf("messages not recorded correctly: %+v", msgs)
	}

	msgs[0].Topic = "modified"
	if pub.Messages()[0].Topic == "modified" {
		t.Fatal("expected Messages() to return a copy")
	}
}

func TestPublisherInjectedError(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.SetErr(errors.New("broker down"))

	if _, err := pub.Publish(context.Background(), "index-events", "payload"); err == nil {
		t.Fatal("expected injected error")
	}
	if pub.Len() != 0 {
		t.Fatalf("failed publish should not be recorded, got %d", pub.Len())
	}

	pub.SetErr(nil)
	if _, err := pub.Publish(context.Background(), "index-events", "payload"); err != nil {
		t.Fatalf("unexpected error after heal: %v", err)
	}
}
