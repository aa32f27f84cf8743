package api

import (
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("opt-1")
    defer b.Unsubscribe("opt-1", ch)

    b.Publish("opt-1", Event{Type: "optimization.in_progress"})
    select {
    case evt := <-ch:
        if evt.Type != "optimization.in_progress" {
            t.Fatalf("event = %+v", evt)
        }
    case <-time.After(time.Second):
        t.Fatal("event not delivered")
    }
}

func TestBrokerIsolatesRuns(t *testing.T) {
    b := NewBroker()
    a := b.Subscribe("opt-a")
    defer b.Unsubscribe("opt-a", a)

    b.Publish("opt-b", Event{Type: "optimization.completed"})
    select {
    case evt := <-a:
        t.Fatalf("event for another run delivered: %+v", evt)
    case <-time.After(50 * time.Millisecond):
    }
}

func TestBrokerDropsWhenSubscriberSlow(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("opt-1")
    defer b.Unsubscribe("opt-1", ch)

    // Channel buffer is 8; further publishes must not block.
    done := make(chan struct{})
    go func() {
        for i := 0; i < 100; i++ {
            b.Publish("opt-1", Event{Type: "optimization.in_progress"})
        }
        close(done)
    }()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("publish blocked on a slow subscriber")
    }
}
