package api

import (
    "context"
    "encoding/json"
    "time"

    redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
    Subscribe(optID string) chan Event
    Unsubscribe(optID string, ch chan Event)
    Publish(optID string, evt Event)
}

// RedisBroker implements EventBroker over Redis Pub/Sub so events reach
// subscribers on other instances.
type RedisBroker struct {
    rdb *redis.Client
}

func NewRedisBroker(url string) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil {
        return nil, err
    }
    return &RedisBroker{rdb: redis.NewClient(opt)}, nil
}

func (b *RedisBroker) Subscribe(optID string) chan Event {
    ch := make(chan Event, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(optID))
    // initial consume to ensure subscription
    _, _ = ps.Receive(ctx)
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt Event
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
                select {
                case ch <- evt:
                default:
                }
            }
        }
    }()
    return ch
}

func (b *RedisBroker) Unsubscribe(optID string, ch chan Event) {
    // The subscriber goroutine exits when the PubSub channel closes; closing
    // our channel here would race the forwarding send, so it is left to GC.
    _ = ch
}

func (b *RedisBroker) Publish(optID string, evt Event) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    _ = b.rdb.Publish(ctx, b.chanName(optID), data).Err()
}

func (b *RedisBroker) chanName(optID string) string { return "optimization:" + optID }
