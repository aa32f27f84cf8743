package api

import (
    "sync"
)

// Event is one lifecycle notification for an optimization run.
type Event struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data,omitempty"`
}

// Broker fans optimization events out to in-process subscribers keyed by
// optimization ID.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan Event]struct{} // optimization id -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(optID string) chan Event {
    ch := make(chan Event, 8)
    b.mu.Lock()
    if b.subs[optID] == nil {
        b.subs[optID] = map[chan Event]struct{}{}
    }
    b.subs[optID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(optID string, ch chan Event) {
    b.mu.Lock()
    if m := b.subs[optID]; m != nil {
        delete(m, ch)
        if len(m) == 0 {
            delete(b.subs, optID)
        }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *Broker) Publish(optID string, evt Event) {
    b.mu.Lock()
    m := b.subs[optID]
    for ch := range m {
        select {
        case ch <- evt:
        default:
        }
    }
    b.mu.Unlock()
}
