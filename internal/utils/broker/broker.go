// Package broker fans model-change events out to websocket subscribers.
package broker

import (
	"sync"
)

// Event describes one mutation of the model.
type Event struct {
	Action string `json:"action"` // "added" or "removed"
	Entity string `json:"entity"` // "node", "link" or "reference"
	ID     string `json:"id"`
}

type Broker struct {
	subscribers []chan Event
	mu          sync.RWMutex
}

func NewBroker() *Broker {
	return &Broker{}
}

func (b *Broker) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 16)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

func (b *Broker) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, c := range b.subscribers {
		if c == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(c)
			break
		}
	}
}

// Publish delivers the event to every subscriber. Slow subscribers whose
// buffer is full miss the event rather than blocking the model service.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
