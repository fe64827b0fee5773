package console

import "sync"

// Event is one server-sent event
type Event struct {
	Type string // "render", "alert" or "play"
	Data string // JSON payload
}

// Hub fans events out to the SSE streams of a session
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a listener on topic. The returned func unsubscribes
// and closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[chan Event]struct{})
	}
	h.clients[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients[topic], ch)
			if len(h.clients[topic]) == 0 {
				delete(h.clients, topic)
			}
			close(ch)
			h.mu.Unlock()
		})
	}

	return ch, unsub
}

// Publish never blocks: a subscriber with a full buffer misses the event.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

