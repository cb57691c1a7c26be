package watch

import "sync"

// Topic keys for the collections the chat service watches.
func SessionsTopic(userID string) string    { return "sessions:" + userID }
func MessagesTopic(sessionID string) string { return "messages:" + sessionID }
func ProfileTopic(userID string) string     { return "profile:" + userID }

// Hub fans out change notifications by topic. Writers call Notify after a
// successful write; each subscriber holds a tick channel it uses to re-query.
// Ticks are coalesced: a subscriber that has not consumed a pending tick does
// not accumulate more.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[int64]chan struct{}
	nextID int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[int64]chan struct{})}
}

// Subscribe registers interest in a topic and returns the tick channel plus a
// cancel func. Cancel is idempotent and must be called when the subscription
// is no longer needed.
func (h *Hub) Subscribe(topic string) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[int64]chan struct{})
	}
	h.nextID++
	id := h.nextID
	ch := make(chan struct{}, 1)
	h.topics[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.topics[topic]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
		})
	}
	return ch, cancel
}

// Notify wakes every subscriber of the topic. Never blocks.
func (h *Hub) Notify(topic string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.topics[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscriptions for a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
