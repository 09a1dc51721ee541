// Package realtime fans database change notifications out to websocket
// subscribers grouped by topic.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type publication struct {
	topic   string
	payload []byte
}

// Hub tracks subscribed clients per topic and broadcasts payloads to them.
type Hub struct {
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	publish    chan publication
	done       chan struct{}

	logger *zap.Logger
}

// NewHub constructs an idle hub; call Run to start dispatching.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan publication, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run dispatches registrations and publications until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case p := <-h.publish:
			h.broadcast(p)
		}
	}
}

// Publish queues payload for every client subscribed to topic. An empty topic
// reaches all clients. Publish never blocks the caller on slow consumers.
func (h *Hub) Publish(topic string, payload []byte) {
	select {
	case h.publish <- publication{topic: topic, payload: payload}:
	default:
		h.logger.Warn("realtime publish dropped", zap.String("topic", topic))
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}

// Topics lists topics with at least one subscriber.
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	topics := make([]string, 0, len(h.clients))
	for topic := range h.clients {
		topics = append(topics, topic)
	}
	return topics
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.topic] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("realtime client registered", zap.String("topic", c.topic), zap.String("user_id", c.userID))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.topic]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.topic)
	}
	h.logger.Debug("realtime client unregistered", zap.String("topic", c.topic), zap.String("user_id", c.userID))
}

func (h *Hub) broadcast(p publication) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.clients {
		if p.topic != "" && topic != p.topic {
			continue
		}
		for c := range set {
			select {
			case c.send <- p.payload:
			default:
				// slow consumer; it will refetch on reconnect
				delete(set, c)
				close(c.send)
			}
		}
		if len(set) == 0 {
			delete(h.clients, topic)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, topic)
	}
}
