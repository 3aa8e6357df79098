package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/shiptrack/tracking-system/internal/api/metrics"
	"github.com/shiptrack/tracking-system/internal/core/ports"
)

// Hub is the broadcast dispatcher. It is the only component that reads the
// subscription registry to act on connections: given a set of tracking
// numbers it computes the union of watchers and delivers the message to each
// independently.
//
// Delivery is best-effort. Each client has a bounded send buffer drained by
// its own write pump; a full buffer means the client is too slow to keep up
// and it is closed rather than allowed to block others or back up memory.
type Hub struct {
	registry *Registry
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[uint64]*Client
}

func NewHub(registry *Registry, log zerolog.Logger) *Hub {
	return &Hub{
		registry: registry,
		log:      log,
		clients:  make(map[uint64]*Client),
	}
}

// Registry exposes the subscription registry the hub dispatches against.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// register adds a connection. Called by the client once its transport is open.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectedClients.Set(float64(total))
	h.log.Info().Uint64("conn_id", c.id).Int("total_clients", total).Msg("client connected")
}

// unregister removes a connection and purges its subscriptions. Safe to call
// from the client's single close path only.
func (h *Hub) unregister(c *Client) {
	h.registry.DropConnection(c.id)
	metrics.ActiveSubscriptions.Set(float64(h.registry.Size()))

	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ConnectedClients.Set(float64(total))
	h.log.Info().Uint64("conn_id", c.id).Int("total_clients", total).Msg("client disconnected")
}

// BroadcastLocation implements ports.Broadcaster.
func (h *Hub) BroadcastLocation(update ports.LocationUpdate) {
	h.Broadcast([]string{update.TrackingNumber}, NewLocationMessage(update))
}

// BroadcastStatus implements ports.Broadcaster.
func (h *Hub) BroadcastStatus(change ports.StatusChange) {
	metrics.StatusTransitionsTotal.WithLabelValues(string(change.NewStatus)).Inc()
	h.Broadcast([]string{change.TrackingNumber}, NewStatusMessage(change))
}

// Broadcast delivers the message to every connection watching any of the
// given tracking numbers, deduplicating connections that watch several. A
// failed or saturated client is closed; its failure never reaches the caller
// or the other watchers.
func (h *Hub) Broadcast(trackingNumbers []string, msg Message) {
	seen := make(map[uint64]struct{})
	var slow []*Client

	h.mu.RLock()
	for _, tn := range trackingNumbers {
		for _, id := range h.registry.WatchersOf(tn) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			client, ok := h.clients[id]
			if !ok {
				// Watcher raced with its own close; the in-flight message is
				// simply dropped.
				continue
			}
			select {
			case client.send <- msg:
				metrics.BroadcastsSentTotal.WithLabelValues(msg.Type).Inc()
			default:
				metrics.BroadcastsDroppedTotal.WithLabelValues(msg.Type).Inc()
				slow = append(slow, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn().Uint64("conn_id", client.id).Msg("send buffer full, dropping slow client")
		client.Close()
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection, used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
