package realtime

import "sync"

// Registry maps tracking numbers to the connections watching them. It owns
// the connection-interest state exclusively: the hub reads it to fan out, the
// connection manager mutates it on join/leave/close.
//
// Both directions are indexed so DropConnection is proportional to the
// connection's own subscriptions, not the registry size. All methods are safe
// for concurrent use and reflect completed mutations synchronously.
type Registry struct {
	mu       sync.RWMutex
	watchers map[string]map[uint64]struct{} // tracking number to connection ids
	byConn   map[uint64]map[string]struct{} // connection id to tracking numbers
}

func NewRegistry() *Registry {
	return &Registry{
		watchers: make(map[string]map[uint64]struct{}),
		byConn:   make(map[uint64]map[string]struct{}),
	}
}

// Join subscribes a connection to a tracking number. Idempotent.
func (r *Registry) Join(connID uint64, trackingNumber string) {
	if trackingNumber == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watchers[trackingNumber] == nil {
		r.watchers[trackingNumber] = make(map[uint64]struct{})
	}
	r.watchers[trackingNumber][connID] = struct{}{}

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]struct{})
	}
	r.byConn[connID][trackingNumber] = struct{}{}
}

// Leave unsubscribes a connection from a tracking number. Idempotent.
func (r *Registry) Leave(connID uint64, trackingNumber string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(connID, trackingNumber)
}

// DropConnection removes every subscription held by the connection. Called
// exactly once per connection close, normal or abnormal; a dropped connection
// must not leak entries.
func (r *Registry) DropConnection(connID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for trackingNumber := range r.byConn[connID] {
		r.remove(connID, trackingNumber)
	}
}

// remove deletes one edge and prunes empty sets. Caller holds the lock.
func (r *Registry) remove(connID uint64, trackingNumber string) {
	if set, ok := r.watchers[trackingNumber]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.watchers, trackingNumber)
		}
	}
	if set, ok := r.byConn[connID]; ok {
		delete(set, trackingNumber)
		if len(set) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// WatchersOf returns the ids of connections watching the tracking number.
func (r *Registry) WatchersOf(trackingNumber string) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.watchers[trackingNumber]
	if len(set) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// WatchedBy returns the tracking numbers the connection is subscribed to.
func (r *Registry) WatchedBy(connID uint64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byConn[connID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for tn := range set {
		out = append(out, tn)
	}
	return out
}

// Size returns the total number of subscription edges, used to verify that
// closed connections leave nothing behind.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.watchers {
		n += len(set)
	}
	return n
}
