package hub

import (
	"fmt"
	"sync"
)

// BroadcastResult counts the outcome of one Broadcast call.
type BroadcastResult struct {
	Delivered int
	Failed    int
}

// Registry maps the ids of open connections to their outbound sinks. It is
// safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	sinks map[ConnectionID]Sink
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[ConnectionID]Sink)}
}

// Insert registers sink under id. Ids must be fresh; registering an id that
// is already present fails with ErrDuplicateID.
func (r *Registry) Insert(id ConnectionID, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[id]; exists {
		return fmt.Errorf("insert %d: %w", id, ErrDuplicateID)
	}
	r.sinks[id] = sink
	return nil
}

// Remove deletes id and returns the sink it mapped to, or nil when id was
// not registered.
func (r *Registry) Remove(id ConnectionID) Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	sink, ok := r.sinks[id]
	if !ok {
		return nil
	}
	delete(r.sinks, id)
	return sink
}

// Broadcast pushes payload to every sink except the one registered under
// exclude. A sink that rejects the payload is counted as failed and skipped;
// delivery to the others continues.
func (r *Registry) Broadcast(exclude ConnectionID, payload []byte) BroadcastResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res BroadcastResult
	for id, sink := range r.sinks {
		if id == exclude {
			continue
		}
		if err := sink.Push(payload); err != nil {
			res.Failed++
			continue
		}
		res.Delivered++
	}
	return res
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

// IDs returns the registered ids in no particular order.
func (r *Registry) IDs() []ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ConnectionID, 0, len(r.sinks))
	for id := range r.sinks {
		ids = append(ids, id)
	}
	return ids
}
