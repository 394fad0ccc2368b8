package channel

import (
	"fmt"
	"sync"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
)

// Registry holds the push channels in priority order. The dispatcher walks
// them front to back; registration order is dispatch order.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]ports.SyncChannelPort
	order    []string
}

// NewRegistry creates a new empty channel registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]ports.SyncChannelPort),
		order:    make([]string, 0),
	}
}

// Register adds a channel to the registry. Registering an existing name
// replaces the channel but keeps its position.
func (r *Registry) Register(ch ports.SyncChannelPort) error {
	if ch == nil {
		return fmt.Errorf("channel cannot be nil")
	}
	name := ch.Name()
	if name == "" {
		return fmt.Errorf("channel name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[name]; !exists {
		r.order = append(r.order, name)
	}
	r.channels[name] = ch
	return nil
}

// Get retrieves a channel by name. Returns nil if not found.
func (r *Registry) Get(name string) ports.SyncChannelPort {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[name]
}

// List returns the registered channel names in priority order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Channels returns the registered channels in priority order.
func (r *Registry) Channels() []ports.SyncChannelPort {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ports.SyncChannelPort, 0, len(r.order))
	for _, name := range r.order {
		if ch, ok := r.channels[name]; ok {
			result = append(result, ch)
		}
	}
	return result
}
