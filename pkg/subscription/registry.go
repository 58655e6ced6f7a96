package subscription

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is how long a subscription stays active after the last
// subscribe request.
const DefaultTTL = 24 * time.Hour

// Config holds registry configuration.
type Config struct {
	// TTL is added to the current time on every subscribe.
	TTL time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{
		TTL: DefaultTTL,
		Now: time.Now,
	}
}

// Subscription is a single registry entry.
type Subscription struct {
	// Address is the callback URL supplied by the hub.
	Address string

	// Expiration is when the subscription stops being active.
	Expiration time.Time
}

// Active reports whether the subscription is active at now.
func (s Subscription) Active(now time.Time) bool {
	return s.Expiration.After(now)
}

// Registry maps callback addresses to their expiration.
type Registry struct {
	mu sync.RWMutex

	config  Config
	entries map[string]time.Time
}

// NewRegistry creates a registry with default configuration.
func NewRegistry() *Registry {
	return NewRegistryWithConfig(DefaultConfig())
}

// NewRegistryWithConfig creates a registry with custom configuration.
func NewRegistryWithConfig(config Config) *Registry {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Registry{
		config:  config,
		entries: make(map[string]time.Time),
	}
}

// Subscribe inserts address or refreshes its expiration to now + TTL.
// It returns true when the address was not present before.
func (r *Registry) Subscribe(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.entries[address]
	r.entries[address] = r.config.Now().Add(r.config.TTL)
	return !exists
}

// ActiveSubscribers returns, in sorted order, the addresses whose expiration
// is strictly after now.
func (r *Registry) ActiveSubscribers(now time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []string
	for addr, exp := range r.entries {
		if exp.After(now) {
			active = append(active, addr)
		}
	}
	sort.Strings(active)
	return active
}

// Expiration returns the stored expiration for address.
func (r *Registry) Expiration(address string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exp, ok := r.entries[address]
	return exp, ok
}

// Len returns the number of entries, expired ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of all entries sorted by address.
func (r *Registry) Snapshot() []Subscription {
	r.mu.RLock()
	subs := make([]Subscription, 0, len(r.entries))
	for addr, exp := range r.entries {
		subs = append(subs, Subscription{Address: addr, Expiration: exp})
	}
	r.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].Address < subs[j].Address })
	return subs
}

// TTL returns the configured subscription lifetime.
func (r *Registry) TTL() time.Duration {
	return r.config.TTL
}
