package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider from configuration.
type Factory func(cfg Config) (Provider, error)

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

// Register makes a backend available under name. A later registration
// under the same name replaces the earlier one.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New builds the provider registered under name.
func New(name string, cfg Config) (Provider, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, List())
	}
	return f(cfg)
}

// List returns the registered backend names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all registrations (for testing).
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	factories = make(map[string]Factory)
}
