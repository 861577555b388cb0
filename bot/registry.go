package bot

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Factory builds a strategy instance. The seed is the only source of
// randomness a strategy may use; two instances built with the same seed
// must behave identically.
type Factory func(seed int64) Strategy

var (
	registryLock sync.RWMutex
	registry     = make(map[string]Factory)
)

// Register makes a strategy available under a lookup key. Registering
// the same key twice panics; that is always a programming error.
func Register(name string, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	if _, exists := registry[name]; exists {
		panic("bot: duplicate strategy registration: " + name)
	}
	registry[name] = factory
}

// New builds a registered strategy.
func New(name string, seed int64) (Strategy, error) {
	registryLock.RLock()
	factory, exists := registry[name]
	registryLock.RUnlock()
	if !exists {
		return nil, errors.Errorf("unknown strategy [%s]", name)
	}
	return factory(seed), nil
}

// Registered reports whether a strategy name is known.
func Registered(name string) bool {
	registryLock.RLock()
	defer registryLock.RUnlock()
	_, exists := registry[name]
	return exists
}

// Names lists registered strategies in sorted order.
func Names() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
