package core

import (
	"fmt"
	"sync"
)

var (
	registry   []TableDescriptor
	registryMu sync.RWMutex
)

// Register appends a table descriptor to the registry.
// Registration order is load order.
// Panics if the table is already registered or declares no key.
func Register(desc TableDescriptor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if desc.Name == "" {
		panic("table descriptor without name")
	}
	if len(desc.Key) == 0 {
		panic(fmt.Sprintf("table %s has no uniqueness key", desc.Name))
	}
	for _, existing := range registry {
		if existing.Name == desc.Name {
			panic(fmt.Sprintf("table already registered: %s", desc.Name))
		}
	}

	key := make([]string, len(desc.Key))
	copy(key, desc.Key)
	registry = append(registry, TableDescriptor{Name: desc.Name, Key: key})
}

// Get returns a table descriptor by name.
// Returns false if not found.
func Get(name string) (TableDescriptor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, desc := range registry {
		if desc.Name == name {
			return desc, true
		}
	}
	return TableDescriptor{}, false
}

// All returns all registered table descriptors in registration order.
func All() []TableDescriptor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDescriptor, len(registry))
	copy(result, registry)
	return result
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = nil
}
