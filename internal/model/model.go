package model

import (
	"fmt"
	"sort"
	"sync"
)

// Descriptor declares a model type. It replaces reflection-style type
// inspection: the store never looks at a record's Go type, only at the
// descriptor it was constructed with.
type Descriptor struct {
	// Name is the model type identifier, e.g. "User". Records of a
	// descriptor with an empty Name cannot be indexed by the store.
	Name string

	// Group is an optional logical group used for path composition.
	// The store maps group names to path segments (multi-tenant trees).
	Group string

	// Schema maps attribute names to their handlers. Keys not present
	// here bypass the attribute layer entirely.
	Schema map[string]Attribute

	// Lifecycle hooks. All optional; invoked by the record's
	// WillSave/DidSave/WillUnload in addition to built-in behavior.
	OnWillSave   func(*Record)
	OnDidSave    func(*Record)
	OnWillUnload func(*Record)
}

// Declares reports whether the descriptor's schema declares key.
func (d *Descriptor) Declares(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.Schema[key]
	return ok
}

// AttributeNames returns the declared attribute names in sorted order.
func (d *Descriptor) AttributeNames() []string {
	names := make([]string, 0, len(d.Schema))
	for name := range d.Schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry holds descriptors by model name. It is safe for concurrent
// use; populate it during initialization.
type Registry struct {
	mu    sync.RWMutex
	descs map[string]*Descriptor
}

// NewRegistry creates an empty descriptor registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Registering an unnamed descriptor or the
// same name twice is an error.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("register model: descriptor has no name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.descs[d.Name]; ok {
		return fmt.Errorf("register model: %q already registered", d.Name)
	}
	r.descs[d.Name] = d
	return nil
}

// Lookup returns the descriptor registered under name, or nil.
func (r *Registry) Lookup(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descs[name]
}

// Names returns all registered model names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descs))
	for name := range r.descs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
