package zcl

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds compiled ZCL cluster descriptors for lookup by code.
type Registry struct {
	mu       sync.RWMutex
	clusters map[uint16]*Cluster
	globals  []Attribute
	enums    map[string]*Enum
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clusters: make(map[uint16]*Cluster),
		enums:    make(map[string]*Enum),
		logger:   logger,
	}
}

// NewRegistryFromCatalog creates a registry holding every cluster, global
// attribute and enum of a compiled catalog.
func NewRegistryFromCatalog(cat *Catalog, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Load(cat)
	return r
}

// Load registers the contents of a catalog.
func (r *Registry) Load(cat *Catalog) {
	for _, c := range cat.Clusters {
		r.Register(c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals = append(r.globals, cat.Globals...)
	for k, e := range cat.Enums() {
		r.enums[k] = e
	}
}

// Register adds a cluster definition to the registry. A cluster already
// registered under the same code gains the attributes it lacks.
func (r *Registry) Register(c Cluster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clusters[c.Code]; ok {
		existing.Merge(&c)
		r.logger.Debug("cluster merged", "code", fmt.Sprintf("0x%04X", c.Code), "name", existing.Name, "namespace", c.Namespace)
	} else {
		r.clusters[c.Code] = c.DeepCopy()
		r.logger.Debug("cluster registered", "code", fmt.Sprintf("0x%04X", c.Code), "name", c.Name, "namespace", c.Namespace)
	}
}

// Get returns a cluster by code, or nil if not found.
// The returned value is a copy; callers may modify it safely.
func (r *Registry) Get(code uint16) *Cluster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := r.clusters[code]
	if c == nil {
		return nil
	}
	return c.DeepCopy()
}

// GetByName returns a cluster by name, or nil if not found.
func (r *Registry) GetByName(name string) *Cluster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clusters {
		if c.Name == name {
			return c.DeepCopy()
		}
	}
	return nil
}

// All returns all registered clusters ordered by code.
// Each entry is a copy; callers may modify them safely.
func (r *Registry) All() []Cluster {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Cluster, 0, len(r.clusters))
	for _, c := range r.clusters {
		result = append(result, *c.DeepCopy())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// Globals returns the global attributes present on every cluster.
func (r *Registry) Globals() []Attribute {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Attribute, len(r.globals))
	copy(out, r.globals)
	return out
}

// Enum returns an enum by key (see Enum.Key), or nil if not found.
func (r *Registry) Enum(key string) *Enum {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums[key]
}

// Enums returns all enums ordered by key.
func (r *Registry) Enums() []*Enum {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Enum, 0, len(r.enums))
	for _, e := range r.enums {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Len returns the number of registered clusters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clusters)
}
