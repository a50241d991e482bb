// Package schema exposes the whitelisted table set and a textual
// description of those tables for prompt construction.
package schema

import (
	"sort"
	"sync"
)

// Registry holds the set of qualified table names ("schema.table") the
// agent is allowed to reference. It is owned by the agent instance rather
// than being package-level state, and is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	tables map[string]struct{}
}

// NewRegistry creates a Registry seeded with the given table names.
func NewRegistry(tables ...string) *Registry {
	r := &Registry{tables: make(map[string]struct{}, len(tables))}
	for _, t := range tables {
		r.tables[t] = struct{}{}
	}
	return r
}

// Add inserts a table into the whitelist. Returns false if the table was
// already present.
func (r *Registry) Add(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[name]; ok {
		return false
	}
	r.tables[name] = struct{}{}
	return true
}

// Remove deletes a table from the whitelist. Returns false if the table
// was not present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[name]; !ok {
		return false
	}
	delete(r.tables, name)
	return true
}

// Contains reports whether the table is whitelisted.
func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tables[name]
	return ok
}

// List returns the whitelisted table names in sorted order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tables))
	for t := range r.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
