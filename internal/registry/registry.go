package registry

import (
	"sync"

	"github.com/fenilsonani/pmemobj/internal/pmemrt"
)

// Registry is the process-wide table of open pools keyed by uuid_lo.
// A single instance is shared by every pmemobj.Pool in
// the process; Global returns it.
type Registry struct {
	mu    sync.RWMutex
	table *CuckooHashTable
}

var global = &Registry{table: NewCuckooHashTable(defaultSlots)}

// Global returns the process-wide registry.
func Global() *Registry { return global }

// Insert registers h under h.UUIDLo, failing with ErrAlreadyPresent if
// that uuid_lo is already open in this process.
func (r *Registry) Insert(h *pmemrt.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.table.Get(h.UUIDLo); ok {
		return ErrAlreadyPresent
	}
	r.table.Insert(h.UUIDLo, h)
	return nil
}

// Remove drops uuidLo from the registry; it is a no-op if absent.
func (r *Registry) Remove(uuidLo uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table.Remove(uuidLo)
}

// Lookup resolves uuidLo to its runtime handle, if that pool is
// currently open in this process.
func (r *Registry) Lookup(uuidLo uint64) (*pmemrt.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.table.Get(uuidLo)
	if !ok {
		return nil, false
	}
	return v.(*pmemrt.Handle), true
}

// Len reports how many pools are currently open in this process.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Len()
}
