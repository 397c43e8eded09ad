// Package dispatch selects the persistence primitives a pool uses to make
// writes to its mapping durable: a cache-flush-and-drain vtable for real
// persistent memory, or a synchronous-msync fallback for ordinary mapped
// files. Every durable write anywhere in this module goes through the Ops
// a pool was opened with; nothing else is allowed to claim durability.
package dispatch

// Ops is the per-pool persistence vtable. Persist
// is the common case (flush then drain in one call); Flush/Drain exist
// separately so a caller can start several flushes and drain them once.
type Ops interface {
	// Persist makes addr[off:off+n] durable before returning.
	Persist(mapping []byte, off, n uint64)
	// Flush begins durability for addr[off:off+n] without waiting for it.
	Flush(mapping []byte, off, n uint64)
	// Drain waits for any in-flight Flush calls on this pool to complete.
	Drain()
	// MemcpyPersist copies src into mapping[off:off+len(src)] and persists it.
	MemcpyPersist(mapping []byte, off uint64, src []byte)
	// MemsetPersist sets mapping[off:off+n] to c and persists it.
	MemsetPersist(mapping []byte, off uint64, c byte, n uint64)
}

// For selects the Ops implementation for a mapping backed by file f:
// the pmem-aware vtable when isPmem is true, the page-sync fallback
// otherwise. Real persistent memory exposes cache-line flush and a store
// drain; every other medium (a regular file, tmpfs, a network mount) can
// only offer msync as its durability primitive, so the fallback is what
// this module actually relies on in practice; see IsPmem.
func For(isPmem bool, f syncer) Ops {
	if isPmem {
		return &pmemOps{}
	}
	return &fallbackOps{f: f}
}

// syncer is the subset of *os.File that fallbackOps needs; kept as an
// interface so tests can supply a fake.
type syncer interface {
	Fd() uintptr
}
