package pmemrt

import (
	"os"
	"sync"

	"github.com/fenilsonani/pmemobj/internal/dispatch"
)

// Handle is the volatile, never-persisted runtime state for one open
// pool. It lives only in process memory;
// every field here is rebuilt from the on-media header/descriptor (or,
// for Mapping/File/Ops, from the open-time environment) on every open.
type Handle struct {
	Path     string
	File     *os.File
	Mapping  []byte
	Size     uint64
	ReadOnly bool
	IsPmem   bool
	UUIDLo   uint64
	Ops      dispatch.Ops

	ObjStoreOffset uint64
	HeapOffset     uint64
	HeapSize       uint64
	LanesOffset    uint64
	NLanes         uint64
	LaneSize       uint64

	// Heap answers usable-size queries for Direct and the allocation
	// facade; it is an interface, not *heap.Heap, so this package does
	// not import internal/heap.
	Heap UsableSizer

	RootMu sync.Mutex
}

// UsableSizer reports the usable payload size of an allocation given its
// payload offset (the *heap.Heap method set satisfies this implicitly).
type UsableSizer interface {
	UsableSize(payloadOff uint64) uint64
}

// ByTypeHeadOffset returns the byte offset of the object store's
// bytype[t] list head, where every typed-list operation starts.
func (h *Handle) ByTypeHeadOffset(t uint16) uint64 {
	return h.ObjStoreOffset + ByTypeOffset(t)
}

// RootHeadOffset returns the byte offset of the root list head.
func (h *Handle) RootHeadOffset() uint64 {
	return h.ObjStoreOffset + RootHeadOffset()
}

// PayloadBytes returns a slice over the live payload named by off,
// sized to its recorded usable allocation.
func (h *Handle) PayloadBytes(off, size uint64) []byte {
	return h.Mapping[off : off+size]
}
