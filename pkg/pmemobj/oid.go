package pmemobj

import (
	"errors"

	"github.com/fenilsonani/pmemobj/internal/pmemrt"
	"github.com/fenilsonani/pmemobj/internal/registry"
)

// OID is the public persistent object identifier.
type OID = pmemrt.OID

// Null is the OID naming no object.
var Null = pmemrt.Null

var errUnknownPool = errors.New("pool id not open in this process")

// Direct resolves oid to the live bytes of its payload, translating
// oid.PoolUUIDLo through the process-wide registry in O(1). It is
// undefined (and here, an error) for a pool
// id not currently open in this process.
func Direct(oid OID) ([]byte, error) {
	if oid.IsNull() {
		return nil, nil
	}
	h, ok := registry.Global().Lookup(oid.PoolUUIDLo)
	if !ok {
		return nil, wrapErr(KindInvalidArgument, "direct", errUnknownPool)
	}
	usable := usableSize(h, oid)
	return h.PayloadBytes(oid.Off, usable), nil
}

// usableSize is the allocator's chunk size minus the OOB header that
// precedes every payload, which is always at least the size that was
// requested.
func usableSize(h *pmemrt.Handle, oid OID) uint64 {
	total := h.Heap.UsableSize(oid.Off - pmemrt.OOBOffset)
	return total - pmemrt.OOBOffset
}
