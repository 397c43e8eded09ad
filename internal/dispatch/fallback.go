package dispatch

import (
	"golang.org/x/sys/unix"
)

// fallbackOps is the page-sync vtable: flush and persist both degrade to
// msync, drain is a no-op (there is nothing in flight to wait for once
// msync has returned), and the copy/set helpers do the copy or set,
// then msync the affected range.
type fallbackOps struct {
	f syncer
}

func (o *fallbackOps) Persist(mapping []byte, off, n uint64) {
	o.Flush(mapping, off, n)
}

func (o *fallbackOps) Flush(mapping []byte, off, n uint64) {
	if n == 0 {
		return
	}
	lo, hi := pageAlign(off, n, len(mapping))
	_ = unix.Msync(mapping[lo:hi], unix.MS_SYNC)
}

func (o *fallbackOps) Drain() {
	// Nothing to drain: Flush already blocked until msync returned.
}

func (o *fallbackOps) MemcpyPersist(mapping []byte, off uint64, src []byte) {
	copy(mapping[off:off+uint64(len(src))], src)
	o.Persist(mapping, off, uint64(len(src)))
}

func (o *fallbackOps) MemsetPersist(mapping []byte, off uint64, c byte, n uint64) {
	dst := mapping[off : off+n]
	for i := range dst {
		dst[i] = c
	}
	o.Persist(mapping, off, n)
}

// pageAlign widens [off, off+n) to page boundaries and clamps to mapLen,
// since msync requires a page-aligned address.
func pageAlign(off, n uint64, mapLen int) (lo, hi int) {
	const pageSize = 4096
	lo = int(off) &^ (pageSize - 1)
	end := int(off+n) + pageSize - 1
	hi = end &^ (pageSize - 1)
	if hi > mapLen {
		hi = mapLen
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}
