package dispatch

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// pmemOps is the cache-flush-and-drain vtable for real persistent memory.
// On actual NVDIMM hardware, Flush would issue CLWB/CLFLUSHOPT per cache
// line and Drain a single SFENCE, with no syscall involved at all. Neither
// instruction is reachable from portable Go without an assembly stub
// this module does not ship, so Flush here only issues a compiler/CPU
// store fence via a throwaway atomic op, enough to order the preceding
// writes. Drain, which on real pmem would be the SFENCE that makes the
// flushes visible, is another fence; Persist additionally calls msync
// so its durability contract (after Persist returns, the bytes are on
// media) holds even when run over an ordinary mapped file, the only
// medium this module can actually test against.
type pmemOps struct{}

var fenceWord atomic.Uint64

func storeFence() {
	fenceWord.Add(1)
}

func (o *pmemOps) Persist(mapping []byte, off, n uint64) {
	o.Flush(mapping, off, n)
	o.Drain()
	_ = unix.Msync(pageSlice(mapping, off, n), unix.MS_SYNC)
}

func (o *pmemOps) Flush(mapping []byte, off, n uint64) {
	storeFence()
}

func (o *pmemOps) Drain() {
	storeFence()
}

func (o *pmemOps) MemcpyPersist(mapping []byte, off uint64, src []byte) {
	copy(mapping[off:off+uint64(len(src))], src)
	o.Persist(mapping, off, uint64(len(src)))
}

func (o *pmemOps) MemsetPersist(mapping []byte, off uint64, c byte, n uint64) {
	dst := mapping[off : off+n]
	for i := range dst {
		dst[i] = c
	}
	o.Persist(mapping, off, n)
}

func pageSlice(mapping []byte, off, n uint64) []byte {
	lo, hi := pageAlign(off, n, len(mapping))
	return mapping[lo:hi]
}
