// Package heap manages the pool's heap region as a first-fit free
// list, addressing the pool's mapped byte slice by offset so that
// every link survives a close and reopen.
//
// Unlike the lane and list layers this package does not wrap every
// free-list mutation in an undo-protected transaction; it persists
// each step in the order that keeps the free list walkable after a
// crash (new links before the head that points at them), but a crash
// between those steps can at worst leak a block, never corrupt the
// list.
package heap

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/fenilsonani/pmemobj/internal/pmemrt"
)

const (
	magic = 0x504d484541500a31 // "PMHEAP\n1"

	metaMagicOff    = 0
	metaFreeHeadOff = 8
	metaAllocOff    = 16
	metaSize        = 32

	chunkHeaderSize = 8
	freeHeaderSize  = 16
	align           = 16

	// MinAlloc is the smallest request Alloc will service; anything
	// smaller still needs room for a free-block header once freed.
	MinAlloc = freeHeaderSize
)

// Heap manages the byte range [handle.HeapOffset, handle.HeapOffset+handle.HeapSize).
type Heap struct {
	h  *pmemrt.Handle
	mu sync.Mutex
}

// ErrOutOfSpace is returned when no free block is large enough to satisfy
// a request.
var ErrOutOfSpace = errors.New("heap: out of space")

// Boot initializes a freshly created heap region, or re-attaches to one
// already initialized by a previous open.
func Boot(h *pmemrt.Handle) (*Heap, error) {
	hp := &Heap{h: h}
	meta := h.Mapping[h.HeapOffset : h.HeapOffset+metaSize]
	if binary.LittleEndian.Uint64(meta[metaMagicOff:]) == magic {
		return hp, nil
	}

	// Fresh region: carve one free block spanning everything after the
	// metadata block.
	firstFree := h.HeapOffset + metaSize
	blockSize := h.HeapSize - metaSize
	hp.writeFreeBlock(firstFree, blockSize, 0)

	binary.LittleEndian.PutUint64(meta[metaFreeHeadOff:], firstFree)
	binary.LittleEndian.PutUint64(meta[metaAllocOff:], 0)
	binary.LittleEndian.PutUint64(meta[metaMagicOff:], magic)
	h.Ops.Persist(h.Mapping, h.HeapOffset, metaSize)
	return hp, nil
}

// Check validates the heap region of a pool that has not been booted:
// the metadata magic must be present and the free list must walk
// cleanly. Unlike Boot it never initializes anything, so it is safe on
// a read-only mapping.
func Check(h *pmemrt.Handle) bool {
	meta := h.Mapping[h.HeapOffset : h.HeapOffset+metaSize]
	if binary.LittleEndian.Uint64(meta[metaMagicOff:]) != magic {
		return false
	}
	hp := &Heap{h: h}
	return hp.Check()
}

// Check walks the free list and confirms every block stays within the
// heap region and the list terminates; it never repairs anything.
func (hp *Heap) Check() bool {
	hp.mu.Lock()
	defer hp.mu.Unlock()

	seen := map[uint64]bool{}
	cur := hp.freeHead()
	lo, hi := hp.h.HeapOffset+metaSize, hp.h.HeapOffset+hp.h.HeapSize
	for cur != 0 {
		if seen[cur] || cur < lo || cur+freeHeaderSize > hi {
			return false
		}
		seen[cur] = true
		size, next := hp.readFreeBlock(cur)
		if cur+size > hi {
			return false
		}
		cur = next
	}
	return true
}

// Alloc reserves a chunk of at least n usable bytes and returns its
// offset (the first byte after the chunk header). The chunk's total
// size, header included, is rounded up to a multiple of align.
func (hp *Heap) Alloc(n uint64) (uint64, error) {
	if n < MinAlloc {
		n = MinAlloc
	}
	want := roundUp(chunkHeaderSize+n, align)

	hp.mu.Lock()
	defer hp.mu.Unlock()

	prevOff, blockOff, blockSize, found := hp.findFit(want)
	if !found {
		return 0, ErrOutOfSpace
	}

	remaining := blockSize - want
	if remaining >= freeHeaderSize {
		// Split: serve the request from the head of the block and leave
		// the remainder free, moved down to [blockOff+want, blockOff+blockSize).
		_, next := hp.readFreeBlock(blockOff)
		newFreeOff := blockOff + want
		hp.writeFreeBlock(newFreeOff, remaining, next)
		hp.relink(prevOff, newFreeOff)
		hp.writeChunkHeader(blockOff, want)
		hp.bumpAllocated(int64(want))
		return blockOff + chunkHeaderSize, nil
	}

	// Exact-ish fit: take the whole block out of the free list.
	_, next := hp.readFreeBlock(blockOff)
	hp.unlink(prevOff, blockOff, next)
	hp.writeChunkHeader(blockOff, blockSize)
	hp.bumpAllocated(int64(blockSize))
	return blockOff + chunkHeaderSize, nil
}

// Free returns the chunk at payloadOff (as returned by Alloc) to the free
// list.
func (hp *Heap) Free(payloadOff uint64) {
	blockOff := payloadOff - chunkHeaderSize
	size := hp.readChunkSize(blockOff)

	hp.mu.Lock()
	defer hp.mu.Unlock()

	head := hp.freeHead()
	hp.writeFreeBlock(blockOff, size, head)
	hp.setFreeHead(blockOff)
	hp.bumpAllocated(-int64(size))
}

// UsableSize returns the usable chunk size allocated at payloadOff.
// Callers that prefix their payloads with their own header subtract
// its size from the result.
func (hp *Heap) UsableSize(payloadOff uint64) uint64 {
	return hp.readChunkSize(payloadOff-chunkHeaderSize) - chunkHeaderSize
}

// Realloc grows the chunk at payloadOff to hold newN usable bytes,
// copying old contents and returning a (possibly different) payload
// offset. It never shrinks a block: when the existing chunk already has
// room, it returns payloadOff unchanged.
func (hp *Heap) Realloc(payloadOff, newN uint64) (uint64, error) {
	old := hp.UsableSize(payloadOff)
	if newN <= old {
		return payloadOff, nil
	}
	newOff, err := hp.Alloc(newN)
	if err != nil {
		return 0, err
	}
	copy(hp.h.Mapping[newOff:newOff+old], hp.h.Mapping[payloadOff:payloadOff+old])
	hp.h.Ops.Persist(hp.h.Mapping, newOff, old)
	hp.Free(payloadOff)
	return newOff, nil
}

// --- internal helpers ---

func roundUp(n, a uint64) uint64 {
	return (n + a - 1) &^ (a - 1)
}

func (hp *Heap) freeHead() uint64 {
	return binary.LittleEndian.Uint64(hp.h.Mapping[hp.h.HeapOffset+metaFreeHeadOff:])
}

func (hp *Heap) setFreeHead(off uint64) {
	binary.LittleEndian.PutUint64(hp.h.Mapping[hp.h.HeapOffset+metaFreeHeadOff:], off)
	hp.h.Ops.Persist(hp.h.Mapping, hp.h.HeapOffset+metaFreeHeadOff, 8)
}

func (hp *Heap) bumpAllocated(delta int64) {
	off := hp.h.HeapOffset + metaAllocOff
	cur := binary.LittleEndian.Uint64(hp.h.Mapping[off:])
	binary.LittleEndian.PutUint64(hp.h.Mapping[off:], uint64(int64(cur)+delta))
	hp.h.Ops.Persist(hp.h.Mapping, off, 8)
}

func (hp *Heap) readFreeBlock(off uint64) (size, next uint64) {
	b := hp.h.Mapping[off : off+freeHeaderSize]
	return binary.LittleEndian.Uint64(b[0:8]), binary.LittleEndian.Uint64(b[8:16])
}

func (hp *Heap) writeFreeBlock(off, size, next uint64) {
	b := hp.h.Mapping[off : off+freeHeaderSize]
	binary.LittleEndian.PutUint64(b[0:8], size)
	binary.LittleEndian.PutUint64(b[8:16], next)
	hp.h.Ops.Persist(hp.h.Mapping, off, freeHeaderSize)
}

func (hp *Heap) writeChunkHeader(off, size uint64) {
	binary.LittleEndian.PutUint64(hp.h.Mapping[off:off+8], size)
	hp.h.Ops.Persist(hp.h.Mapping, off, 8)
}

func (hp *Heap) readChunkSize(off uint64) uint64 {
	return binary.LittleEndian.Uint64(hp.h.Mapping[off : off+8])
}

// findFit walks the free list for the first block of at least want
// bytes, returning the offset of its predecessor in the list (0 if it is
// the head) along with its own offset and size.
func (hp *Heap) findFit(want uint64) (prevOff, blockOff, blockSize uint64, found bool) {
	prevOff = 0
	cur := hp.freeHead()
	for cur != 0 {
		size, next := hp.readFreeBlock(cur)
		if size >= want {
			return prevOff, cur, size, true
		}
		prevOff = cur
		cur = next
	}
	return 0, 0, 0, false
}

// unlink removes blockOff from the free list, prev pointing directly to
// next afterwards.
func (hp *Heap) unlink(prevOff, blockOff, next uint64) {
	if prevOff == 0 {
		hp.setFreeHead(next)
		return
	}
	b := hp.h.Mapping[prevOff+8 : prevOff+16]
	binary.LittleEndian.PutUint64(b, next)
	hp.h.Ops.Persist(hp.h.Mapping, prevOff+8, 8)
}

// relink repoints prevOff's next pointer (or the free-list head) at
// newBlockOff; used when a block is split and the remaining free portion
// moves to a new offset within the same span.
func (hp *Heap) relink(prevOff, newBlockOff uint64) {
	if prevOff == 0 {
		hp.setFreeHead(newBlockOff)
		return
	}
	b := hp.h.Mapping[prevOff+8 : prevOff+16]
	binary.LittleEndian.PutUint64(b, newBlockOff)
	hp.h.Ops.Persist(hp.h.Mapping, prevOff+8, 8)
}
