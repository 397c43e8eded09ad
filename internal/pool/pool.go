// Package pool implements the pool lifecycle: create, open, close, and
// check, including the common-open sequence that bumps run_id and
// boots the lane and heap subsystems. It is the one place that touches
// golang.org/x/sys/unix directly to map and unmap a pool file.
package pool

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/fenilsonani/pmemobj/internal/dispatch"
	"github.com/fenilsonani/pmemobj/internal/heap"
	"github.com/fenilsonani/pmemobj/internal/lane"
	"github.com/fenilsonani/pmemobj/internal/pmemhdr"
	"github.com/fenilsonani/pmemobj/internal/pmemrt"
	"github.com/fenilsonani/pmemobj/internal/registry"
)

// MinPoolSize is the smallest file create() will accept.
const MinPoolSize = 8 << 20 // 8 MiB

// CreateParams names a new pool's identity and geometry.
type CreateParams struct {
	Path   string
	Layout string
	Size   uint64
	Mode   os.FileMode
}

// Pool bundles a runtime handle with the booted subsystems that work
// against it.
type Pool struct {
	Handle *pmemrt.Handle
	Heap   *heap.Heap
	Lanes  *lane.Pool
}

// Create implements pool_create.
func Create(p CreateParams) (*Pool, error) {
	if len(p.Layout) >= pmemhdr.MaxLayout {
		return nil, pmemhdr.ErrLayoutTooLong
	}

	var f *os.File
	var size uint64
	var err error
	if p.Size != 0 {
		if p.Size < MinPoolSize {
			return nil, fmt.Errorf("pool: create size %d below minimum %d", p.Size, MinPoolSize)
		}
		f, err = os.OpenFile(p.Path, os.O_CREATE|os.O_EXCL|os.O_RDWR, orDefault(p.Mode))
		if err != nil {
			return nil, fmt.Errorf("pool: create %s: %w", p.Path, err)
		}
		if err := f.Truncate(int64(p.Size)); err != nil {
			f.Close()
			os.Remove(p.Path)
			return nil, fmt.Errorf("pool: truncate %s: %w", p.Path, err)
		}
		size = p.Size
	} else {
		f, err = os.OpenFile(p.Path, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("pool: open %s: %w", p.Path, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("pool: stat %s: %w", p.Path, err)
		}
		if uint64(info.Size()) < MinPoolSize {
			f.Close()
			return nil, fmt.Errorf("pool: file %s below minimum size", p.Path)
		}
		size = uint64(info.Size())
	}

	mapping, err := mapFile(f, size, false)
	if err != nil {
		f.Close()
		return nil, err
	}

	if !pmemhdr.IsZeroed(mapping) {
		unix.Munmap(mapping)
		f.Close()
		return nil, pmemhdr.ErrNotZeroed
	}

	h := &pmemrt.Handle{
		Path:     p.Path,
		File:     f,
		Mapping:  mapping,
		Size:     size,
		ReadOnly: false,
		IsPmem:   dispatch.IsPmem(p.Path, size),
	}
	h.Ops = dispatch.For(h.IsPmem, f)

	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		unix.Munmap(mapping)
		f.Close()
		return nil, fmt.Errorf("pool: generate uuid: %w", err)
	}
	h.UUIDLo = pmemhdr.UUIDLoFromUUID(uuid)

	nLanes := uint64(lane.DefaultCount)
	objStoreOffset := pmemhdr.LanesOffset + nLanes*lane.Size
	objStoreSize := pmemrt.ObjStoreSize
	heapOffset := objStoreOffset + objStoreSize
	if heapOffset >= size {
		unix.Munmap(mapping)
		f.Close()
		os.Remove(p.Path)
		return nil, fmt.Errorf("pool: size %d too small for geometry", size)
	}
	heapSize := size - heapOffset

	zero := make([]byte, nLanes*lane.Size)
	copy(mapping[pmemhdr.LanesOffset:pmemhdr.LanesOffset+uint64(len(zero))], zero)
	h.Ops.Persist(mapping, pmemhdr.LanesOffset, uint64(len(zero)))

	zeroStore := make([]byte, objStoreSize)
	copy(mapping[objStoreOffset:objStoreOffset+objStoreSize], zeroStore)
	h.Ops.Persist(mapping, objStoreOffset, objStoreSize)

	desc := pmemhdr.Descriptor{
		Layout:         p.Layout,
		LanesOffset:    pmemhdr.LanesOffset,
		NLanes:         nLanes,
		ObjStoreOffset: objStoreOffset,
		ObjStoreSize:   objStoreSize,
		HeapOffset:     heapOffset,
		HeapSize:       heapSize,
	}
	if err := pmemhdr.EncodeDescriptor(mapping[pmemhdr.DescriptorOffset:], desc); err != nil {
		unix.Munmap(mapping)
		f.Close()
		return nil, err
	}
	h.Ops.Persist(mapping, pmemhdr.DescriptorOffset, pmemhdr.DescriptorRegionSize)

	h.ObjStoreOffset = objStoreOffset
	h.HeapOffset = heapOffset
	h.HeapSize = heapSize
	h.LanesOffset = pmemhdr.LanesOffset
	h.NLanes = nLanes
	h.LaneSize = lane.Size

	if _, err := heap.Boot(h); err != nil {
		unix.Munmap(mapping)
		f.Close()
		return nil, fmt.Errorf("pool: heap init: %w", err)
	}

	// The header is the last durable write of the create sequence: its
	// checksum becoming valid is what flips the file from "partial
	// creation" to "pool" atomically at a crash boundary.
	hdr := pmemhdr.Header{
		Signature:  pmemhdr.Signature,
		Major:      pmemhdr.MajorVersion,
		UUID:       uuid,
		CreateTime: uint64(time.Now().Unix()),
		Arch:       pmemhdr.CurrentArch(),
	}
	pmemhdr.EncodeHeader(mapping, hdr)
	h.Ops.Persist(mapping, 0, pmemhdr.HeaderSize)

	return commonOpen(h)
}

// Open implements pool_open.
func Open(path, layout string) (*Pool, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("pool: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pool: stat %s: %w", path, err)
	}
	size := uint64(info.Size())

	mapping, err := mapFile(f, size, false)
	if err != nil {
		f.Close()
		return nil, err
	}

	h, err := attach(f, mapping, size, path, layout)
	if err != nil {
		unix.Munmap(mapping)
		f.Close()
		return nil, err
	}

	return commonOpen(h)
}

// Close implements pool_close: removes the pool from the
// registry, unmaps the file, and closes it. The heap and lane pool
// have no teardown step of their own.
func Close(p *Pool) error {
	registry.Global().Remove(p.Handle.UUIDLo)
	if err := unix.Munmap(p.Handle.Mapping); err != nil {
		p.Handle.File.Close()
		return fmt.Errorf("pool: munmap %s: %w", p.Handle.Path, err)
	}
	return p.Handle.File.Close()
}

// Check implements pool_check: it maps the pool read-only, never
// bumping run_id, replaying lanes, or touching the registry, and
// reports whether every invariant it can observe holds.
func Check(path, layout string) (consistent bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("pool: open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("pool: stat %s: %w", path, err)
	}
	size := uint64(info.Size())

	mapping, err := mapFile(f, size, true)
	if err != nil {
		return false, err
	}
	defer unix.Munmap(mapping)

	h, err := attach(f, mapping, size, path, layout)
	if err != nil {
		return false, err
	}
	h.ReadOnly = true

	consistent = !pmemhdr.IsOddRunID(pmemhdr.ReadRunID(mapping))
	if !lane.Check(h) {
		consistent = false
	}
	if !heap.Check(h) {
		consistent = false
	}
	return consistent, nil
}

// attach validates an already-mapped file's header and descriptor and
// fills in a fresh runtime handle; it does not bump run_id or boot any
// subsystem.
func attach(f *os.File, mapping []byte, size uint64, path, layout string) (*pmemrt.Handle, error) {
	hdr := pmemhdr.DecodeHeader(mapping)
	if !pmemhdr.VerifyHeaderChecksum(mapping) {
		return nil, pmemhdr.ErrBadChecksum
	}
	readOnly, err := pmemhdr.ValidateOpen(hdr)
	if err != nil {
		return nil, err
	}

	if !pmemhdr.VerifyDescriptorChecksum(mapping[pmemhdr.DescriptorOffset:]) {
		return nil, pmemhdr.ErrBadChecksum
	}
	desc := pmemhdr.DecodeDescriptor(mapping[pmemhdr.DescriptorOffset:])
	if err := pmemhdr.CheckLayout(layout, desc.Layout); err != nil {
		return nil, err
	}

	h := &pmemrt.Handle{
		Path:     path,
		File:     f,
		Mapping:  mapping,
		Size:     size,
		ReadOnly: readOnly,
		IsPmem:   dispatch.IsPmem(path, size),
		UUIDLo:   pmemhdr.UUIDLoFromUUID(hdr.UUID),

		ObjStoreOffset: desc.ObjStoreOffset,
		HeapOffset:     desc.HeapOffset,
		HeapSize:       desc.HeapSize,
		LanesOffset:    desc.LanesOffset,
		NLanes:         desc.NLanes,
		LaneSize:       lane.Size,
	}
	h.Ops = dispatch.For(h.IsPmem, f)
	return h, nil
}

// commonOpen runs the sequence shared by create and open: bump run_id,
// boot lanes then the heap, revoke header-page permissions
// (best-effort), and register the pool.
func commonOpen(h *pmemrt.Handle) (*Pool, error) {
	next := pmemhdr.NextRunID(pmemhdr.ReadRunID(h.Mapping))
	pmemhdr.WriteRunID(h.Mapping, next)
	h.Ops.Persist(h.Mapping, pmemhdr.RunIDOffset, 8)

	lanes, err := lane.Boot(h)
	if err != nil {
		unix.Munmap(h.Mapping)
		h.File.Close()
		return nil, fmt.Errorf("pool: lane boot: %w", err)
	}
	hp, err := heap.Boot(h)
	if err != nil {
		unix.Munmap(h.Mapping)
		h.File.Close()
		return nil, fmt.Errorf("pool: heap boot: %w", err)
	}
	h.Heap = hp

	unix.Mprotect(h.Mapping[:pmemhdr.HeaderSize], unix.PROT_NONE)

	if err := registry.Global().Insert(h); err != nil {
		unix.Munmap(h.Mapping)
		h.File.Close()
		return nil, err
	}

	return &Pool{Handle: h, Heap: hp, Lanes: lanes}, nil
}

func mapFile(f *os.File, size uint64, readOnly bool) ([]byte, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	if readOnly {
		prot = unix.PROT_READ
	}
	m, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("pool: mmap %s: %w", f.Name(), err)
	}
	return m, nil
}

func orDefault(m os.FileMode) os.FileMode {
	if m == 0 {
		return 0600
	}
	return m
}
