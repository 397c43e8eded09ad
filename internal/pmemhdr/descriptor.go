package pmemhdr

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// DescriptorOffset is the fixed byte offset of the descriptor region,
// immediately after the header.
const DescriptorOffset = HeaderSize

// DescriptorRegionSize is the reserved on-media span for the
// descriptor. The logical descriptor needs under 2 KiB, but the run_id
// slot sits a full page after the header, so the region reserves the
// whole 4 KiB gap between the two.
const DescriptorRegionSize = 4096

// MaxLayout is the largest layout name, in bytes, create() will accept.
const MaxLayout = 1024

const (
	descOffLayout  = 0
	descOffLanes   = MaxLayout
	descOffNLanes  = descOffLanes + 8
	descOffStoreOf = descOffNLanes + 8
	descOffStoreSz = descOffStoreOf + 8
	descOffHeapOf  = descOffStoreSz + 8
	descOffHeapSz  = descOffHeapOf + 8
	descOffCksum   = descOffHeapSz + 8
	descLogicalLen = descOffCksum + 8
)

// ErrLayoutTooLong is returned when a requested layout name is
// MaxLayout bytes or longer.
var ErrLayoutTooLong = errors.New("pmemhdr: layout name too long")

// ErrLayoutMismatch is returned when open()'s requested layout is not a
// prefix match of the on-media layout name.
var ErrLayoutMismatch = errors.New("pmemhdr: layout mismatch")

func init() {
	if descLogicalLen > DescriptorRegionSize {
		panic("pmemhdr: descriptor layout does not fit its region")
	}
}

// Descriptor is the decoded form of the pool descriptor.
type Descriptor struct {
	Layout         string
	LanesOffset    uint64
	NLanes         uint64
	ObjStoreOffset uint64
	ObjStoreSize   uint64
	HeapOffset     uint64
	HeapSize       uint64
	Checksum       uint64
}

// EncodeDescriptor writes d into b (the DescriptorRegionSize-byte region
// starting at DescriptorOffset) and computes and stores its checksum.
// It returns ErrLayoutTooLong without writing anything if d.Layout does
// not fit.
func EncodeDescriptor(b []byte, d Descriptor) error {
	if len(d.Layout) >= MaxLayout {
		return ErrLayoutTooLong
	}
	region := b[:DescriptorRegionSize]
	for i := range region {
		region[i] = 0
	}
	copy(region[descOffLayout:], d.Layout)
	binary.LittleEndian.PutUint64(region[descOffLanes:], d.LanesOffset)
	binary.LittleEndian.PutUint64(region[descOffNLanes:], d.NLanes)
	binary.LittleEndian.PutUint64(region[descOffStoreOf:], d.ObjStoreOffset)
	binary.LittleEndian.PutUint64(region[descOffStoreSz:], d.ObjStoreSize)
	binary.LittleEndian.PutUint64(region[descOffHeapOf:], d.HeapOffset)
	binary.LittleEndian.PutUint64(region[descOffHeapSz:], d.HeapSize)

	sum := crc32.ChecksumIEEE(region[:descOffCksum])
	binary.LittleEndian.PutUint64(region[descOffCksum:], uint64(sum))
	return nil
}

// DecodeDescriptor reads a Descriptor out of b without validating it.
func DecodeDescriptor(b []byte) Descriptor {
	region := b[:DescriptorRegionSize]
	layoutBytes := region[descOffLayout:descOffLanes]
	n := 0
	for n < len(layoutBytes) && layoutBytes[n] != 0 {
		n++
	}
	return Descriptor{
		Layout:         string(layoutBytes[:n]),
		LanesOffset:    binary.LittleEndian.Uint64(region[descOffLanes:]),
		NLanes:         binary.LittleEndian.Uint64(region[descOffNLanes:]),
		ObjStoreOffset: binary.LittleEndian.Uint64(region[descOffStoreOf:]),
		ObjStoreSize:   binary.LittleEndian.Uint64(region[descOffStoreSz:]),
		HeapOffset:     binary.LittleEndian.Uint64(region[descOffHeapOf:]),
		HeapSize:       binary.LittleEndian.Uint64(region[descOffHeapSz:]),
		Checksum:       binary.LittleEndian.Uint64(region[descOffCksum:]),
	}
}

// VerifyDescriptorChecksum reports whether the checksum stored in b's
// descriptor region matches a CRC32 recomputed with that field zeroed.
func VerifyDescriptorChecksum(b []byte) bool {
	region := b[:DescriptorRegionSize]
	want := binary.LittleEndian.Uint64(region[descOffCksum:])
	got := crc32.ChecksumIEEE(region[:descOffCksum])
	return uint64(got) == want
}

// CheckLayout enforces open()'s exact-prefix-match rule: an empty
// requested layout matches anything.
func CheckLayout(requested, onMedia string) error {
	if requested == "" {
		return nil
	}
	if len(requested) > len(onMedia) || onMedia[:len(requested)] != requested {
		return ErrLayoutMismatch
	}
	return nil
}
