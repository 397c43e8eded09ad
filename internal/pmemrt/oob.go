package pmemrt

import "encoding/binary"

// OOBHeader is the decoded form of the fixed header that precedes every
// user payload in the heap. It is never stored decoded on
// media; Read/Write move it to and from the mapping.
type OOBHeader struct {
	InternalType uint16
	UserType     uint16
	Size         uint64
	Prev         OID
	Next         OID
}

// ReadOOB decodes the header immediately preceding the payload at
// payloadOff.
func ReadOOB(mapping []byte, payloadOff uint64) OOBHeader {
	b := mapping[payloadOff-OOBOffset : payloadOff]
	return OOBHeader{
		InternalType: binary.LittleEndian.Uint16(b[oobInternalType:]),
		UserType:     binary.LittleEndian.Uint16(b[oobUserType:]),
		Size:         binary.LittleEndian.Uint64(b[oobSize:]),
		Prev:         getOID(b[oobPrev:]),
		Next:         getOID(b[oobNext:]),
	}
}

// WriteOOB encodes hdr into the header immediately preceding payloadOff,
// without persisting it; callers durably commit header writes through a
// lane transaction (internal/lane) since every such write needs to be
// part of a crash-atomic field update.
func WriteOOB(mapping []byte, payloadOff uint64, hdr OOBHeader) {
	b := mapping[payloadOff-OOBOffset : payloadOff]
	binary.LittleEndian.PutUint16(b[oobInternalType:], hdr.InternalType)
	binary.LittleEndian.PutUint16(b[oobUserType:], hdr.UserType)
	binary.LittleEndian.PutUint64(b[oobSize:], hdr.Size)
	putOID(b[oobPrev:], hdr.Prev)
	putOID(b[oobNext:], hdr.Next)
}

// ReadListHead decodes the list head (the "pe_first" pointer) at off.
func ReadListHead(mapping []byte, off uint64) OID {
	return getOID(mapping[off : off+ListHeadSize])
}

// WriteListHead encodes first into the list head at off, undurably; see
// WriteOOB for why durability is the caller's (lane's) job.
func WriteListHead(mapping []byte, off uint64, first OID) {
	putOID(mapping[off:off+ListHeadSize], first)
}
