// Package pmemrt holds the types shared by every layer that touches a
// mapped pool file: the persistent object id, the runtime pool handle, and
// the byte-level codec helpers for the out-of-band object header.
package pmemrt

import "encoding/binary"

// OID is an opaque persistent object identifier: a pool instance paired
// with a byte offset from the start of that pool's mapping to the user
// payload (never to the out-of-band header that precedes it).
type OID struct {
	PoolUUIDLo uint64
	Off        uint64
}

// Null is the zero OID; Off == 0 always denotes "no object".
var Null = OID{}

// IsNull reports whether o identifies no object.
func (o OID) IsNull() bool {
	return o.Off == 0
}

// Equal reports whether two OIDs name the same object.
func (o OID) Equal(other OID) bool {
	return o == other
}

const oidEncodedSize = 16

func getOID(b []byte) OID {
	return OID{
		PoolUUIDLo: binary.LittleEndian.Uint64(b[0:8]),
		Off:        binary.LittleEndian.Uint64(b[8:16]),
	}
}

func putOID(b []byte, o OID) {
	binary.LittleEndian.PutUint64(b[0:8], o.PoolUUIDLo)
	binary.LittleEndian.PutUint64(b[8:16], o.Off)
}
