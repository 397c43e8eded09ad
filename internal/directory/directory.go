// Package directory implements the object directory cursor operations:
// First and Next walk a single typed ring (or the root list) without
// ever exposing the ring's wraparound link, so a caller iterating with
// First/Next sees a plain terminated sequence.
package directory

import "github.com/fenilsonani/pmemobj/internal/pmemrt"

// First returns the first live object of userType, or the null OID if
// the list is empty.
func First(h *pmemrt.Handle, userType uint16) pmemrt.OID {
	headOff := headOffset(h, userType)
	return pmemrt.ReadListHead(h.Mapping, headOff)
}

// Next returns the object following oid in its own list, or the null
// OID once the walk has returned to the list's first element.
func Next(h *pmemrt.Handle, oid pmemrt.OID) pmemrt.OID {
	hdr := pmemrt.ReadOOB(h.Mapping, oid.Off)
	headOff := headOffset(h, hdr.UserType)
	first := pmemrt.ReadListHead(h.Mapping, headOff)
	if hdr.Next == first {
		return pmemrt.Null
	}
	return hdr.Next
}

func headOffset(h *pmemrt.Handle, userType uint16) uint64 {
	if userType == pmemrt.UserTypeRoot {
		return h.RootHeadOffset()
	}
	return h.ByTypeHeadOffset(userType)
}
