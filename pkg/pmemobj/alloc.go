package pmemobj

import (
	"errors"

	"github.com/fenilsonani/pmemobj/internal/pmemrt"
)

// errInvalidType is returned for a type_num outside [0, NTypes).
var errInvalidType = errors.New("type_num out of range")

// NTypes is the number of user type slots an object can be allocated
// into.
const NTypes = pmemrt.NTypes

func checkType(t uint16) error {
	if t >= NTypes {
		return errInvalidType
	}
	return nil
}

// Alloc implements alloc(): it validates typeNum, then inserts a
// size-byte object into bytype[typeNum], running ctor (if non-nil)
// over the fresh payload before it becomes visible.
func (p *Pool) Alloc(size uint64, typeNum uint16, ctor func(payload []byte)) (OID, error) {
	if err := checkType(typeNum); err != nil {
		return Null, wrapErr(KindInvalidArgument, "alloc", err)
	}
	oid, err := p.lists.InsertNew(typeNum, size, ctor)
	if err != nil {
		return Null, wrapErr(KindOutOfMemory, "alloc", err)
	}
	return oid, nil
}

// Zalloc implements zalloc(): same as Alloc, but the payload is
// zero-filled before any caller ctor runs. The heap recycles freed
// chunks, so a fresh payload can hold stale bytes; the constructor's
// writes are persisted by the insert before the object becomes visible.
func (p *Pool) Zalloc(size uint64, typeNum uint16, ctor func(payload []byte)) (OID, error) {
	zeroCtor := func(payload []byte) {
		for i := range payload {
			payload[i] = 0
		}
		if ctor != nil {
			ctor(payload)
		}
	}
	return p.Alloc(size, typeNum, zeroCtor)
}

// AllocConstruct implements alloc_construct(); it is the same operation
// as Alloc, on which Zalloc is also built.
func (p *Pool) AllocConstruct(size uint64, typeNum uint16, ctor func(payload []byte)) (OID, error) {
	return p.Alloc(size, typeNum, ctor)
}

// Strdup implements strdup(): it stores exactly len(s) bytes and never
// a trailing NUL terminator. This is deliberate, not a bug:
// alloc_usable_size may return more than len(s) due to allocator
// rounding, and callers cannot recover the exact string length from
// the object alone; they must track it themselves.
func (p *Pool) Strdup(s string, typeNum uint16) (OID, error) {
	data := []byte(s)
	ctor := func(payload []byte) {
		copy(payload, data)
	}
	return p.Alloc(uint64(len(data)), typeNum, ctor)
}

// Realloc implements realloc(): it resizes the object, which moves to a
// new block (and a new OID) only when its current block lacks room and
// is never shrunk, then moves it to typeNum's list (atomically updating
// user_type) if typeNum differs from its current type.
func (p *Pool) Realloc(oid OID, size uint64, typeNum uint16) (OID, error) {
	if err := checkType(typeNum); err != nil {
		return Null, wrapErr(KindInvalidArgument, "realloc", err)
	}
	newOID, err := p.lists.Realloc(oid, size)
	if err != nil {
		return Null, wrapErr(KindOutOfMemory, "realloc", err)
	}
	if err := p.lists.Move(newOID, typeNum); err != nil {
		return Null, wrapErr(KindIOError, "realloc", err)
	}
	return newOID, nil
}

// Zrealloc implements zrealloc(): like Realloc, but zero-fills only the
// new suffix [old, new) when the object grows.
func (p *Pool) Zrealloc(oid OID, size uint64, typeNum uint16) (OID, error) {
	old := p.AllocUsableSize(oid)
	newOID, err := p.Realloc(oid, size, typeNum)
	if err != nil {
		return Null, err
	}
	if size > old {
		h := p.p.Handle
		h.Ops.MemsetPersist(h.Mapping, newOID.Off+old, 0, size-old)
	}
	return newOID, nil
}

// Free implements free(): null-safe; a failure to unlink leaves the
// object in place and is not reported.
func (p *Pool) Free(oid OID) {
	_ = p.lists.RemoveFree(oid)
}

// AllocUsableSize implements alloc_usable_size().
func (p *Pool) AllocUsableSize(oid OID) uint64 {
	if oid.IsNull() {
		return 0
	}
	return usableSize(p.p.Handle, oid)
}
