// Package list implements the circular doubly-linked ring operations
// (insert-new, remove-and-free, move, realloc) that every typed object
// list and the root list are built from. Every multi-field update here
// runs inside one internal/lane transaction so it is atomically
// visible at a crash boundary.
package list

import (
	"encoding/binary"

	"github.com/fenilsonani/pmemobj/internal/heap"
	"github.com/fenilsonani/pmemobj/internal/lane"
	"github.com/fenilsonani/pmemobj/internal/pmemrt"
)

// Lists bundles the heap and lane pool a pool's object lists are built
// on top of.
type Lists struct {
	H     *pmemrt.Handle
	Heap  *heap.Heap
	Lanes *lane.Pool
}

// New wires a Lists over an already-booted heap and lane pool.
func New(h *pmemrt.Handle, hp *heap.Heap, lanes *lane.Pool) *Lists {
	return &Lists{H: h, Heap: hp, Lanes: lanes}
}

// HeadOffset returns the list head offset that owns objects of userType
// (UserTypeRoot selects the root list).
func (ls *Lists) HeadOffset(userType uint16) uint64 {
	if userType == pmemrt.UserTypeRoot {
		return ls.H.RootHeadOffset()
	}
	return ls.H.ByTypeHeadOffset(userType)
}

// InsertNew allocates size bytes of payload, tags it with userType, runs
// ctor over the fresh (not yet linked, not yet visible) payload, and
// links the new object at the tail of userType's ring, all under one
// lane transaction.
func (ls *Lists) InsertNew(userType uint16, size uint64, ctor func(payload []byte)) (pmemrt.OID, error) {
	raw, err := ls.Heap.Alloc(pmemrt.OOBOffset + size)
	if err != nil {
		return pmemrt.OID{}, err
	}
	payloadOff := raw + pmemrt.OOBOffset
	oid := pmemrt.OID{PoolUUIDLo: ls.H.UUIDLo, Off: payloadOff}

	if ctor != nil {
		ctor(ls.H.Mapping[payloadOff : payloadOff+size])
		ls.H.Ops.Persist(ls.H.Mapping, payloadOff, size)
	}

	headOff := ls.HeadOffset(userType)
	tx := ls.Lanes.Begin()

	first := pmemrt.ReadListHead(ls.H.Mapping, headOff)
	var prev, next pmemrt.OID
	if first.IsNull() {
		prev, next = oid, oid
	} else {
		last := pmemrt.ReadOOB(ls.H.Mapping, first.Off).Prev
		prev, next = last, first
		if err := ls.setNext(tx, last, oid); err != nil {
			tx.Abort()
			return pmemrt.OID{}, err
		}
		if err := ls.setPrev(tx, first, oid); err != nil {
			tx.Abort()
			return pmemrt.OID{}, err
		}
	}

	if err := ls.writeCore(tx, payloadOff, pmemrt.OpAlloc, userType, size); err != nil {
		tx.Abort()
		return pmemrt.OID{}, err
	}
	if err := ls.setLinks(tx, oid, prev, next); err != nil {
		tx.Abort()
		return pmemrt.OID{}, err
	}
	if first.IsNull() {
		if err := tx.Set(headOff, encodeOID(oid)); err != nil {
			tx.Abort()
			return pmemrt.OID{}, err
		}
	}

	return oid, tx.Commit()
}

// Insert links an already-allocated object into userType's ring at the
// tail, retagging its user_type; the inverse of Remove. The caller must
// not pass an object that is currently linked into any list.
func (ls *Lists) Insert(oid pmemrt.OID, userType uint16) error {
	if oid.IsNull() {
		return nil
	}
	headOff := ls.HeadOffset(userType)
	tx := ls.Lanes.Begin()
	if err := ls.linkTail(tx, oid, userType, headOff); err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

// Remove unlinks oid from the list named by its own user_type without
// returning its storage to the heap; the object stays allocated and can
// be re-linked with Insert.
func (ls *Lists) Remove(oid pmemrt.OID) error {
	if oid.IsNull() {
		return nil
	}
	hdr := pmemrt.ReadOOB(ls.H.Mapping, oid.Off)
	headOff := ls.HeadOffset(hdr.UserType)
	tx := ls.Lanes.Begin()
	if err := ls.unlink(tx, oid, hdr, headOff); err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

// RemoveFree unlinks oid from the list named by its own user_type and
// returns its storage to the heap.
func (ls *Lists) RemoveFree(oid pmemrt.OID) error {
	if oid.IsNull() {
		return nil
	}
	hdr := pmemrt.ReadOOB(ls.H.Mapping, oid.Off)
	headOff := ls.HeadOffset(hdr.UserType)

	tx := ls.Lanes.Begin()
	if err := ls.unlink(tx, oid, hdr, headOff); err != nil {
		tx.Abort()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	ls.Heap.Free(oid.Off - pmemrt.OOBOffset)
	return nil
}

// Move relinks oid from its current list into newType's list, rewriting
// user_type in the same transaction.
func (ls *Lists) Move(oid pmemrt.OID, newType uint16) error {
	hdr := pmemrt.ReadOOB(ls.H.Mapping, oid.Off)
	if hdr.UserType == newType {
		return nil
	}
	oldHead := ls.HeadOffset(hdr.UserType)
	newHead := ls.HeadOffset(newType)

	tx := ls.Lanes.Begin()
	if err := ls.unlink(tx, oid, hdr, oldHead); err != nil {
		tx.Abort()
		return err
	}
	if err := ls.linkTail(tx, oid, newType, newHead); err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

// Realloc resizes oid to newSize: the underlying block is replaced only
// when it lacks room for newSize and is never shrunk. It updates the
// OOB size field and, if the underlying block had to move, every ring
// link that pointed at the old OID, all under one transaction.
func (ls *Lists) Realloc(oid pmemrt.OID, newSize uint64) (pmemrt.OID, error) {
	rawOff := oid.Off - pmemrt.OOBOffset
	newRaw, err := ls.Heap.Realloc(rawOff, pmemrt.OOBOffset+newSize)
	if err != nil {
		return pmemrt.OID{}, err
	}
	newOID := pmemrt.OID{PoolUUIDLo: ls.H.UUIDLo, Off: newRaw + pmemrt.OOBOffset}

	hdr := pmemrt.ReadOOB(ls.H.Mapping, newOID.Off)
	headOff := ls.HeadOffset(hdr.UserType)

	tx := ls.Lanes.Begin()
	if err := tx.Set(newOID.Off-pmemrt.OOBOffset+8, encodeU64(newSize)); err != nil {
		tx.Abort()
		return pmemrt.OID{}, err
	}
	if newOID != oid {
		if err := ls.relinkAfterMove(tx, oid, newOID, hdr, headOff); err != nil {
			tx.Abort()
			return pmemrt.OID{}, err
		}
	}
	return newOID, tx.Commit()
}

// --- internal helpers ---

func (ls *Lists) setNext(tx *lane.Tx, oid, next pmemrt.OID) error {
	return tx.Set(linkNextOffset(oid), encodeOID(next))
}

func (ls *Lists) setPrev(tx *lane.Tx, oid, prev pmemrt.OID) error {
	return tx.Set(linkPrevOffset(oid), encodeOID(prev))
}

func (ls *Lists) setLinks(tx *lane.Tx, oid, prev, next pmemrt.OID) error {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[0:8], prev.PoolUUIDLo)
	binary.LittleEndian.PutUint64(buf[8:16], prev.Off)
	binary.LittleEndian.PutUint64(buf[16:24], next.PoolUUIDLo)
	binary.LittleEndian.PutUint64(buf[24:32], next.Off)
	return tx.Set(linkPrevOffset(oid), buf)
}

func (ls *Lists) writeCore(tx *lane.Tx, payloadOff uint64, internalType, userType uint16, size uint64) error {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint16(buf[0:2], internalType)
	binary.LittleEndian.PutUint16(buf[2:4], userType)
	binary.LittleEndian.PutUint64(buf[8:16], size)
	return tx.Set(payloadOff-pmemrt.OOBOffset, buf)
}

// unlink removes oid (whose current header is hdr) from the ring at
// headOff.
func (ls *Lists) unlink(tx *lane.Tx, oid pmemrt.OID, hdr pmemrt.OOBHeader, headOff uint64) error {
	if hdr.Prev == oid && hdr.Next == oid {
		// sole element
		return tx.Set(headOff, encodeOID(pmemrt.Null))
	}
	if err := ls.setNext(tx, hdr.Prev, hdr.Next); err != nil {
		return err
	}
	if err := ls.setPrev(tx, hdr.Next, hdr.Prev); err != nil {
		return err
	}
	first := pmemrt.ReadListHead(ls.H.Mapping, headOff)
	if first == oid {
		return tx.Set(headOff, encodeOID(hdr.Next))
	}
	return nil
}

// linkTail appends oid, freshly retyped to newType, to the tail of the
// ring at newHead.
func (ls *Lists) linkTail(tx *lane.Tx, oid pmemrt.OID, newType uint16, newHead uint64) error {
	if err := tx.Set(oid.Off-pmemrt.OOBOffset+2, encodeU16(newType)); err != nil {
		return err
	}
	first := pmemrt.ReadListHead(ls.H.Mapping, newHead)
	if first.IsNull() {
		if err := ls.setLinks(tx, oid, oid, oid); err != nil {
			return err
		}
		return tx.Set(newHead, encodeOID(oid))
	}
	last := pmemrt.ReadOOB(ls.H.Mapping, first.Off).Prev
	if err := ls.setLinks(tx, oid, last, first); err != nil {
		return err
	}
	if err := ls.setNext(tx, last, oid); err != nil {
		return err
	}
	return ls.setPrev(tx, first, oid)
}

// relinkAfterMove repoints every ring link that named oldOID at newOID,
// using hdr (already read from the copied-over new block) to find the
// neighbors and the list head to fix.
func (ls *Lists) relinkAfterMove(tx *lane.Tx, oldOID, newOID pmemrt.OID, hdr pmemrt.OOBHeader, headOff uint64) error {
	prev, next := hdr.Prev, hdr.Next
	if prev == oldOID {
		prev = newOID
	}
	if next == oldOID {
		next = newOID
	}
	if prev != hdr.Prev || next != hdr.Next {
		if err := ls.setLinks(tx, newOID, prev, next); err != nil {
			return err
		}
	}
	if prev != newOID {
		if err := ls.setNext(tx, prev, newOID); err != nil {
			return err
		}
	}
	if next != newOID {
		if err := ls.setPrev(tx, next, newOID); err != nil {
			return err
		}
	}
	first := pmemrt.ReadListHead(ls.H.Mapping, headOff)
	if first == oldOID {
		return tx.Set(headOff, encodeOID(newOID))
	}
	return nil
}

func linkPrevOffset(oid pmemrt.OID) uint64 { return oid.Off - pmemrt.OOBOffset + 16 }
func linkNextOffset(oid pmemrt.OID) uint64 { return oid.Off - pmemrt.OOBOffset + 32 }

func encodeOID(o pmemrt.OID) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], o.PoolUUIDLo)
	binary.LittleEndian.PutUint64(b[8:16], o.Off)
	return b
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func encodeU16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}
