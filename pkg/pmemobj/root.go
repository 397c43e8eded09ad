package pmemobj

import (
	"encoding/binary"

	"github.com/fenilsonani/pmemobj/internal/directory"
	"github.com/fenilsonani/pmemobj/internal/pmemrt"
)

// RootSize implements root_size(): 0 if the root list is empty, else
// the largest size Root has been called with.
func (p *Pool) RootSize() uint64 {
	first := directory.First(p.p.Handle, pmemrt.UserTypeRoot)
	if first.IsNull() {
		return 0
	}
	return pmemrt.ReadOOB(p.p.Handle.Mapping, first.Off).Size
}

// Root implements root(): lazily creates the root object on first
// call, grows it if size exceeds the current root size (the grown root
// may live at a new OID), and otherwise returns it untouched. Shrinking is never requested; a
// smaller size than the current one is a no-op.
func (p *Pool) Root(size uint64) (OID, error) {
	h := p.p.Handle
	h.RootMu.Lock()
	defer h.RootMu.Unlock()

	first := directory.First(h, pmemrt.UserTypeRoot)
	if first.IsNull() {
		oid, err := p.lists.InsertNew(pmemrt.UserTypeRoot, size, nil)
		if err != nil {
			return Null, wrapErr(KindOutOfMemory, "root", err)
		}
		if err := p.setRootSize(oid, size); err != nil {
			return Null, wrapErr(KindIOError, "root", err)
		}
		return oid, nil
	}

	current := pmemrt.ReadOOB(h.Mapping, first.Off).Size
	if size <= current {
		return first, nil
	}

	newOID, err := p.lists.Realloc(first, size)
	if err != nil {
		return Null, wrapErr(KindOutOfMemory, "root", err)
	}
	if err := p.setRootSize(newOID, size); err != nil {
		return Null, wrapErr(KindIOError, "root", err)
	}
	return newOID, nil
}

func (p *Pool) setRootSize(oid OID, size uint64) error {
	tx := p.p.Lanes.Begin()
	sizeOff := oid.Off - pmemrt.OOBOffset + 8
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, size)
	if err := tx.Set(sizeOff, buf); err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}
