package pmemobj

// ListInsertNew implements pmemobj_list_insert_new: the same primitive
// Alloc is built on, exposed directly for callers that need to choose
// the fresh payload's constructor themselves.
func (p *Pool) ListInsertNew(typeNum uint16, size uint64, ctor func(payload []byte)) (OID, error) {
	if err := checkType(typeNum); err != nil {
		return Null, wrapErr(KindInvalidArgument, "list_insert_new", err)
	}
	oid, err := p.lists.InsertNew(typeNum, size, ctor)
	if err != nil {
		return Null, wrapErr(KindOutOfMemory, "list_insert_new", err)
	}
	return oid, nil
}

// ListInsert implements pmemobj_list_insert: links an
// already-allocated object, one previously unlinked with ListRemove,
// into typeNum's list.
func (p *Pool) ListInsert(oid OID, typeNum uint16) error {
	if err := checkType(typeNum); err != nil {
		return wrapErr(KindInvalidArgument, "list_insert", err)
	}
	return wrapErr(KindIOError, "list_insert", p.lists.Insert(oid, typeNum))
}

// ListRemove implements pmemobj_list_remove: unlinks oid without
// freeing its storage back to the heap; ListInsert can re-link it
// later, or ListRemoveFree dispose of it.
func (p *Pool) ListRemove(oid OID) error {
	return wrapErr(KindIOError, "list_remove", p.lists.Remove(oid))
}

// ListRemoveFree implements pmemobj_list_remove_free.
func (p *Pool) ListRemoveFree(oid OID) error {
	return wrapErr(KindIOError, "list_remove_free", p.lists.RemoveFree(oid))
}

// ListMove implements pmemobj_list_move: relinks oid into newType's
// list, validating newType first.
func (p *Pool) ListMove(oid OID, newType uint16) error {
	if err := checkType(newType); err != nil {
		return wrapErr(KindInvalidArgument, "list_move", err)
	}
	return wrapErr(KindIOError, "list_move", p.lists.Move(oid, newType))
}
