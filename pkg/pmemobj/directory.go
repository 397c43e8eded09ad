package pmemobj

import "github.com/fenilsonani/pmemobj/internal/directory"

// First implements first().
func (p *Pool) First(typeNum uint16) (OID, error) {
	if err := checkType(typeNum); err != nil {
		return Null, wrapErr(KindInvalidArgument, "first", err)
	}
	return directory.First(p.p.Handle, typeNum), nil
}

// Next implements next(): null in, null out. Calling it on an
// already-freed OID is undefined: the freed block's header is read as
// if the object were still live.
func (p *Pool) Next(oid OID) OID {
	if oid.IsNull() {
		return Null
	}
	return directory.Next(p.p.Handle, oid)
}
