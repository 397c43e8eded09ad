// Package pmemobj is the public API surface of the transactional
// object store: pool lifecycle, allocation, the root object, directory
// cursors, and list re-exports, all built on the internal
// pool/heap/lane/list/registry layers.
package pmemobj

import (
	"os"

	"github.com/fenilsonani/pmemobj/internal/list"
	"github.com/fenilsonani/pmemobj/internal/pool"
)

// Pool is an open pmemobj pool.
type Pool struct {
	p     *pool.Pool
	lists *list.Lists
}

// CreateParams names a new pool's identity and geometry.
type CreateParams struct {
	Path   string
	Layout string
	Size   uint64
	Mode   os.FileMode
}

// Create implements create().
func Create(p CreateParams) (*Pool, error) {
	rp, err := pool.Create(pool.CreateParams{
		Path: p.Path, Layout: p.Layout, Size: p.Size, Mode: p.Mode,
	})
	if err != nil {
		return nil, wrapErr(kindFor(err), "create", err)
	}
	return wrap(rp), nil
}

// Open implements open().
func Open(path, layout string) (*Pool, error) {
	rp, err := pool.Open(path, layout)
	if err != nil {
		return nil, wrapErr(kindFor(err), "open", err)
	}
	return wrap(rp), nil
}

// Close implements close().
func (p *Pool) Close() error {
	return wrapErr(KindIOError, "close", pool.Close(p.p))
}

// Check implements check(): it is a package-level function, not a Pool
// method, since checking never requires (and must not require) the
// pool to already be open.
func Check(path, layout string) (consistent bool, err error) {
	ok, err := pool.Check(path, layout)
	if err != nil {
		return false, wrapErr(kindFor(err), "check", err)
	}
	return ok, nil
}

// UUIDLo returns the pool's registry key.
func (p *Pool) UUIDLo() uint64 { return p.p.Handle.UUIDLo }

func wrap(rp *pool.Pool) *Pool {
	return &Pool{p: rp, lists: list.New(rp.Handle, rp.Heap, rp.Lanes)}
}

// kindFor classifies an internal error for the public Error wrapper.
// Every internal package already returns a specific sentinel or wrapped
// error; this only picks the Kind bucket callers branch on.
func kindFor(err error) Kind {
	switch {
	case isInvalidImage(err):
		return KindInvalidImage
	case isAlreadyPresent(err):
		return KindAlreadyPresent
	case isInvalidArgument(err):
		return KindInvalidArgument
	default:
		return KindIOError
	}
}
