package pmemobj

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/pmemobj/internal/pool"
)

func tempPoolPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "e2e.pool")
}

func TestCreateAllocCloseOpenDirectRoundTrip(t *testing.T) {
	path := tempPoolPath(t)

	p, err := Create(CreateParams{Path: path, Layout: "app", Size: pool.MinPoolSize})
	require.NoError(t, err)

	oid, err := p.Alloc(64, 3, func(payload []byte) {
		copy(payload, []byte("round-trip-payload"))
	})
	require.NoError(t, err)
	require.False(t, oid.IsNull())

	payload, err := Direct(oid)
	require.NoError(t, err)
	require.Equal(t, "round-trip-payload", string(payload[:18]))

	require.NoError(t, p.Close())

	p2, err := Open(path, "app")
	require.NoError(t, err)
	defer p2.Close()

	again, err := Direct(oid)
	require.NoError(t, err)
	require.Equal(t, "round-trip-payload", string(again[:18]))

	first, err := p2.First(3)
	require.NoError(t, err)
	require.Equal(t, oid, first)
}

func TestZallocZeroesPayload(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	oid, err := p.Zalloc(32, 0, nil)
	require.NoError(t, err)
	payload, err := Direct(oid)
	require.NoError(t, err)
	for _, b := range payload {
		require.Equal(t, byte(0), b)
	}
}

func TestStrdupStoresExactBytesNoTerminator(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	oid, err := p.Strdup("hello", 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, p.AllocUsableSize(oid), uint64(5))

	payload, err := Direct(oid)
	require.NoError(t, err)
	require.Equal(t, "hello", string(payload[:5]))
}

func TestReallocMovesBetweenTypesAndPreservesData(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	oid, err := p.Alloc(16, 1, func(payload []byte) {
		copy(payload, []byte("abc"))
	})
	require.NoError(t, err)

	newOID, err := p.Realloc(oid, 16, 2)
	require.NoError(t, err)

	payload, err := Direct(newOID)
	require.NoError(t, err)
	require.Equal(t, "abc", string(payload[:3]))

	first1, _ := p.First(1)
	require.True(t, first1.IsNull())
	first2, _ := p.First(2)
	require.Equal(t, newOID, first2)
}

func TestZreallocZeroesGrownSuffixAndKeepsPrefix(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	oid, err := p.Alloc(16, 0, func(payload []byte) {
		for i := range payload {
			payload[i] = 0xAA
		}
	})
	require.NoError(t, err)
	old := p.AllocUsableSize(oid)

	newOID, err := p.Zrealloc(oid, old+64, 0)
	require.NoError(t, err)

	payload, err := Direct(newOID)
	require.NoError(t, err)
	for _, b := range payload[:16] {
		require.Equal(t, byte(0xAA), b)
	}
	for _, b := range payload[old : old+64] {
		require.Equal(t, byte(0), b)
	}
}

func TestFreeUnlinksFromItsTypeList(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	oid, err := p.Alloc(16, 0, nil)
	require.NoError(t, err)
	p.Free(oid)

	first, err := p.First(0)
	require.NoError(t, err)
	require.True(t, first.IsNull())
}

func TestFreeOfNullIsNoop(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()
	require.NotPanics(t, func() { p.Free(Null) })
}

func TestAllocRejectsOutOfRangeType(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	_, err := p.Alloc(16, NTypes, nil)
	require.Error(t, err)
	var pe *Error
	require.True(t, errors.As(err, &pe))
	require.Equal(t, KindInvalidArgument, pe.Kind)
}

func TestRootIsLazyAndGrowOnly(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	require.Equal(t, uint64(0), p.RootSize())

	r1, err := p.Root(64)
	require.NoError(t, err)
	require.Equal(t, uint64(64), p.RootSize())

	r2, err := p.Root(32)
	require.NoError(t, err)
	require.Equal(t, r1, r2)
	require.Equal(t, uint64(64), p.RootSize())

	_, err = p.Root(4096)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), p.RootSize())
}

func TestCheckOnClosedPoolIsConsistent(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "app", Size: pool.MinPoolSize})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	ok, err := Check(path, "app")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestOpenRejectsBadLayout(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "alpha", Size: pool.MinPoolSize})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = Open(path, "bravo")
	require.Error(t, err)
	var pe *Error
	require.True(t, errors.As(err, &pe))
}

func TestDirectOnUnopenedPoolIsError(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "app", Size: pool.MinPoolSize})
	require.NoError(t, err)
	oid, err := p.Alloc(16, 0, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = Direct(oid)
	require.Error(t, err)
}

func TestListInsertNewRemoveMove(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	oid, err := p.ListInsertNew(5, 16, nil)
	require.NoError(t, err)

	require.NoError(t, p.ListMove(oid, 6))
	first5, _ := p.First(5)
	require.True(t, first5.IsNull())
	first6, _ := p.First(6)
	require.Equal(t, oid, first6)

	require.NoError(t, p.ListRemoveFree(oid))
	first6again, _ := p.First(6)
	require.True(t, first6again.IsNull())
}

func TestListRemoveKeepsStorageForReinsert(t *testing.T) {
	p, cleanup := mustCreate(t)
	defer cleanup()

	oid, err := p.ListInsertNew(4, 16, func(payload []byte) {
		copy(payload, []byte("keep"))
	})
	require.NoError(t, err)

	require.NoError(t, p.ListRemove(oid))
	first4, _ := p.First(4)
	require.True(t, first4.IsNull())

	require.NoError(t, p.ListInsert(oid, 8))
	first8, _ := p.First(8)
	require.Equal(t, oid, first8)

	payload, err := Direct(oid)
	require.NoError(t, err)
	require.Equal(t, "keep", string(payload[:4]))
}

func mustCreate(t *testing.T) (*Pool, func()) {
	t.Helper()
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "app", Size: pool.MinPoolSize})
	require.NoError(t, err)
	return p, func() { p.Close() }
}
