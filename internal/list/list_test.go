package list

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/pmemobj/internal/dispatch"
	"github.com/fenilsonani/pmemobj/internal/heap"
	"github.com/fenilsonani/pmemobj/internal/lane"
	"github.com/fenilsonani/pmemobj/internal/pmemrt"
)

type fakeSyncer struct{}

func (fakeSyncer) Fd() uintptr { return ^uintptr(0) }

func newTestLists(t *testing.T) *Lists {
	t.Helper()
	const nLanes = 8
	lanesSize := uint64(nLanes) * lane.Size
	objStoreSize := pmemrt.ObjStoreSize
	heapSize := uint64(256 << 10)

	mapping := make([]byte, lanesSize+objStoreSize+heapSize)
	h := &pmemrt.Handle{
		Mapping:        mapping,
		ObjStoreOffset: lanesSize,
		HeapOffset:     lanesSize + objStoreSize,
		HeapSize:       heapSize,
		LanesOffset:    0,
		NLanes:         nLanes,
		LaneSize:       lane.Size,
		Ops:            dispatch.For(false, fakeSyncer{}),
	}

	lanes, err := lane.Boot(h)
	require.NoError(t, err)
	hp, err := heap.Boot(h)
	require.NoError(t, err)
	h.Heap = hp

	return New(h, hp, lanes)
}

func TestInsertNewSingleElementSelfLoops(t *testing.T) {
	ls := newTestLists(t)
	oid, err := ls.InsertNew(3, 16, nil)
	require.NoError(t, err)

	hdr := pmemrt.ReadOOB(ls.H.Mapping, oid.Off)
	require.Equal(t, pmemrt.OpAlloc, hdr.InternalType)
	require.Equal(t, uint16(3), hdr.UserType)
	require.Equal(t, oid, hdr.Prev)
	require.Equal(t, oid, hdr.Next)

	first := pmemrt.ReadListHead(ls.H.Mapping, ls.HeadOffset(3))
	require.Equal(t, oid, first)
}

func TestInsertNewRunsCtorBeforeLinking(t *testing.T) {
	ls := newTestLists(t)
	var seen []byte
	oid, err := ls.InsertNew(0, 8, func(payload []byte) {
		copy(payload, []byte("abcdefgh"))
		seen = append([]byte(nil), payload...)
	})
	require.NoError(t, err)
	require.Equal(t, "abcdefgh", string(seen))
	require.Equal(t, "abcdefgh", string(ls.H.Mapping[oid.Off:oid.Off+8]))
}

func TestInsertNewAppendsToTail(t *testing.T) {
	ls := newTestLists(t)
	a, err := ls.InsertNew(1, 16, nil)
	require.NoError(t, err)
	b, err := ls.InsertNew(1, 16, nil)
	require.NoError(t, err)
	c, err := ls.InsertNew(1, 16, nil)
	require.NoError(t, err)

	first := pmemrt.ReadListHead(ls.H.Mapping, ls.HeadOffset(1))
	require.Equal(t, a, first)

	hdrA := pmemrt.ReadOOB(ls.H.Mapping, a.Off)
	require.Equal(t, b, hdrA.Next)
	require.Equal(t, c, hdrA.Prev)

	hdrB := pmemrt.ReadOOB(ls.H.Mapping, b.Off)
	require.Equal(t, c, hdrB.Next)
	require.Equal(t, a, hdrB.Prev)

	hdrC := pmemrt.ReadOOB(ls.H.Mapping, c.Off)
	require.Equal(t, a, hdrC.Next)
	require.Equal(t, b, hdrC.Prev)
}

func TestRemoveFreeSoleElementEmptiesList(t *testing.T) {
	ls := newTestLists(t)
	oid, err := ls.InsertNew(2, 16, nil)
	require.NoError(t, err)

	require.NoError(t, ls.RemoveFree(oid))
	first := pmemrt.ReadListHead(ls.H.Mapping, ls.HeadOffset(2))
	require.True(t, first.IsNull())
}

func TestRemoveFreeMiddleElementPreservesRing(t *testing.T) {
	ls := newTestLists(t)
	a, _ := ls.InsertNew(4, 16, nil)
	b, _ := ls.InsertNew(4, 16, nil)
	c, _ := ls.InsertNew(4, 16, nil)

	require.NoError(t, ls.RemoveFree(b))

	hdrA := pmemrt.ReadOOB(ls.H.Mapping, a.Off)
	require.Equal(t, c, hdrA.Next)
	require.Equal(t, c, hdrA.Prev)

	hdrC := pmemrt.ReadOOB(ls.H.Mapping, c.Off)
	require.Equal(t, a, hdrC.Next)
	require.Equal(t, a, hdrC.Prev)
}

func TestRemoveFreeOnNullIsNoop(t *testing.T) {
	ls := newTestLists(t)
	require.NoError(t, ls.RemoveFree(pmemrt.Null))
}

func TestRemoveThenInsertRelinksWithoutFreeing(t *testing.T) {
	ls := newTestLists(t)
	a, _ := ls.InsertNew(3, 16, nil)
	b, _ := ls.InsertNew(3, 16, nil)

	require.NoError(t, ls.Remove(b))
	hdrA := pmemrt.ReadOOB(ls.H.Mapping, a.Off)
	require.Equal(t, a, hdrA.Next)
	require.Equal(t, a, hdrA.Prev)

	// the storage was not freed, so the payload is still addressable
	// and the object can be linked into another type's list.
	require.NoError(t, ls.Insert(b, 7))
	first := pmemrt.ReadListHead(ls.H.Mapping, ls.HeadOffset(7))
	require.Equal(t, b, first)
	hdrB := pmemrt.ReadOOB(ls.H.Mapping, b.Off)
	require.Equal(t, uint16(7), hdrB.UserType)
	require.Equal(t, b, hdrB.Next)
	require.Equal(t, b, hdrB.Prev)
}

func TestMoveRelinksBetweenTypes(t *testing.T) {
	ls := newTestLists(t)
	oid, err := ls.InsertNew(1, 16, nil)
	require.NoError(t, err)

	require.NoError(t, ls.Move(oid, 9))

	require.True(t, pmemrt.ReadListHead(ls.H.Mapping, ls.HeadOffset(1)).IsNull())
	first := pmemrt.ReadListHead(ls.H.Mapping, ls.HeadOffset(9))
	require.Equal(t, oid, first)

	hdr := pmemrt.ReadOOB(ls.H.Mapping, oid.Off)
	require.Equal(t, uint16(9), hdr.UserType)
}

func TestReallocStaysInPlaceWhenRoomExists(t *testing.T) {
	ls := newTestLists(t)
	oid, err := ls.InsertNew(0, 256, nil)
	require.NoError(t, err)

	newOID, err := ls.Realloc(oid, 16)
	require.NoError(t, err)
	require.Equal(t, oid, newOID)
}

func TestReallocMoveFixesUpNeighborLinks(t *testing.T) {
	ls := newTestLists(t)
	a, _ := ls.InsertNew(5, 16, nil)
	b, _ := ls.InsertNew(5, 16, nil)

	// force b to move to a larger block
	newB, err := ls.Realloc(b, 4096)
	require.NoError(t, err)

	hdrA := pmemrt.ReadOOB(ls.H.Mapping, a.Off)
	require.Equal(t, newB, hdrA.Next)
	require.Equal(t, newB, hdrA.Prev)

	hdrB := pmemrt.ReadOOB(ls.H.Mapping, newB.Off)
	require.Equal(t, a, hdrB.Next)
	require.Equal(t, a, hdrB.Prev)
	require.Equal(t, uint64(4096), hdrB.Size)
}
