package pool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/pmemobj/internal/pmemhdr"
)

func tempPoolPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.pool")
}

func TestCreateOpenCloseRoundTrip(t *testing.T) {
	path := tempPoolPath(t)

	p, err := Create(CreateParams{Path: path, Layout: "testlayout", Size: MinPoolSize})
	require.NoError(t, err)
	require.NotZero(t, p.Handle.UUIDLo)
	require.NoError(t, Close(p))

	p2, err := Open(path, "testlayout")
	require.NoError(t, err)
	require.Equal(t, p.Handle.UUIDLo, p2.Handle.UUIDLo)
	require.NoError(t, Close(p2))
}

func TestCreateRejectsUndersizedFile(t *testing.T) {
	path := tempPoolPath(t)
	_, err := Create(CreateParams{Path: path, Layout: "x", Size: 1024})
	require.Error(t, err)
}

func TestCreateRejectsTooLongLayout(t *testing.T) {
	path := tempPoolPath(t)
	layout := make([]byte, pmemhdr.MaxLayout)
	for i := range layout {
		layout[i] = 'a'
	}
	_, err := Create(CreateParams{Path: path, Layout: string(layout), Size: MinPoolSize})
	require.ErrorIs(t, err, pmemhdr.ErrLayoutTooLong)
}

func TestOpenRejectsMismatchedLayout(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "alpha", Size: MinPoolSize})
	require.NoError(t, err)
	require.NoError(t, Close(p))

	_, err = Open(path, "beta")
	require.Error(t, err)
}

func TestRunIDIsEvenAndAdvancesByTwoAcrossOpens(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "x", Size: MinPoolSize})
	require.NoError(t, err)
	r1 := pmemhdr.ReadRunID(p.Handle.Mapping)
	require.NotZero(t, r1)
	require.False(t, pmemhdr.IsOddRunID(r1))
	require.NoError(t, Close(p))

	p2, err := Open(path, "x")
	require.NoError(t, err)
	r2 := pmemhdr.ReadRunID(p2.Handle.Mapping)
	require.Equal(t, r1+2, r2)
	require.NoError(t, Close(p2))
}

func TestOpenRejectsCorruptedHeader(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "x", Size: MinPoolSize})
	require.NoError(t, err)
	require.NoError(t, Close(p))

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	var b [1]byte
	_, err = f.ReadAt(b[:], 100)
	require.NoError(t, err)
	b[0] ^= 0xFF
	_, err = f.WriteAt(b[:], 100)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path, "x")
	require.ErrorIs(t, err, pmemhdr.ErrBadChecksum)
}

func TestCheckReportsConsistentAfterCleanClose(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "x", Size: MinPoolSize})
	require.NoError(t, err)
	require.NoError(t, Close(p))

	ok, err := Check(path, "x")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckDetectsForcedOddRunID(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "x", Size: MinPoolSize})
	require.NoError(t, err)

	// force run_id odd, the marker Check treats as an open that
	// crashed before completing.
	runID := pmemhdr.ReadRunID(p.Handle.Mapping)
	if !pmemhdr.IsOddRunID(runID) {
		runID++
	}
	pmemhdr.WriteRunID(p.Handle.Mapping, runID)
	p.Handle.Ops.Persist(p.Handle.Mapping, pmemhdr.RunIDOffset, 8)
	require.NoError(t, Close(p))

	ok, err := Check(path, "x")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAllocationsSurviveCloseAndReopen(t *testing.T) {
	path := tempPoolPath(t)
	p, err := Create(CreateParams{Path: path, Layout: "x", Size: MinPoolSize})
	require.NoError(t, err)

	off, err := p.Heap.Alloc(128)
	require.NoError(t, err)
	copy(p.Handle.Mapping[off:off+12], []byte("reopen-me-ok"))
	p.Handle.Ops.Persist(p.Handle.Mapping, off, 12)
	require.NoError(t, Close(p))

	p2, err := Open(path, "x")
	require.NoError(t, err)
	require.Equal(t, "reopen-me-ok", string(p2.Handle.Mapping[off:off+12]))
	require.True(t, p2.Heap.Check())
	require.NoError(t, Close(p2))
}
