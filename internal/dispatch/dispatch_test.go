package dispatch

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSyncer struct{}

func (fakeSyncer) Fd() uintptr { return ^uintptr(0) }

func TestForSelectsFallbackByDefault(t *testing.T) {
	ops := For(false, fakeSyncer{})
	_, ok := ops.(*fallbackOps)
	require.True(t, ok)
}

func TestForSelectsPmemOpsWhenRequested(t *testing.T) {
	ops := For(true, fakeSyncer{})
	_, ok := ops.(*pmemOps)
	require.True(t, ok)
}

func TestMemcpyPersistWritesThenPersists(t *testing.T) {
	mapping := make([]byte, 4096)
	ops := For(false, fakeSyncer{})
	ops.MemcpyPersist(mapping, 100, []byte("hello"))
	require.Equal(t, "hello", string(mapping[100:105]))
}

func TestMemsetPersistFillsRange(t *testing.T) {
	mapping := make([]byte, 4096)
	ops := For(false, fakeSyncer{})
	ops.MemsetPersist(mapping, 10, 0xAB, 6)
	for _, b := range mapping[10:16] {
		require.Equal(t, byte(0xAB), b)
	}
	require.Equal(t, byte(0), mapping[16])
}

func TestDrainIsSafeWithoutFlush(t *testing.T) {
	ops := For(false, fakeSyncer{})
	require.NotPanics(t, func() { ops.Drain() })

	pops := For(true, fakeSyncer{})
	require.NotPanics(t, func() { pops.Drain() })
}

func TestFlushOfZeroLengthIsNoop(t *testing.T) {
	mapping := make([]byte, 4096)
	ops := For(false, fakeSyncer{})
	require.NotPanics(t, func() { ops.Flush(mapping, 0, 0) })
}

func TestPageAlignWidensToPageBoundariesAndClamps(t *testing.T) {
	lo, hi := pageAlign(100, 50, 4096)
	require.Equal(t, 0, lo)
	require.Equal(t, 4096, hi)

	lo, hi = pageAlign(4000, 200, 4096)
	require.Equal(t, 0, lo)
	require.Equal(t, 4096, hi)

	lo, hi = pageAlign(0, 1, 4096)
	require.Equal(t, 0, lo)
	require.Equal(t, 4096, hi)
}

func TestIsPmemDefaultsFalseWithoutEnvOverride(t *testing.T) {
	require.NoError(t, os.Unsetenv("PMEMOBJ_FORCE_PMEM"))
	require.False(t, IsPmem("/tmp/whatever", 4096))

	require.NoError(t, os.Setenv("PMEMOBJ_FORCE_PMEM", "1"))
	defer os.Unsetenv("PMEMOBJ_FORCE_PMEM")
	require.True(t, IsPmem("/tmp/whatever", 4096))
}
