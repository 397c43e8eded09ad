package pmemhdr

import "encoding/binary"

// RunIDOffset is the fixed byte offset of the mutable run_id counter.
const RunIDOffset = DescriptorOffset + DescriptorRegionSize

// RunIDRegionSize reserves a full page for run_id so that LanesOffset
// lands on a round boundary; only the first 8 bytes are meaningful.
const RunIDRegionSize = 4096

// LanesOffset is the fixed byte offset where the lane region begins.
const LanesOffset = RunIDOffset + RunIDRegionSize

// ReadRunID reads the current run_id from b.
func ReadRunID(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b[RunIDOffset:])
}

// WriteRunID stores id at its fixed offset in b, without persisting it;
// callers durably commit through the pool's Ops.Persist.
func WriteRunID(b []byte, id uint64) {
	binary.LittleEndian.PutUint64(b[RunIDOffset:], id)
}

// NextRunID applies the common-open increment rule: add 2, and if that
// wraps to 0, add 2 again so run_id never lands on zero or odd.
func NextRunID(current uint64) uint64 {
	next := current + 2
	if next == 0 {
		next += 2
	}
	return next
}

// IsOddRunID reports whether id marks a crashed-mid-open pool.
func IsOddRunID(id uint64) bool {
	return id%2 == 1
}
