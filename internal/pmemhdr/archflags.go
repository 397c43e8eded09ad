package pmemhdr

import (
	"encoding/binary"
	"runtime"
	"unsafe"
)

// machine ids are this implementation's own compact encoding of GOARCH,
// not the ELF e_machine constants; only cross-build consistency matters
// since these values never leave a pool created by this code.
const (
	machineUnknown = 0
	machineAMD64   = 1
	machineARM64   = 2
	machine386     = 3
	machineARM     = 4
	machineMIPS64  = 5
	machinePPC64   = 6
	machineS390X   = 7
	machineRISCV64 = 8
)

var bigEndianArches = map[string]bool{
	"mips":    true,
	"mips64":  true,
	"ppc64":   true,
	"s390x":   true,
	"sparc64": true,
}

func machineID() uint16 {
	switch runtime.GOARCH {
	case "amd64":
		return machineAMD64
	case "arm64":
		return machineARM64
	case "386":
		return machine386
	case "arm":
		return machineARM
	case "mips64", "mips64le":
		return machineMIPS64
	case "ppc64", "ppc64le":
		return machinePPC64
	case "s390x":
		return machineS390X
	case "riscv64":
		return machineRISCV64
	default:
		return machineUnknown
	}
}

// endiannessByte returns 1 for little-endian, 2 for big-endian, matching
// the "data" field of an ELF-style arch descriptor.
func endiannessByte() uint8 {
	if bigEndianArches[runtime.GOARCH] {
		return 2
	}
	return 1
}

// alignmentDescriptor packs the sizes and alignments this implementation
// cares about for cross-pool compatibility into a single word: the word,
// pointer, and int64 sizes, int64's alignment, and float64's size, one
// byte each.
func alignmentDescriptor() uint64 {
	var b [8]byte
	b[0] = byte(unsafe.Sizeof(int(0)))
	b[1] = byte(unsafe.Sizeof(uintptr(0)))
	b[2] = byte(unsafe.Sizeof(int64(0)))
	b[3] = byte(unsafe.Alignof(int64(0)))
	b[4] = byte(unsafe.Sizeof(float64(0)))
	return binary.LittleEndian.Uint64(b[:])
}

// CurrentArch captures the architecture flags of the running machine,
// normalized to little-endian the way it is stored on media.
func CurrentArch() ArchFlags {
	return ArchFlags{
		AlignDesc: alignmentDescriptor(),
		Machine:   machineID(),
		Data:      endiannessByte(),
	}
}
