package dispatch

import "os"

// IsPmem reports whether the size bytes mapped at a pool's base address
// sit on a medium that offers cache-line flush + store-drain durability
// (a DAX-mounted file on real persistent memory) rather than ordinary
// page-cache-backed storage.
//
// Real detection requires walking /proc/self/smaps for the VM_MIXEDMAP
// flag pmem mappings carry, or asking ndctl/libpmem; neither is
// available from portable Go without cgo, so this always reports false
// and every pool uses the page-sync fallback. Tests that want to
// exercise the pmem vtable set PMEMOBJ_FORCE_PMEM=1.
func IsPmem(path string, size uint64) bool {
	return os.Getenv("PMEMOBJ_FORCE_PMEM") == "1"
}
