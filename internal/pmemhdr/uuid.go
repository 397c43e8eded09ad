package pmemhdr

import "encoding/binary"

// UUIDLoFromUUID derives the registry key from a 16-byte pool UUID:
// XOR the low 8 bytes with the high 8 bytes, then
// byte-reverse the result into a u64. Both halves contribute, so two
// pools differing in either half get distinct keys.
func UUIDLoFromUUID(uuid [16]byte) uint64 {
	lo := binary.LittleEndian.Uint64(uuid[0:8])
	hi := binary.LittleEndian.Uint64(uuid[8:16])
	x := lo ^ hi

	var rev [8]byte
	binary.LittleEndian.PutUint64(rev[:], x)
	for i, j := 0, 7; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return binary.LittleEndian.Uint64(rev[:])
}
