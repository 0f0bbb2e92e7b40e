package cipher

import "hash/adler32"

// byteReversedAdler32 computes the Adler-32 checksum of data and
// returns it with its four bytes reversed relative to the canonical
// little-endian serialization — the exact transform the HPS producer
// applies to check_value (spec.md §4.7, §9). Replicating this quirk
// is required: the straightforward (non-reversed) Adler-32 will not
// match a legitimate file's check_value.
func byteReversedAdler32(data []byte) uint32 {
	sum := adler32.Checksum(data)

	return (sum&0xFF)<<24 | (sum&0xFF00)<<8 | (sum&0xFF0000)>>8 | (sum&0xFF000000)>>24
}

// VerifyIntegrity computes the byte-reversed Adler-32 of decrypted
// vertex data and compares it against the envelope's check_value. It
// returns the computed value alongside the match result so callers
// can build a structured IntegrityCheckFailedError.
func VerifyIntegrity(decryptedVertexData []byte, checkValue uint32) (computed uint32, ok bool) {
	computed = byteReversedAdler32(decryptedVertexData)
	return computed, computed == checkValue
}
