// Package hash provides the xxHash64 primitive the trace package uses
// to fingerprint a decode's opcode sequence.
package hash

import "github.com/cespare/xxhash/v2"

// Sum64 computes the xxHash64 of data.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}
