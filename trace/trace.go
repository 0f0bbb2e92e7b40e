// Package trace fingerprints a decode's opcode Trace, so two decodes
// of the same input can be compared for equality without diffing the
// full opcode sequence (spec.md §4.4, §9). Adapted from mebo's use of
// xxHash64 to fingerprint metric-name strings into a compact
// comparison key (internal/hash/id.go).
package trace

import (
	"encoding/binary"
	"math"

	"github.com/dentalscan/hpsdecode/command"
	"github.com/dentalscan/hpsdecode/internal/hash"
)

// Fingerprint returns a deterministic xxHash64 of t's opcode sequence.
// Two Traces produced from byte-identical input decode the same way
// and therefore fingerprint identically.
func Fingerprint(t command.Trace) uint64 {
	buf := make([]byte, 0, 16*(len(t.Vertex)+len(t.Face))+8)

	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(t.Vertex)))
	buf = append(buf, scratch[:]...)

	for _, vc := range t.Vertex {
		buf = append(buf, byte(vc.Op))
		buf = appendUint32(buf, uint32(vc.Index))
		buf = appendFloat32(buf, vc.Position[0])
		buf = appendFloat32(buf, vc.Position[1])
		buf = appendFloat32(buf, vc.Position[2])
	}

	binary.LittleEndian.PutUint32(scratch[:], uint32(len(t.Face)))
	buf = append(buf, scratch[:]...)

	for _, fc := range t.Face {
		buf = append(buf, byte(fc.Op))
		buf = appendUint32(buf, uint32(len(fc.Indices)))
		for _, idx := range fc.Indices {
			buf = appendUint32(buf, idx)
		}

		if fc.HasEmit {
			buf = append(buf, 1)
			buf = appendUint32(buf, fc.Emitted[0])
			buf = appendUint32(buf, fc.Emitted[1])
			buf = appendUint32(buf, fc.Emitted[2])
		} else {
			buf = append(buf, 0)
		}
	}

	return hash.Sum64(buf)
}

func appendUint32(buf []byte, v uint32) []byte {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)

	return append(buf, scratch[:]...)
}

func appendFloat32(buf []byte, f float32) []byte {
	return appendUint32(buf, math.Float32bits(f))
}
