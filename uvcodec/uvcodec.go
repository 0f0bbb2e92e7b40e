// Package uvcodec decompresses the packed 32-bit texture coordinate
// format shared by the CA and CC schemas and assigns decompressed UVs
// to triangle corners according to each vertex's storage-mode flag
// byte (spec.md §4.3, §4.6).
package uvcodec

import (
	"github.com/dentalscan/hpsdecode/bitio"
	"github.com/dentalscan/hpsdecode/errs"
)

const (
	outsideRangeBit uint32 = 0x8000
	coordMask       uint32 = 0x7FFF
	scaleInside            = 1.0 / 32767.0
	scaleOutside           = 512.0 / 32767.0

	// NoUVMarker is the sentinel packed value meaning "no UV at this corner".
	NoUVMarker uint32 = 0xFFFFFFFF

	// flagShared means a single UV is shared by every corner touching the vertex.
	flagShared = 1
	// flagPerFace means one UV follows per connected corner, in ascending face order.
	flagPerFace = 0xFF
)

// UV is a decompressed texture coordinate.
type UV struct {
	U, V float32
}

// DecompressCoord unpacks a 32-bit compressed coordinate into its (u, v)
// components. Each 16-bit half encodes a range flag in bit 15 (0 means
// [0, 1], 1 means [-256, 256]) and the value in the low 15 bits.
func DecompressCoord(compressed uint32) UV {
	return UV{
		U: decompressComponent(uint32(uint16(compressed))),
		V: decompressComponent(uint32(uint16(compressed >> 16))),
	}
}

func decompressComponent(bits uint32) float32 {
	value := float32(bits & coordMask)
	if bits&outsideRangeBit != 0 {
		return value*scaleOutside - 256.0
	}

	return value * scaleInside
}

// ParseCoords reads one flag byte plus its associated packed UV(s) per
// vertex from data and assigns them to the corners of faces (a flat,
// face-major index buffer: faces[3*f+c] is the vertex index at corner c
// of face f). It returns a per-corner UV slice of length
// len(faces), ordered to match faces.
//
// The flag byte selects the storage mode for each vertex:
//   - 1: a single UV shared by every corner touching the vertex.
//   - 0xFF: one UV per connected corner, consumed in ascending face-index order.
//   - any other value: must equal the vertex's corner degree exactly, then
//     behaves like 0xFF.
func ParseCoords(data []byte, numVertices int, faces []uint32) ([]UV, error) {
	if len(faces)%3 != 0 {
		return nil, &errs.InvalidArgumentError{Detail: "uvcodec: faces length must be a multiple of 3"}
	}

	numFaces := len(faces) / 3

	vertexCorners := make([][]int, numVertices)
	for corner, vertexIdx := range faces {
		if int(vertexIdx) >= numVertices {
			return nil, &errs.InvalidIndexError{
				FaceIndex: corner / 3,
				Corner:    corner % 3,
				Value:     vertexIdx,
				Max:       numVertices - 1,
			}
		}

		vertexCorners[vertexIdx] = append(vertexCorners[vertexIdx], corner)
	}

	uvs := make([]UV, numFaces*3)

	r := bitio.NewReader(data)

	for vertexIdx := 0; vertexIdx < numVertices; vertexIdx++ {
		flag, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		corners := vertexCorners[vertexIdx]

		switch flag {
		case flagShared:
			compressed, err := r.ReadU32LE()
			if err != nil {
				return nil, err
			}

			if compressed != NoUVMarker {
				uv := DecompressCoord(compressed)
				for _, corner := range corners {
					uvs[corner] = uv
				}
			}
		default:
			if flag != flagPerFace && int(flag) != len(corners) {
				return nil, &errs.UvCountMismatchError{
					VertexIndex: vertexIdx,
					Flag:        flag,
					Degree:      len(corners),
				}
			}

			ordered := sortByFaceIndex(corners)
			for _, corner := range ordered {
				compressed, err := r.ReadU32LE()
				if err != nil {
					return nil, err
				}

				if compressed != NoUVMarker {
					uvs[corner] = DecompressCoord(compressed)
				}
			}
		}
	}

	return uvs, nil
}

// sortByFaceIndex returns corners ordered by ascending face index
// (corner / 3), stable for corners within the same face.
func sortByFaceIndex(corners []int) []int {
	ordered := make([]int, len(corners))
	copy(ordered, corners)

	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1]/3 > ordered[j]/3; j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	return ordered
}
