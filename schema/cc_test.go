package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dentalscan/hpsdecode/format"
	"github.com/dentalscan/hpsdecode/meshmodel"
)

func buildCCHeader(w *bitWriter, min, max [3]float32, bx, by, bz uint, flags uint32) {
	w.writeF32LE(min[0])
	w.writeF32LE(min[1])
	w.writeF32LE(min[2])
	w.writeF32LE(max[0])
	w.writeF32LE(max[1])
	w.writeF32LE(max[2])
	w.writeBits(uint32(bx), 5)
	w.writeBits(uint32(by), 5)
	w.writeBits(uint32(bz), 5)
	w.writeBits(flags, 8)
}

func buildCCNewStripFaceStream(deltas [3]uint32) []byte {
	w := &bitWriter{}
	w.writeBits(0, 2) // NEW_STRIP
	w.writeBits(deltas[0], 32)
	w.writeBits(deltas[1], 32)
	w.writeBits(deltas[2], 32)

	return w.bytes()
}

func TestDecodeCC_BasicTriangle(t *testing.T) {
	vw := &bitWriter{}
	buildCCHeader(vw, [3]float32{0, 0, 0}, [3]float32{1, 1, 1}, 8, 8, 8, 0)

	// vertex 0: ABSOLUTE (0,0,0)
	vw.writeBits(ccOpAbsolute, 2)
	vw.writeBits(0, 8)
	vw.writeBits(0, 8)
	vw.writeBits(0, 8)

	// vertex 1: ABSOLUTE (255,0,0) -> (1,0,0)
	vw.writeBits(ccOpAbsolute, 2)
	vw.writeBits(255, 8)
	vw.writeBits(0, 8)
	vw.writeBits(0, 8)

	// vertex 2: ABSOLUTE (0,255,0) -> (0,1,0)
	vw.writeBits(ccOpAbsolute, 2)
	vw.writeBits(0, 8)
	vw.writeBits(255, 8)
	vw.writeBits(0, 8)

	faceData := buildCCNewStripFaceStream([3]uint32{0, 0, 0})

	ctx := meshmodel.ParseContext{
		Schema:      format.SchemaCC,
		VertexData:  meshmodel.DataField{Plain: vw.bytes()},
		FaceData:    faceData,
		VertexCount: 3,
		FaceCount:   1,
	}

	result, err := DecodeCC(ctx)
	require.NoError(t, err)
	require.Len(t, result.Mesh.Vertices, 3)
	require.InDelta(t, 0.0, result.Mesh.Vertices[0][0], 1e-6)
	require.InDelta(t, 1.0, result.Mesh.Vertices[1][0], 1e-6)
	require.InDelta(t, 1.0, result.Mesh.Vertices[2][1], 1e-6)
	require.Equal(t, [][3]uint32{{0, 1, 2}}, result.Mesh.Faces)
}

func TestDecodeCC_RepeatOpcode(t *testing.T) {
	vw := &bitWriter{}
	buildCCHeader(vw, [3]float32{0, 0, 0}, [3]float32{1, 1, 1}, 8, 8, 8, 0)

	vw.writeBits(ccOpAbsolute, 2)
	vw.writeBits(100, 8)
	vw.writeBits(50, 8)
	vw.writeBits(25, 8)

	vw.writeBits(ccOpRepeat, 2)

	// triangle (0, 1, 0): reuses vertex 0 at the last corner.
	faceData := buildCCNewStripFaceStream([3]uint32{0, 0, 2})

	ctx := meshmodel.ParseContext{
		Schema:      format.SchemaCC,
		VertexData:  meshmodel.DataField{Plain: vw.bytes()},
		FaceData:    faceData,
		VertexCount: 2,
		FaceCount:   1,
	}

	result, err := DecodeCC(ctx)
	require.NoError(t, err)
	require.Equal(t, result.Mesh.Vertices[0], result.Mesh.Vertices[1])
}

func TestDecodeCC_DefaultVertexColor(t *testing.T) {
	vw := &bitWriter{}
	buildCCHeader(vw, [3]float32{0, 0, 0}, [3]float32{1, 1, 1}, 8, 8, 8, 0)

	for i := 0; i < 2; i++ {
		vw.writeBits(ccOpAbsolute, 2)
		vw.writeBits(0, 8)
		vw.writeBits(0, 8)
		vw.writeBits(0, 8)
	}

	faceData := buildCCNewStripFaceStream([3]uint32{0, 0, 2})
	color := uint32(0x00FF00)

	ctx := meshmodel.ParseContext{
		Schema:             format.SchemaCC,
		VertexData:         meshmodel.DataField{Plain: vw.bytes()},
		FaceData:           faceData,
		VertexCount:        2,
		FaceCount:          1,
		DefaultVertexColor: &color,
	}

	result, err := DecodeCC(ctx)
	require.NoError(t, err)
	require.Equal(t, [][3]uint8{{0, 255, 0}, {0, 255, 0}}, result.Mesh.VertexColors)
}
