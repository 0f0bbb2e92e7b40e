package schema

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/format"
	"github.com/dentalscan/hpsdecode/meshmodel"
)

// caFaceDeltaWidths mirrors caFaceWidthBits in ca.go: opcode 00 needs
// no extra bits (delta implicitly 0), 01/10/11 carry a 2/4/8-bit delta.
var caFaceDeltaWidths = [4]uint{0, 2, 4, 8}

func buildCAFaceStream(t *testing.T, tris [][3]uint32) []byte {
	t.Helper()

	w := &bitWriter{}

	var hwm int64 = -1
	for _, tri := range tris {
		for _, v := range tri {
			delta := uint32(hwm + 1 - int64(v))

			prefix := uint32(0)
			for prefix < 3 && delta >= (1<<caFaceDeltaWidths[prefix]) {
				prefix++
			}

			w.writeBits(prefix, 2)
			if caFaceDeltaWidths[prefix] > 0 {
				w.writeBits(delta, caFaceDeltaWidths[prefix])
			}

			if int64(v) > hwm {
				hwm = int64(v)
			}
		}
	}

	return w.bytes()
}

func TestDecodeCA_MinimalTriangle(t *testing.T) {
	vw := &bitWriter{}
	vw.writeF32LE(0)
	vw.writeF32LE(0)
	vw.writeF32LE(0)
	vw.writeF32LE(1)
	vw.writeF32LE(0)
	vw.writeF32LE(0)
	vw.writeF32LE(0)
	vw.writeF32LE(1)
	vw.writeF32LE(0)

	faceData := buildCAFaceStream(t, [][3]uint32{{0, 1, 2}})

	ctx := meshmodel.ParseContext{
		Schema:      format.SchemaCA,
		VertexData:  meshmodel.DataField{Plain: vw.bytes()},
		FaceData:    faceData,
		VertexCount: 3,
		FaceCount:   1,
	}

	result, err := DecodeCA(ctx)
	require.NoError(t, err)
	require.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, result.Mesh.Vertices)
	require.Equal(t, [][3]uint32{{0, 1, 2}}, result.Mesh.Faces)
}

// TestDecodeCA_FaceBlobLiteralSeedVector decodes the literal face blob
// spec.md §8 item 1 gives for the "CA minimal triangle" seed test:
// base64 "BA==" (a single byte, 0x04), vertex_count=3, expecting
// faces=[(0,1,2)]. Unlike TestDecodeCA_MinimalTriangle, this feeds the
// raw byte straight from the spec rather than going through
// buildCAFaceStream's own encoder, so it actually exercises the
// decoder's bit layout instead of just its self-consistency.
func TestDecodeCA_FaceBlobLiteralSeedVector(t *testing.T) {
	faceData, err := base64.StdEncoding.DecodeString("BA==")
	require.NoError(t, err)
	require.Equal(t, []byte{0x04}, faceData)

	faces, _, err := decodeCAFaces(faceData, 1, 3)
	require.NoError(t, err)
	require.Equal(t, [][3]uint32{{0, 1, 2}}, faces)
}

func TestDecodeCA_DefaultFaceColor(t *testing.T) {
	vw := &bitWriter{}
	for i := 0; i < 9; i++ {
		vw.writeF32LE(0)
	}

	faceData := buildCAFaceStream(t, [][3]uint32{{0, 1, 2}})
	color := uint32(0xFF8040)

	ctx := meshmodel.ParseContext{
		Schema:           format.SchemaCA,
		VertexData:       meshmodel.DataField{Plain: vw.bytes()},
		FaceData:         faceData,
		VertexCount:      3,
		FaceCount:        1,
		DefaultFaceColor: &color,
	}

	result, err := DecodeCA(ctx)
	require.NoError(t, err)
	require.Equal(t, [][3]uint8{{255, 128, 64}}, result.Mesh.FaceColors)
}

func TestDecodeCA_VertexCountMismatch(t *testing.T) {
	vw := &bitWriter{}
	vw.writeF32LE(0)
	vw.writeF32LE(0)
	vw.writeF32LE(0)

	ctx := meshmodel.ParseContext{
		Schema:      format.SchemaCA,
		VertexData:  meshmodel.DataField{Plain: vw.bytes()},
		FaceData:    []byte{},
		VertexCount: 5,
		FaceCount:   0,
	}

	_, err := DecodeCA(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrCountMismatch)
}
