package uvcodec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func packed(u16, v16 uint16) uint32 {
	return uint32(u16) | uint32(v16)<<16
}

func TestDecompressCoord_InsideRange(t *testing.T) {
	uv := DecompressCoord(packed(0, 32767))
	require.InDelta(t, 0.0, uv.U, 1e-6)
	require.InDelta(t, 1.0, uv.V, 1e-4)
}

func TestDecompressCoord_OutsideRange(t *testing.T) {
	// bit 15 set selects the [-256, 256] range; value 0 maps to -256.
	uv := DecompressCoord(packed(0x8000, 0x8000|16383))
	require.InDelta(t, -256.0, uv.U, 1e-6)
	require.InDelta(t, -0.003, uv.V, 0.01)
}

func TestParseCoords_SharedFlag(t *testing.T) {
	// One triangle, flags shared across its three vertices.
	faces := []uint32{0, 1, 2}

	buf := []byte{}
	for v := 0; v < 3; v++ {
		buf = append(buf, 1) // flag = shared
		four := make([]byte, 4)
		binary.LittleEndian.PutUint32(four, packed(16383, 16383))
		buf = append(buf, four...)
	}

	uvs, err := ParseCoords(buf, 3, faces)
	require.NoError(t, err)
	require.Len(t, uvs, 3)

	for _, uv := range uvs {
		require.InDelta(t, 0.5, uv.U, 0.01)
		require.InDelta(t, 0.5, uv.V, 0.01)
	}
}

func TestParseCoords_NoUVSentinel(t *testing.T) {
	faces := []uint32{0, 1, 2}

	buf := []byte{}
	for v := 0; v < 3; v++ {
		buf = append(buf, 1)
		four := make([]byte, 4)
		binary.LittleEndian.PutUint32(four, NoUVMarker)
		buf = append(buf, four...)
	}

	uvs, err := ParseCoords(buf, 3, faces)
	require.NoError(t, err)

	for _, uv := range uvs {
		require.Equal(t, UV{}, uv)
	}
}

func TestParseCoords_PerFaceFlag(t *testing.T) {
	// Two triangles sharing vertex 0, which carries 2 distinct UVs (flag=2).
	faces := []uint32{0, 1, 2, 0, 3, 4}

	buf := []byte{}
	buf = append(buf, 2) // vertex 0: flag = corner degree (2)
	for i := 0; i < 2; i++ {
		four := make([]byte, 4)
		binary.LittleEndian.PutUint32(four, packed(0, 0))
		buf = append(buf, four...)
	}
	for v := 1; v < 5; v++ {
		buf = append(buf, 1)
		four := make([]byte, 4)
		binary.LittleEndian.PutUint32(four, NoUVMarker)
		buf = append(buf, four...)
	}

	uvs, err := ParseCoords(buf, 5, faces)
	require.NoError(t, err)
	require.Len(t, uvs, 6)
}

func TestParseCoords_FlagMismatchErrors(t *testing.T) {
	faces := []uint32{0, 1, 2}

	buf := []byte{3} // vertex 0 has degree 1, flag says 3

	_, err := ParseCoords(buf, 3, faces)
	require.Error(t, err)
}

func TestParseCoords_TruncatedDataErrors(t *testing.T) {
	faces := []uint32{0, 1, 2}

	_, err := ParseCoords([]byte{}, 3, faces)
	require.Error(t, err)
}
