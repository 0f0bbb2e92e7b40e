package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVertexOp_String(t *testing.T) {
	require.Equal(t, "ABSOLUTE", VertexAbsolute.String())
	require.Equal(t, "DELTA_SHORT", VertexDeltaShort.String())
	require.Equal(t, "DELTA_LONG", VertexDeltaLong.String())
	require.Equal(t, "REPEAT", VertexRepeat.String())
	require.Equal(t, "UNKNOWN", VertexOp(0xFF).String())
}

func TestFaceOp_String(t *testing.T) {
	require.Equal(t, "NEW_STRIP", FaceNewStrip.String())
	require.Equal(t, "EXTEND", FaceExtend.String())
	require.Equal(t, "RESTART", FaceRestart.String())
	require.Equal(t, "UNKNOWN", FaceOp(0xFF).String())
}

func TestTrace_Accumulates(t *testing.T) {
	var tr Trace

	tr.Vertex = append(tr.Vertex, VertexCommand{
		Op:       VertexAbsolute,
		Index:    0,
		Position: [3]float32{1, 2, 3},
	})
	tr.Face = append(tr.Face, FaceCommand{
		Op:      FaceNewStrip,
		Indices: []uint32{0, 1, 2},
		Emitted: [3]uint32{0, 1, 2},
		FaceIdx: 0,
		HasEmit: true,
	})

	require.Len(t, tr.Vertex, 1)
	require.Len(t, tr.Face, 1)
	require.Equal(t, VertexAbsolute, tr.Vertex[0].Op)
	require.True(t, tr.Face[0].HasEmit)
}
