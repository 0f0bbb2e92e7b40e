package schema

import (
	"github.com/dentalscan/hpsdecode/format"
	"github.com/dentalscan/hpsdecode/meshmodel"
	"github.com/dentalscan/hpsdecode/uvcodec"
)

func unpackRGB(packed uint32) [3]uint8 {
	rgb := format.UnpackRGB(packed)
	return [3]uint8{rgb.R, rgb.G, rgb.B}
}

// decodeUV flattens faces to a corner-index buffer and runs the UV
// codec, converting its result to the flat per-corner shape Mesh.UV expects.
func decodeUV(field meshmodel.DataField, numVertices int, faces [][3]uint32) ([][2]float32, error) {
	corners := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		corners = append(corners, f[0], f[1], f[2])
	}

	uvs, err := uvcodec.ParseCoords(field.Plain, numVertices, corners)
	if err != nil {
		return nil, err
	}

	out := make([][2]float32, len(uvs))
	for i, uv := range uvs {
		out[i] = [2]float32{uv.U, uv.V}
	}

	return out, nil
}
