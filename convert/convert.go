// Package convert derives per-vertex colors from a decoded Mesh's
// per-face colors or its first texture image, for callers that want a
// uniform vertex-color channel regardless of how the source file
// stored color (spec.md §6).
package convert

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dentalscan/hpsdecode/meshmodel"
)

// defaultGray is the color assigned to vertices untouched by any face
// or corner sample.
var defaultGray = [3]uint8{128, 128, 128}

// FaceColorsToVertexColors averages each vertex's incident face colors
// with equal weight per face (an area-independent mean, not a
// face-area-weighted one), per spec.md §6. Vertices with no incident
// faces get defaultGray.
func FaceColorsToVertexColors(mesh meshmodel.Mesh) [][3]uint8 {
	sums := make([][3]int, mesh.NumVertices())
	counts := make([]int, mesh.NumVertices())

	for faceIdx, face := range mesh.Faces {
		color := mesh.FaceColors[faceIdx]

		for _, v := range face {
			sums[v][0] += int(color[0])
			sums[v][1] += int(color[1])
			sums[v][2] += int(color[2])
			counts[v]++
		}
	}

	out := make([][3]uint8, mesh.NumVertices())
	for v := range out {
		if counts[v] == 0 {
			out[v] = defaultGray
			continue
		}

		out[v] = [3]uint8{
			uint8(sums[v][0] / counts[v]),
			uint8(sums[v][1] / counts[v]),
			uint8(sums[v][2] / counts[v]),
		}
	}

	return out
}

// TextureToVertexColors decodes mesh's first texture image and samples
// it at each corner's UV (nearest-neighbor), averaging per shared
// vertex. Texture bytes are treated as BGR-ordered per spec.md §9 and
// swapped to RGB before averaging. Vertices touched by no corner get
// defaultGray.
func TextureToVertexColors(mesh meshmodel.Mesh) ([][3]uint8, error) {
	img, _, err := image.Decode(bytes.NewReader(mesh.TextureImages[0]))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	sums := make([][3]int, mesh.NumVertices())
	counts := make([]int, mesh.NumVertices())

	for faceIdx, face := range mesh.Faces {
		for corner, v := range face {
			uv := mesh.UV[faceIdx*3+corner]

			px := sampleNearestBGRAsRGB(img, width, height, uv[0], uv[1])

			sums[v][0] += int(px[0])
			sums[v][1] += int(px[1])
			sums[v][2] += int(px[2])
			counts[v]++
		}
	}

	out := make([][3]uint8, mesh.NumVertices())
	for v := range out {
		if counts[v] == 0 {
			out[v] = defaultGray
			continue
		}

		out[v] = [3]uint8{
			uint8(sums[v][0] / counts[v]),
			uint8(sums[v][1] / counts[v]),
			uint8(sums[v][2] / counts[v]),
		}
	}

	return out, nil
}

func sampleNearestBGRAsRGB(img image.Image, width, height int, u, v float32) [3]uint8 {
	bounds := img.Bounds()

	x := bounds.Min.X + clampPixel(int(u*float32(width)), width)
	// HPS textures are stored with a flipped V axis relative to image rows.
	y := bounds.Min.Y + clampPixel(int((1-v)*float32(height)), height)

	// image.Image.At decodes the JPEG/PNG bytes into standard RGBA
	// with no notion of HPS's channel convention. HPS texture blobs
	// are themselves BGR-ordered (spec.md §9), so the R and B channels
	// still need swapping here, same as export/obj.py's explicit
	// Image.merge("RGB", (b, g, r)) before writing an OBJ's material.
	r, g, b, _ := img.At(x, y).RGBA()

	return [3]uint8{uint8(b >> 8), uint8(g >> 8), uint8(r >> 8)}
}

func clampPixel(v, max int) int {
	if v < 0 {
		return 0
	}

	if v >= max {
		return max - 1
	}

	return v
}
