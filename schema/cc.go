package schema

import (
	"github.com/dentalscan/hpsdecode/bitio"
	"github.com/dentalscan/hpsdecode/command"
	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/meshmodel"
)

// The ccOp* values are the 2-bit opcode prefixes selecting a vertex-stream command.
const (
	ccOpAbsolute uint32 = iota
	ccOpDeltaShort
	ccOpDeltaLong
	ccOpRepeat
)

// Reduction constants for DELTA_SHORT/DELTA_LONG per-axis bit widths,
// applied as width = b - k with a floor of 1 bit. Not recoverable from
// the retrieved corpus (schemas/cc.py was not present in
// original_source/); decided so DELTA_SHORT stays cheap for
// neighbor-to-neighbor motion while DELTA_LONG remains strictly
// narrower than ABSOLUTE. Documented in DESIGN.md.
const (
	deltaShortReduction = 4
	deltaLongReduction  = 2
)

const (
	ccFlagHasVertexColors uint32 = 1 << 0
	ccFlagHasVertexUV     uint32 = 1 << 1
	ccFlagHasFaceColors   uint32 = 1 << 2
)

type ccHeader struct {
	min, max             [3]float32
	bx, by, bz           uint
	hasVertexColors      bool
	hasVertexUV          bool
	hasFaceColors        bool
}

func reducedWidth(b uint, k uint) uint {
	if b <= k {
		return 1
	}

	return b - k
}

// DecodeCC decodes the CC (delta-quantized) schema (spec.md §4.6).
func DecodeCC(ctx meshmodel.ParseContext) (meshmodel.ParseResult, error) {
	var trace command.Trace

	r := bitio.NewReader(ctx.VertexData.Plain)

	header, err := readCCHeader(r)
	if err != nil {
		return meshmodel.ParseResult{}, err
	}

	vertices, vertexCmds, err := decodeCCVertices(r, header, ctx.VertexCount)
	if err != nil {
		return meshmodel.ParseResult{}, err
	}

	trace.Vertex = vertexCmds

	if len(vertices) != ctx.VertexCount {
		return meshmodel.ParseResult{}, &errs.CountMismatchError{
			Kind: errs.CountVertex, Expected: ctx.VertexCount, Actual: len(vertices),
		}
	}

	var vertexColors [][3]uint8
	if header.hasVertexColors {
		vertexColors, err = decodeCCColorStream(r, ctx.VertexCount)
		if err != nil {
			return meshmodel.ParseResult{}, err
		}
	} else if ctx.DefaultVertexColor != nil {
		rgb := unpackRGB(*ctx.DefaultVertexColor)
		vertexColors = make([][3]uint8, ctx.VertexCount)
		for i := range vertexColors {
			vertexColors[i] = rgb
		}
	}

	faceReader := bitio.NewReader(ctx.FaceData)

	faces, faceCmds, err := decodeCCFaces(faceReader, ctx.FaceCount, ctx.VertexCount)
	if err != nil {
		return meshmodel.ParseResult{}, err
	}

	trace.Face = faceCmds

	if len(faces) != ctx.FaceCount {
		return meshmodel.ParseResult{}, &errs.CountMismatchError{
			Kind: errs.CountFace, Expected: ctx.FaceCount, Actual: len(faces),
		}
	}

	mesh := meshmodel.Mesh{
		Vertices:     vertices,
		Faces:        faces,
		VertexColors: vertexColors,
	}

	if header.hasFaceColors {
		colors, err := decodeCCFaceColorRLE(faceReader, ctx.FaceCount)
		if err != nil {
			return meshmodel.ParseResult{}, err
		}

		mesh.FaceColors = colors
	} else if ctx.DefaultFaceColor != nil {
		rgb := unpackRGB(*ctx.DefaultFaceColor)
		mesh.FaceColors = make([][3]uint8, ctx.FaceCount)
		for i := range mesh.FaceColors {
			mesh.FaceColors[i] = rgb
		}
	}

	if header.hasVertexUV && ctx.TextureCoordsData != nil {
		uv, err := decodeUV(*ctx.TextureCoordsData, ctx.VertexCount, faces)
		if err != nil {
			return meshmodel.ParseResult{}, err
		}

		mesh.UV = uv
	}

	return meshmodel.ParseResult{Mesh: mesh, Trace: trace}, nil
}

func readCCHeader(r *bitio.Reader) (ccHeader, error) {
	var h ccHeader

	var err error
	if h.min[0], err = r.ReadF32LE(); err != nil {
		return h, err
	}

	if h.min[1], err = r.ReadF32LE(); err != nil {
		return h, err
	}

	if h.min[2], err = r.ReadF32LE(); err != nil {
		return h, err
	}

	if h.max[0], err = r.ReadF32LE(); err != nil {
		return h, err
	}

	if h.max[1], err = r.ReadF32LE(); err != nil {
		return h, err
	}

	if h.max[2], err = r.ReadF32LE(); err != nil {
		return h, err
	}

	bx, err := r.ReadBits(5)
	if err != nil {
		return h, err
	}

	by, err := r.ReadBits(5)
	if err != nil {
		return h, err
	}

	bz, err := r.ReadBits(5)
	if err != nil {
		return h, err
	}

	h.bx, h.by, h.bz = uint(bx), uint(by), uint(bz)

	flags, err := r.ReadBits(8)
	if err != nil {
		return h, err
	}

	h.hasVertexColors = flags&ccFlagHasVertexColors != 0
	h.hasVertexUV = flags&ccFlagHasVertexUV != 0
	h.hasFaceColors = flags&ccFlagHasFaceColors != 0

	return h, nil
}

func dequantizeAxis(raw uint32, b uint, lo, hi float32) float32 {
	maxVal := float32((uint64(1) << b) - 1)
	if maxVal == 0 {
		return lo
	}

	return lo + float32(raw)*(hi-lo)/maxVal
}

func signExtend(raw uint32, bits uint) int32 {
	signBit := uint32(1) << (bits - 1)
	if raw&signBit != 0 {
		return int32(raw) - int32(uint32(1)<<bits)
	}

	return int32(raw)
}

func decodeCCVertices(r *bitio.Reader, h ccHeader, vertexCount int) ([][3]float32, []command.VertexCommand, error) {
	vertices := make([][3]float32, 0, vertexCount)
	cmds := make([]command.VertexCommand, 0, vertexCount)

	var prev [3]float32

	widthsShort := [3]uint{
		reducedWidth(h.bx, deltaShortReduction),
		reducedWidth(h.by, deltaShortReduction),
		reducedWidth(h.bz, deltaShortReduction),
	}
	widthsLong := [3]uint{
		reducedWidth(h.bx, deltaLongReduction),
		reducedWidth(h.by, deltaLongReduction),
		reducedWidth(h.bz, deltaLongReduction),
	}
	widthsAbs := [3]uint{h.bx, h.by, h.bz}
	lo := h.min
	hi := h.max

	for i := 0; i < vertexCount; i++ {
		op, err := r.ReadBits(2)
		if err != nil {
			return nil, nil, err
		}

		var pos [3]float32
		var vertexOp command.VertexOp

		switch op {
		case ccOpAbsolute:
			vertexOp = command.VertexAbsolute

			for axis := 0; axis < 3; axis++ {
				raw, err := r.ReadBits(widthsAbs[axis])
				if err != nil {
					return nil, nil, err
				}

				pos[axis] = dequantizeAxis(raw, widthsAbs[axis], lo[axis], hi[axis])
			}
		case ccOpDeltaShort:
			vertexOp = command.VertexDeltaShort

			for axis := 0; axis < 3; axis++ {
				raw, err := r.ReadBits(widthsShort[axis])
				if err != nil {
					return nil, nil, err
				}

				delta := signExtend(raw, widthsShort[axis])
				step := (hi[axis] - lo[axis]) / float32((uint64(1)<<widthsAbs[axis])-1)
				pos[axis] = prev[axis] + float32(delta)*step
			}
		case ccOpDeltaLong:
			vertexOp = command.VertexDeltaLong

			for axis := 0; axis < 3; axis++ {
				raw, err := r.ReadBits(widthsLong[axis])
				if err != nil {
					return nil, nil, err
				}

				delta := signExtend(raw, widthsLong[axis])
				step := (hi[axis] - lo[axis]) / float32((uint64(1)<<widthsAbs[axis])-1)
				pos[axis] = prev[axis] + float32(delta)*step
			}
		case ccOpRepeat:
			vertexOp = command.VertexRepeat
			pos = prev
		}

		vertices = append(vertices, pos)
		cmds = append(cmds, command.VertexCommand{Op: vertexOp, Index: i, Position: pos})
		prev = pos
	}

	return vertices, cmds, nil
}

func decodeCCColorStream(r *bitio.Reader, vertexCount int) ([][3]uint8, error) {
	colors := make([][3]uint8, vertexCount)

	for i := 0; i < vertexCount; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		g, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		rr, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		colors[i] = [3]uint8{rr, g, b}
	}

	return colors, nil
}

// decodeCCFaces decodes the triangle-strip face stream (spec.md §4.6)
// from r, leaving r positioned at the start of the optional
// face-color RLE sub-stream that may immediately follow it.
func decodeCCFaces(r *bitio.Reader, faceCount, vertexCount int) ([][3]uint32, []command.FaceCommand, error) {
	faces := make([][3]uint32, 0, faceCount)
	cmds := make([]command.FaceCommand, 0, faceCount)

	var hwm int64 = -1

	var a, b uint32
	parity := 0
	haveStrip := false

	readDelta := func() (uint32, error) {
		raw, err := r.ReadBits(32)
		if err != nil {
			return 0, err
		}

		value := hwm + 1 - int64(raw)
		if value < 0 || int(value) >= vertexCount {
			return 0, &errs.InvalidIndexError{Value: raw, Max: vertexCount - 1}
		}

		if value > hwm {
			hwm = value
		}

		return uint32(value), nil
	}

	for len(faces) < faceCount {
		op, err := r.ReadBits(2)
		if err != nil {
			return nil, nil, err
		}

		switch op {
		case 0: // NEW_STRIP
			v0, err := readDelta()
			if err != nil {
				return nil, nil, err
			}

			v1, err := readDelta()
			if err != nil {
				return nil, nil, err
			}

			v2, err := readDelta()
			if err != nil {
				return nil, nil, err
			}

			tri := [3]uint32{v0, v1, v2}
			faces = append(faces, tri)
			cmds = append(cmds, command.FaceCommand{
				Op: command.FaceNewStrip, Indices: []uint32{v0, v1, v2}, Emitted: tri,
				FaceIdx: len(faces) - 1, HasEmit: true,
			})

			a, b = v1, v2
			parity = 0
			haveStrip = true
		case 1: // EXTEND
			if !haveStrip {
				return nil, nil, &errs.InvalidArgumentError{Detail: "cc: EXTEND without an active strip"}
			}

			v, err := readDelta()
			if err != nil {
				return nil, nil, err
			}

			var tri [3]uint32
			if parity == 0 {
				tri = [3]uint32{a, b, v}
			} else {
				tri = [3]uint32{b, a, v}
			}

			faces = append(faces, tri)
			cmds = append(cmds, command.FaceCommand{
				Op: command.FaceExtend, Indices: []uint32{v}, Emitted: tri,
				FaceIdx: len(faces) - 1, HasEmit: true,
			})

			a, b = b, v
			parity = 1 - parity
		case 2: // RESTART
			haveStrip = false
			cmds = append(cmds, command.FaceCommand{Op: command.FaceRestart, FaceIdx: len(faces) - 1})
		default:
			return nil, nil, &errs.InvalidArgumentError{Detail: "cc: unrecognized face opcode"}
		}
	}

	return faces, cmds, nil
}

// decodeCCFaceColorRLE decodes a run-length-encoded BGR triple stream
// covering faceCount faces in emission order: each run is a uint16
// count prefix followed by one BGR triple repeated that many times.
func decodeCCFaceColorRLE(r *bitio.Reader, faceCount int) ([][3]uint8, error) {
	colors := make([][3]uint8, 0, faceCount)

	for len(colors) < faceCount {
		count, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}

		bb, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		g, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		rr, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		rgb := [3]uint8{rr, g, bb}
		for i := 0; i < int(count) && len(colors) < faceCount; i++ {
			colors = append(colors, rgb)
		}
	}

	return colors, nil
}
