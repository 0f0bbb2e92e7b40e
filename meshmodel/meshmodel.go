// Package meshmodel defines the data structures the HPS decoder passes
// between the envelope parser, the schema decoders, and the caller:
// the parse context a schema decoder consumes, the decoded mesh it
// produces, and the packed-scan metadata useful for debugging a decode
// after the fact (spec.md §3).
package meshmodel

import (
	"github.com/dentalscan/hpsdecode/command"
	"github.com/dentalscan/hpsdecode/format"
)

// EncryptedBlob wraps a CE-schema binary field still awaiting
// decryption: its ciphertext, the pre-encryption size to truncate to
// once decrypted (-1 if the envelope carried no size attribute), and
// whether the element's Key attribute calls for the scrambled key
// variant (spec.md §4.2, §4.7).
type EncryptedBlob struct {
	Data            []byte
	OriginalSize    int
	UseScrambledKey bool
}

// DataField holds a binary payload that is either already plaintext or
// still encrypted, mirroring the envelope's `bytes | EncryptedData`
// union without resorting to an interface (spec.md §9 prefers a tagged
// struct over a dispatch abstraction here, same as command.Trace).
type DataField struct {
	Plain     []byte
	Encrypted *EncryptedBlob
}

// IsEncrypted reports whether this field still needs decryption.
func (d DataField) IsEncrypted() bool {
	return d.Encrypted != nil
}

// Spline describes one non-mesh curve object carried alongside the
// scan geometry (spec.md §3, grounded on loader.py's parse_spline).
type Spline struct {
	Name          string
	ControlPoints [][3]float32
	Radius        float32
	IsCyclic      bool
	Color         uint32
	Misc          int
}

// ParseContext is everything a schema decoder needs to produce a Mesh:
// the envelope's binary fields (possibly still encrypted), declared
// counts for validation, default colors, and the property map key
// derivation consults (spec.md §3, §4.7-4.8).
type ParseContext struct {
	Schema format.Schema

	VertexData DataField
	FaceData   []byte

	VertexCount int
	FaceCount   int

	DefaultVertexColor *uint32
	DefaultFaceColor   *uint32

	VertexColorsData  *DataField
	TextureCoordsData *DataField
	TextureImages     []DataField

	Splines []Spline

	CheckValue *uint32
	Properties map[string]string
}

// Mesh is the fully decoded 3D scan.
type Mesh struct {
	Vertices [][3]float32
	Faces    [][3]uint32

	VertexColors [][3]uint8
	FaceColors   [][3]uint8

	UV [][2]float32

	TextureImages [][]byte
}

// NumVertices returns the number of decoded vertices.
func (m Mesh) NumVertices() int { return len(m.Vertices) }

// NumFaces returns the number of decoded faces.
func (m Mesh) NumFaces() int { return len(m.Faces) }

// HasTextureCoords reports whether per-corner UVs were decoded.
func (m Mesh) HasTextureCoords() bool { return len(m.UV) > 0 }

// HasVertexColors reports whether per-vertex colors were decoded.
func (m Mesh) HasVertexColors() bool { return len(m.VertexColors) > 0 }

// HasFaceColors reports whether per-face colors were decoded.
func (m Mesh) HasFaceColors() bool { return len(m.FaceColors) > 0 }

// HasTextures reports whether any texture image payloads were carried.
func (m Mesh) HasTextures() bool { return len(m.TextureImages) > 0 }

// ParseResult bundles a decoded Mesh with the opcode Trace its decoder
// executed, so callers can inspect or fingerprint the decode (spec.md §1, §4.4).
type ParseResult struct {
	Mesh  Mesh
	Trace command.Trace
}

// PackedScan records the envelope metadata of a decoded scan alongside
// the raw (now-decrypted, if applicable) streams that produced it —
// useful for diagnostics and for re-verifying a decode without
// re-parsing the XML envelope (spec.md §3).
type PackedScan struct {
	Schema      format.Schema
	NumVertices int
	NumFaces    int

	VertexData DataField
	FaceData   []byte

	DefaultVertexColor *uint32
	DefaultFaceColor   *uint32

	VertexColorsData  *DataField
	TextureCoordsData *DataField
	TextureImages     []DataField

	Splines []Spline

	CheckValue *uint32
	Properties map[string]string
}

// IsEncrypted reports whether this scan's schema required decryption.
func (p PackedScan) IsEncrypted() bool {
	return p.Schema == format.SchemaCE
}
