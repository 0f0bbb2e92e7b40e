// Package format defines the small enumerations shared across the HPS
// decoder: the compression/encryption schema identifier and the packed
// 24-bit RGB color representation used by default vertex/face colors.
package format

// Schema identifies one of the four recognized HPS compression/encryption variants.
type Schema uint8

const (
	SchemaUnknown Schema = iota
	SchemaCA             // Raw, uncompressed vertex/face streams.
	SchemaCB             // Recognized but not required to decode.
	SchemaCC             // Delta-quantized vertex stream, triangle-strip face stream.
	SchemaCE             // CC plus a Blowfish decryption pre-pass.
)

func (s Schema) String() string {
	switch s {
	case SchemaCA:
		return "CA"
	case SchemaCB:
		return "CB"
	case SchemaCC:
		return "CC"
	case SchemaCE:
		return "CE"
	default:
		return "Unknown"
	}
}

// ParseSchema maps the XML `.//Schema` text to a Schema value.
// An unrecognized name yields SchemaUnknown with ok == false.
func ParseSchema(name string) (Schema, bool) {
	switch name {
	case "CA":
		return SchemaCA, true
	case "CB":
		return SchemaCB, true
	case "CC":
		return SchemaCC, true
	case "CE":
		return SchemaCE, true
	default:
		return SchemaUnknown, false
	}
}

// RGB is a 24-bit packed color, as stored in HPS's `0xRRGGBB` default
// vertex/face color attributes.
type RGB struct {
	R, G, B uint8
}

// UnpackRGB splits a 24-bit packed 0xRRGGBB integer into its components.
func UnpackRGB(packed uint32) RGB {
	return RGB{
		R: uint8(packed >> 16),
		G: uint8(packed >> 8),
		B: uint8(packed),
	}
}
