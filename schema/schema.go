// Package schema implements the four HPS compression/encryption
// variants (spec.md §4.5-§4.7): CA (raw), CB (unsupported stub), CC
// (delta-quantized, the main codec), and CE (CC plus a Blowfish
// decryption pre-pass).
package schema

import (
	"github.com/dentalscan/hpsdecode/cipher"
	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/format"
	"github.com/dentalscan/hpsdecode/meshmodel"
)

// Decode dispatches ctx to the decoder matching ctx.Schema. provider
// supplies the base encryption key for the CE schema; it is ignored
// by the others.
func Decode(provider cipher.KeyProvider, ctx meshmodel.ParseContext) (meshmodel.ParseResult, error) {
	switch ctx.Schema {
	case format.SchemaCA:
		return DecodeCA(ctx)
	case format.SchemaCB:
		return DecodeCB(ctx)
	case format.SchemaCC:
		return DecodeCC(ctx)
	case format.SchemaCE:
		return DecodeCE(provider, ctx)
	default:
		return meshmodel.ParseResult{}, &errs.UnsupportedSchemaError{Name: ctx.Schema.String()}
	}
}
