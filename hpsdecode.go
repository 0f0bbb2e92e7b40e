// Package hpsdecode decodes HIMSA Packed Standard (HPS) dental scan
// containers: the XML envelope around a scan, and the CA/CB/CC/CE
// binary schemas packed inside it.
//
// # Basic usage
//
//	f, err := os.Open("scan.hps")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	mesh, err := hpsdecode.Decode(f, cipher.NewEnvKeyProvider("HPS_ENCRYPTION_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("%d vertices, %d faces\n", mesh.NumVertices(), mesh.NumFaces())
//
// provider only matters for CE-schema files; CA/CB/CC files ignore it
// and any KeyProvider (including a nil-returning stub) works.
//
// # Package structure
//
// This file provides the convenience entry point combining envelope
// parsing and schema decoding. For finer control — inspecting the
// parsed envelope before decoding, or decoding an already-parsed
// meshmodel.ParseContext directly — use the envelope and schema
// packages.
package hpsdecode

import (
	"io"

	"github.com/dentalscan/hpsdecode/cipher"
	"github.com/dentalscan/hpsdecode/envelope"
	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/format"
	"github.com/dentalscan/hpsdecode/meshmodel"
	"github.com/dentalscan/hpsdecode/schema"
)

// Decode reads an HPS XML envelope from r, decodes its packed mesh
// schema, and returns the resulting Mesh. provider supplies the base
// encryption key for CE-schema files.
func Decode(r io.Reader, provider cipher.KeyProvider) (meshmodel.Mesh, error) {
	result, err := DecodeTrace(r, provider)
	if err != nil {
		return meshmodel.Mesh{}, err
	}

	return result.Mesh, nil
}

// DecodeTrace behaves like Decode but also returns the opcode Trace
// the schema decoder executed, for callers that want to fingerprint
// or inspect the decode (spec.md §1, §4.4).
func DecodeTrace(r io.Reader, provider cipher.KeyProvider) (meshmodel.ParseResult, error) {
	_, ctx, err := envelope.Parse(r)
	if err != nil {
		return meshmodel.ParseResult{}, err
	}

	return DecodeContext(ctx, provider)
}

// DecodeContext decodes an already-parsed ParseContext, validating
// that the reconstructed vertex and face counts agree with the
// envelope's declared counts (spec.md §4.3, mirroring load_hps's
// post-parse sanity checks).
func DecodeContext(ctx meshmodel.ParseContext, provider cipher.KeyProvider) (meshmodel.ParseResult, error) {
	result, err := schema.Decode(provider, ctx)
	if err != nil {
		return meshmodel.ParseResult{}, err
	}

	if result.Mesh.NumVertices() != ctx.VertexCount {
		return meshmodel.ParseResult{}, &errs.CountMismatchError{
			Kind: errs.CountVertex, Expected: ctx.VertexCount, Actual: result.Mesh.NumVertices(),
		}
	}

	if result.Mesh.NumFaces() != ctx.FaceCount {
		return meshmodel.ParseResult{}, &errs.CountMismatchError{
			Kind: errs.CountFace, Expected: ctx.FaceCount, Actual: result.Mesh.NumFaces(),
		}
	}

	return result, nil
}

// PackScan reads an HPS envelope from r and returns its PackedScan
// snapshot: envelope metadata alongside the raw streams a schema
// decoder would consume, with any CE-schema encryption already undone
// (spec.md §3). Unlike Decode/DecodeTrace, it never walks the CC
// opcode stream, making it the cheap path for a caller that only
// wants to inspect or re-verify a scan's shape and streams without
// reconstructing a Mesh.
func PackScan(r io.Reader, provider cipher.KeyProvider) (meshmodel.PackedScan, error) {
	_, ctx, err := envelope.Parse(r)
	if err != nil {
		return meshmodel.PackedScan{}, err
	}

	return PackScanContext(ctx, provider)
}

// PackScanContext behaves like PackScan but starts from an
// already-parsed ParseContext.
func PackScanContext(ctx meshmodel.ParseContext, provider cipher.KeyProvider) (meshmodel.PackedScan, error) {
	vertexData := ctx.VertexData
	vertexColorsData := ctx.VertexColorsData
	textureCoordsData := ctx.TextureCoordsData
	textureImages := ctx.TextureImages

	if ctx.Schema == format.SchemaCE {
		key, err := cipher.DeriveKey(provider, ctx.Properties)
		if err != nil {
			return meshmodel.PackedScan{}, err
		}

		plainVertex, err := schema.DecryptField(ctx.VertexData, key)
		if err != nil {
			return meshmodel.PackedScan{}, err
		}

		vertexData = meshmodel.DataField{Plain: plainVertex}

		if ctx.CheckValue != nil {
			computed, ok := cipher.VerifyIntegrity(plainVertex, *ctx.CheckValue)
			if !ok {
				return meshmodel.PackedScan{}, &errs.IntegrityCheckFailedError{Expected: *ctx.CheckValue, Actual: computed}
			}
		}

		if ctx.VertexColorsData != nil {
			data, err := schema.DecryptField(*ctx.VertexColorsData, key)
			if err != nil {
				return meshmodel.PackedScan{}, err
			}

			vertexColorsData = &meshmodel.DataField{Plain: data}
		}

		if ctx.TextureCoordsData != nil {
			data, err := schema.DecryptField(*ctx.TextureCoordsData, key)
			if err != nil {
				return meshmodel.PackedScan{}, err
			}

			textureCoordsData = &meshmodel.DataField{Plain: data}
		}

		if len(ctx.TextureImages) > 0 {
			images := make([]meshmodel.DataField, len(ctx.TextureImages))

			for i, img := range ctx.TextureImages {
				data, err := schema.DecryptField(img, key)
				if err != nil {
					return meshmodel.PackedScan{}, err
				}

				images[i] = meshmodel.DataField{Plain: data}
			}

			textureImages = images
		}
	}

	return meshmodel.PackedScan{
		Schema:             ctx.Schema,
		NumVertices:        ctx.VertexCount,
		NumFaces:           ctx.FaceCount,
		VertexData:         vertexData,
		FaceData:           ctx.FaceData,
		DefaultVertexColor: ctx.DefaultVertexColor,
		DefaultFaceColor:   ctx.DefaultFaceColor,
		VertexColorsData:   vertexColorsData,
		TextureCoordsData:  textureCoordsData,
		TextureImages:      textureImages,
		Splines:            ctx.Splines,
		CheckValue:         ctx.CheckValue,
		Properties:         ctx.Properties,
	}, nil
}
