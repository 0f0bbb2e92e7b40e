package schema

import (
	"github.com/dentalscan/hpsdecode/cipher"
	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/meshmodel"
)

// DecodeCE decodes the CE schema: CC with a Blowfish decryption
// pre-pass (spec.md §4.7), grounded 1:1 on ce.py's CESchemaParser.parse.
// It derives the key from ctx.Properties, decrypts every EncryptedBlob
// the context carries, verifies the vertex-data integrity check when
// present, and delegates to DecodeCC with a rebuilt plaintext context.
func DecodeCE(provider cipher.KeyProvider, ctx meshmodel.ParseContext) (meshmodel.ParseResult, error) {
	key, err := cipher.DeriveKey(provider, ctx.Properties)
	if err != nil {
		return meshmodel.ParseResult{}, err
	}

	decryptedVertexData, err := DecryptField(ctx.VertexData, key)
	if err != nil {
		return meshmodel.ParseResult{}, err
	}

	if ctx.CheckValue != nil {
		computed, ok := cipher.VerifyIntegrity(decryptedVertexData, *ctx.CheckValue)
		if !ok {
			return meshmodel.ParseResult{}, &errs.IntegrityCheckFailedError{Expected: *ctx.CheckValue, Actual: computed}
		}
	}

	decryptedCtx := ctx
	decryptedCtx.VertexData = meshmodel.DataField{Plain: decryptedVertexData}

	if ctx.TextureCoordsData != nil {
		data, err := DecryptField(*ctx.TextureCoordsData, key)
		if err != nil {
			return meshmodel.ParseResult{}, err
		}

		decryptedCtx.TextureCoordsData = &meshmodel.DataField{Plain: data}
	}

	if ctx.VertexColorsData != nil {
		data, err := DecryptField(*ctx.VertexColorsData, key)
		if err != nil {
			return meshmodel.ParseResult{}, err
		}

		decryptedCtx.VertexColorsData = &meshmodel.DataField{Plain: data}
	}

	if len(ctx.TextureImages) > 0 {
		images := make([]meshmodel.DataField, len(ctx.TextureImages))

		for i, img := range ctx.TextureImages {
			data, err := DecryptField(img, key)
			if err != nil {
				return meshmodel.ParseResult{}, err
			}

			images[i] = meshmodel.DataField{Plain: data}
		}

		decryptedCtx.TextureImages = images
	}

	return DecodeCC(decryptedCtx)
}

// DecryptField returns field's plaintext, decrypting it first if it is
// still an EncryptedBlob. A field that is already plaintext (e.g. face
// data, which CE never encrypts) is returned unchanged. Exported so
// callers that want a scan's raw decrypted streams without a full
// mesh reconstruction (hpsdecode.PackScan) can reuse the same
// decrypt-or-passthrough logic DecodeCE uses internally.
func DecryptField(field meshmodel.DataField, key []byte) ([]byte, error) {
	if !field.IsEncrypted() {
		return field.Plain, nil
	}

	decryptionKey := cipher.SelectKey(key, field.Encrypted.UseScrambledKey)

	return cipher.DecryptECB(decryptionKey, field.Encrypted.Data, field.Encrypted.OriginalSize)
}
