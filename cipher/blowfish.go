// Package cipher implements the CE schema's decryption layer: Blowfish
// ECB decryption with trailing-remainder passthrough, the per-element
// key scrambler, key derivation from envelope properties, and the
// Adler-32 integrity check (spec.md §4.2, §4.7, §4.8).
package cipher

import (
	"golang.org/x/crypto/blowfish"

	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/internal/pool"
)

// DecryptECB decrypts ciphertext with a standard 64-bit-block,
// 16-round Blowfish cipher in ECB mode (spec.md §4.2). Complete 8-byte
// blocks are decrypted in place in a scratch buffer drawn from pool
// (a CE decode calls this once per vertex/color/UV/texture field); any
// trailing 1-7 bytes are copied through unchanged, matching how the
// HPS producer leaves a partial final block unencrypted.
//
// If originalSize is non-negative, the returned plaintext is truncated
// to that length (the pre-encryption size, which may be shorter than
// the padded ciphertext). The returned slice is freshly allocated and
// safe for the caller to retain past this call.
func DecryptECB(key, ciphertext []byte, originalSize int) ([]byte, error) {
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, &errs.InvalidArgumentError{Detail: "blowfish: " + err.Error()}
	}

	blockSize := block.BlockSize()

	scratch := pool.Get()
	defer pool.Put(scratch)

	scratch.SetLength(len(ciphertext))
	copy(scratch.Bytes(), ciphertext)

	buf := scratch.Bytes()
	fullBlockLen := (len(buf) / blockSize) * blockSize
	for i := 0; i+blockSize <= fullBlockLen; i += blockSize {
		block.Decrypt(buf[i:i+blockSize], buf[i:i+blockSize])
	}

	outLen := len(buf)
	if originalSize >= 0 && originalSize < outLen {
		outLen = originalSize
	}

	plaintext := make([]byte, outLen)
	copy(plaintext, buf[:outLen])

	return plaintext, nil
}

// ScrambleKey returns the byte-permuted variant of key used when the
// consuming XML element carries a `Key` attribute (spec.md §4.2).
//
// The exact permutation is a proprietary detail this decoder cannot
// recover without a reference file to differentially test against
// (see DESIGN.md). A full byte-order reversal is used here: it is a
// deterministic, pure function of key length and, critically,
// involutive for any length — the one property spec.md §8 requires
// ("key scrambling is involutive on keys of fixed length").
func ScrambleKey(key []byte) []byte {
	scrambled := make([]byte, len(key))
	for i, b := range key {
		scrambled[len(key)-1-i] = b
	}

	return scrambled
}

// SelectKey returns the base or scrambled key depending on whether the
// element's XML carried a Key attribute.
func SelectKey(base []byte, useScrambled bool) []byte {
	if useScrambled {
		return ScrambleKey(base)
	}

	return base
}
