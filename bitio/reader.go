// Package bitio provides the little-endian byte reader and MSB-first
// bit reader HPS's binary payloads are built on (spec.md §4.1). Every
// schema decoder (CA/CC/CE) reads its vertex and face streams through
// a Reader instead of indexing raw byte slices directly, so bounds
// checking and EOF signaling happen in exactly one place.
package bitio

import (
	"math"

	"github.com/dentalscan/hpsdecode/endian"
	"github.com/dentalscan/hpsdecode/errs"
)

// Reader reads little-endian primitives and MSB-first-packed bit
// fields from a byte slice. A Reader does not own data; the caller
// must keep the backing slice alive for the Reader's lifetime.
//
// Bit reads are MSB-first within each byte. Any non-bit read method
// (ReadU8, ReadU16LE, ...) first discards the remaining bits of a
// partially consumed byte, equivalent to calling AlignToByte.
type Reader struct {
	data      []byte
	bytePos   int  // index of the next byte to consume (fully or partially)
	bitOffset uint // bits of data[bytePos] already consumed from the MSB side, 0-7
	engine    endian.EndianEngine
}

// NewReader creates a Reader over data. The Reader does not copy data.
// Every multi-byte primitive is read through an EndianEngine fixed to
// little-endian, since HPS's binary payloads are little-endian
// throughout (spec.md §4.1); the engine seam exists so a caller
// reading a foreign byte order variant only has to swap this one line.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, engine: endian.GetLittleEndianEngine()}
}

// Position reports the count of fully consumed bytes. A byte that is
// only partially consumed by a pending bit read does not count.
func (r *Reader) Position() int {
	return r.bytePos
}

// IsEOF reports whether no further bytes remain to be read.
func (r *Reader) IsEOF() bool {
	return r.bytePos >= len(r.data)
}

// Remaining returns the number of whole bytes left after the current
// (possibly partial) byte boundary, not counting a partially consumed byte.
func (r *Reader) Remaining() int {
	n := len(r.data) - r.bytePos
	if r.bitOffset != 0 {
		n--
	}

	return n
}

// AlignToByte discards any remaining bits of the byte currently being
// consumed by a bit read, advancing to the next byte boundary.
func (r *Reader) AlignToByte() {
	if r.bitOffset != 0 {
		r.bitOffset = 0
		r.bytePos++
	}
}

// ReadBits reads n bits (1 <= n <= 32), MSB-first, and returns them
// right-aligned in the result.
func (r *Reader) ReadBits(n uint) (uint32, error) {
	if n < 1 || n > 32 {
		return 0, &errs.InvalidArgumentError{Detail: "read_bits: n must be in [1, 32]"}
	}

	var result uint32

	remaining := n
	for remaining > 0 {
		if r.bytePos >= len(r.data) {
			return 0, &errs.UnexpectedEOFError{Stream: "bits", Wanted: int(n), Have: 0}
		}

		availableInByte := 8 - r.bitOffset
		take := remaining
		if take > availableInByte {
			take = availableInByte
		}

		shift := availableInByte - take
		mask := byte((uint16(1) << take) - 1)
		bits := (r.data[r.bytePos] >> shift) & mask

		result = (result << take) | uint32(bits)

		r.bitOffset += take
		remaining -= take

		if r.bitOffset == 8 {
			r.bitOffset = 0
			r.bytePos++
		}
	}

	return result, nil
}

// alignBeforeByteRead discards any in-progress bit read before a byte-aligned read.
func (r *Reader) alignBeforeByteRead() {
	r.AlignToByte()
}

func (r *Reader) requireBytes(n int, stream string) error {
	if r.bytePos+n > len(r.data) {
		return &errs.UnexpectedEOFError{Stream: stream, Wanted: n, Have: len(r.data) - r.bytePos}
	}

	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	r.alignBeforeByteRead()

	if err := r.requireBytes(1, "u8"); err != nil {
		return 0, err
	}

	v := r.data[r.bytePos]
	r.bytePos++

	return v, nil
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	r.alignBeforeByteRead()

	if err := r.requireBytes(2, "u16"); err != nil {
		return 0, err
	}

	v := r.engine.Uint16(r.data[r.bytePos : r.bytePos+2])
	r.bytePos += 2

	return v, nil
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	r.alignBeforeByteRead()

	if err := r.requireBytes(4, "u32"); err != nil {
		return 0, err
	}

	v := r.engine.Uint32(r.data[r.bytePos : r.bytePos+4])
	r.bytePos += 4

	return v, nil
}

// ReadI16LE reads a little-endian int16.
func (r *Reader) ReadI16LE() (int16, error) {
	v, err := r.ReadU16LE()
	return int16(v), err
}

// ReadI32LE reads a little-endian int32.
func (r *Reader) ReadI32LE() (int32, error) {
	v, err := r.ReadU32LE()
	return int32(v), err
}

// ReadF32LE reads a little-endian IEEE-754 float32.
func (r *Reader) ReadF32LE() (float32, error) {
	v, err := r.ReadU32LE()
	if err != nil {
		return 0, err
	}

	return math.Float32frombits(v), nil
}

// ReadBytes reads n raw bytes, aligning to a byte boundary first. The
// returned slice aliases the Reader's backing array; callers that
// retain it past the Reader's lifetime should copy it.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	r.alignBeforeByteRead()

	if n < 0 {
		return nil, &errs.InvalidArgumentError{Detail: "read_bytes: n must be non-negative"}
	}

	if err := r.requireBytes(n, "bytes"); err != nil {
		return nil, err
	}

	v := r.data[r.bytePos : r.bytePos+n]
	r.bytePos += n

	return v, nil
}
