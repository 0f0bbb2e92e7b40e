// Package errs defines the HPS decoder's error taxonomy (spec.md §7).
//
// Every error the decoder can return is either one of the sentinel
// values below or a structured type wrapping one of them, so callers
// can always branch with errors.Is against a stable category while
// still recovering structured detail with errors.As. The one exception
// is an error returned by a cipher.KeyProvider (such as
// EnvKeyProvider's unset-variable error), which CE decoding passes
// through unchanged.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSchema is returned when the schema name is not one of CA/CB/CC/CE,
	// or is CB (recognized but not required to decode).
	ErrUnsupportedSchema = errors.New("hpsdecode: unsupported schema")

	// ErrMalformedEnvelope is returned when a required XML element/attribute is
	// missing or a base64 payload fails to decode.
	ErrMalformedEnvelope = errors.New("hpsdecode: malformed envelope")

	// ErrUnexpectedEOF is returned when the bit/byte reader is asked for more
	// data than remains in the stream.
	ErrUnexpectedEOF = errors.New("hpsdecode: unexpected end of stream")

	// ErrCountMismatch is returned when the reconstructed vertex/face count
	// disagrees with the envelope's declared count.
	ErrCountMismatch = errors.New("hpsdecode: count mismatch")

	// ErrUvCountMismatch is returned when a UV record's flag byte disagrees
	// with its vertex's corner-degree.
	ErrUvCountMismatch = errors.New("hpsdecode: uv count mismatch")

	// ErrIntegrityCheckFailed is returned when the CE schema's Adler-32 check
	// on decrypted vertex data disagrees with the envelope's check_value.
	// This is the canonical "wrong key" signal.
	ErrIntegrityCheckFailed = errors.New("hpsdecode: integrity check failed")

	// ErrInvalidIndex is returned when a decoded face index falls outside [0, vertex_count).
	ErrInvalidIndex = errors.New("hpsdecode: invalid face index")

	// ErrInvalidArgument is returned for programmer errors, such as ReadBits(33).
	ErrInvalidArgument = errors.New("hpsdecode: invalid argument")
)

// UnsupportedSchemaError names the offending schema identifier.
type UnsupportedSchemaError struct {
	Name string
}

func (e *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedSchema, e.Name)
}

func (e *UnsupportedSchemaError) Unwrap() error { return ErrUnsupportedSchema }

// MalformedEnvelopeError carries the detail string describing what was missing or invalid.
type MalformedEnvelopeError struct {
	Detail string
}

func (e *MalformedEnvelopeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedEnvelope, e.Detail)
}

func (e *MalformedEnvelopeError) Unwrap() error { return ErrMalformedEnvelope }

// UnexpectedEOFError records which stream under-ran and by how much.
type UnexpectedEOFError struct {
	Stream string
	Wanted int
	Have   int
}

func (e *UnexpectedEOFError) Error() string {
	return fmt.Sprintf("%s: %s: wanted %d bytes, have %d", ErrUnexpectedEOF, e.Stream, e.Wanted, e.Have)
}

func (e *UnexpectedEOFError) Unwrap() error { return ErrUnexpectedEOF }

// CountKind distinguishes which reconstructed count disagreed with the envelope.
type CountKind uint8

const (
	CountVertex CountKind = iota
	CountFace
)

func (k CountKind) String() string {
	if k == CountFace {
		return "face"
	}

	return "vertex"
}

// CountMismatchError records the expected (envelope) and actual (reconstructed) counts.
type CountMismatchError struct {
	Kind     CountKind
	Expected int
	Actual   int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: expected %d, got %d", ErrCountMismatch, e.Kind, e.Expected, e.Actual)
}

func (e *CountMismatchError) Unwrap() error { return ErrCountMismatch }

// UvCountMismatchError records the vertex whose UV flag disagreed with its corner-degree.
type UvCountMismatchError struct {
	VertexIndex int
	Flag        uint8
	Degree      int
}

func (e *UvCountMismatchError) Error() string {
	return fmt.Sprintf("%s: vertex %d: flag=%d, degree=%d", ErrUvCountMismatch, e.VertexIndex, e.Flag, e.Degree)
}

func (e *UvCountMismatchError) Unwrap() error { return ErrUvCountMismatch }

// IntegrityCheckFailedError records the expected and computed Adler-32 values.
type IntegrityCheckFailedError struct {
	Expected uint32
	Actual   uint32
}

func (e *IntegrityCheckFailedError) Error() string {
	return fmt.Sprintf("%s: expected %#08x, got %#08x", ErrIntegrityCheckFailed, e.Expected, e.Actual)
}

func (e *IntegrityCheckFailedError) Unwrap() error { return ErrIntegrityCheckFailed }

// InvalidIndexError records the out-of-range face index and its context.
type InvalidIndexError struct {
	FaceIndex int
	Corner    int
	Value     uint32
	Max       int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("%s: face %d corner %d: value %d, max %d", ErrInvalidIndex, e.FaceIndex, e.Corner, e.Value, e.Max)
}

func (e *InvalidIndexError) Unwrap() error { return ErrInvalidIndex }

// InvalidArgumentError carries a free-form detail string.
type InvalidArgumentError struct {
	Detail string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidArgument, e.Detail)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }
