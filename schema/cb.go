package schema

import (
	"github.com/dentalscan/hpsdecode/errs"
	"github.com/dentalscan/hpsdecode/meshmodel"
)

// DecodeCB handles the CB schema: recognized but not required to
// decode (spec.md §1, §4). It always fails with ErrUnsupportedSchema.
func DecodeCB(_ meshmodel.ParseContext) (meshmodel.ParseResult, error) {
	return meshmodel.ParseResult{}, &errs.UnsupportedSchemaError{Name: "CB"}
}
