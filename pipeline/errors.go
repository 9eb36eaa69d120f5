package pipeline

import (
	"fmt"

	"github.com/syssam/keel"
)

// newValidationError builds a validation_error carrying ctx's current key
// path, the form every validator and type-coercion failure in this
// package reports through.
func newValidationError(ctx Ctx, reason string) error {
	return keel.ValidationError(ctx.Path.String(), reason)
}

func newTypeError(ctx Ctx, expected, got string) error {
	return newValidationError(ctx, fmt.Sprintf("expected %s, got %s", expected, got))
}
