package pipeline

import (
	"regexp"
	"strings"

	"github.com/syssam/keel/value"
)

// IsAlphanumeric returns a validator item failing unless the string value
// contains only ASCII letters and digits.
func IsAlphanumeric() Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		s, ok := ctx.Value.(value.String)
		if !ok {
			return ctx, newTypeError(ctx, "string", ctx.Value.Kind().String())
		}
		for _, r := range string(s) {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return ctx, newValidationError(ctx, "value must be alphanumeric")
			}
		}
		return ctx, nil
	})
}

// IsSuffixOf returns a validator item failing unless the string value is a
// suffix of suffix (note the inverted naming mirrors original_source's
// is_suffix_of.rs: the *field* value is checked to be a suffix *of* the
// given argument).
func IsSuffixOf(suffix string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		s, ok := ctx.Value.(value.String)
		if !ok {
			return ctx, newTypeError(ctx, "string", ctx.Value.Kind().String())
		}
		if !strings.HasSuffix(suffix, string(s)) {
			return ctx, newValidationError(ctx, "value must be a suffix of the given string")
		}
		return ctx, nil
	})
}

// RegexMatch returns a validator item failing unless the string value
// matches re.
func RegexMatch(re *regexp.Regexp) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		s, ok := ctx.Value.(value.String)
		if !ok {
			return ctx, newTypeError(ctx, "string", ctx.Value.Kind().String())
		}
		if !re.MatchString(string(s)) {
			return ctx, newValidationError(ctx, "value does not match the required pattern")
		}
		return ctx, nil
	})
}

// IsObjectOf returns a validator item failing unless ctx.Value is an
// object handle bound to the named model.
func IsObjectOf(model string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		obj, ok := ctx.Value.(value.Object)
		if !ok || obj.Handle == nil || obj.Handle.ModelName() != model {
			return ctx, newValidationError(ctx, "value must be an object of "+model)
		}
		return ctx, nil
	})
}

// Is returns a validator item requiring ctx.Value to deep-equal want. When
// relation is non-empty, the comparison instead targets the named field of
// the bound object (used for relation-identity checks such as confirming a
// submitted unique key matches the connected object).
func Is(want value.Value, relation string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		target := ctx.Value
		if relation != "" {
			if ctx.Object == nil {
				return ctx, newValidationError(ctx, "no object bound for relation comparison")
			}
			v, ok := ctx.Object.Get(relation)
			if !ok {
				return ctx, newValidationError(ctx, "relation "+relation+" has no value")
			}
			target = v
		}
		if !valuesEqual(target, want) {
			return ctx, newValidationError(ctx, "value does not match the expected value")
		}
		return ctx, nil
	})
}

// Valid returns a validator item that always succeeds; used as an
// explicit no-op terminal in `any`/`when` branches.
func Valid() Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) { return ctx, nil })
}

// valuesEqual performs a structural comparison sufficient for the scalar
// and Vec/Tuple kinds the engine compares in practice.
func valuesEqual(a, b value.Value) bool {
	if value.IsNull(a) && value.IsNull(b) {
		return true
	}
	switch av := a.(type) {
	case value.Vec:
		bv, ok := b.(value.Vec)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case value.Tuple:
		bv, ok := b.(value.Tuple)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case value.Decimal:
		bv, ok := b.(value.Decimal)
		return ok && av.D.Equal(bv.D)
	default:
		return a == b
	}
}
