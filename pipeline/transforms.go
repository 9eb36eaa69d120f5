package pipeline

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/keel/value"
)

// Add returns a transform item: ctx.Value = ctx.Value + operand.
func Add(operand value.Value) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		v, err := arith(ctx.Value, operand,
			func(a, b float64) float64 { return a + b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) })
		if err != nil {
			return ctx, err
		}
		return ctx.WithValue(v), nil
	})
}

// Sub returns a transform item: ctx.Value = ctx.Value - operand.
func Sub(operand value.Value) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		v, err := arith(ctx.Value, operand,
			func(a, b float64) float64 { return a - b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) })
		if err != nil {
			return ctx, err
		}
		return ctx.WithValue(v), nil
	})
}

// Mul returns a transform item: ctx.Value = ctx.Value * operand.
func Mul(operand value.Value) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		v, err := arith(ctx.Value, operand,
			func(a, b float64) float64 { return a * b },
			func(a, b decimal.Decimal) decimal.Decimal { return a.Mul(b) })
		if err != nil {
			return ctx, err
		}
		return ctx.WithValue(v), nil
	})
}

// Div returns a transform item: ctx.Value = ctx.Value / operand.
func Div(operand value.Value) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		v, err := arith(ctx.Value, operand,
			func(a, b float64) float64 {
				if b == 0 {
					return 0
				}
				return a / b
			},
			func(a, b decimal.Decimal) decimal.Decimal {
				if b.IsZero() {
					return decimal.Zero
				}
				return a.Div(b)
			})
		if err != nil {
			return ctx, err
		}
		return ctx.WithValue(v), nil
	})
}

// Min returns a transform item clamping ctx.Value to be no larger than
// operand, grounded on the original's `min` arithmetic item.
func Min(operand value.Value) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		v, err := arith(ctx.Value, operand,
			func(a, b float64) float64 {
				if a < b {
					return a
				}
				return b
			},
			func(a, b decimal.Decimal) decimal.Decimal {
				if a.LessThan(b) {
					return a
				}
				return b
			})
		if err != nil {
			return ctx, err
		}
		return ctx.WithValue(v), nil
	})
}

// Now returns a transform item setting ctx.Value to the current instant.
// The instant is read from the supplied clock each time the item runs,
// so callers (and tests) control determinism; schema compilation wires
// this to time.Now.
func Now(clock func() time.Time) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		return ctx.WithValue(value.NewDateTime(clock())), nil
	})
}

// Today returns a transform item setting ctx.Value to the current civil
// date in the given timezone, per original_source's today(tz) item —
// distinct from Now, which produces an instant.
func Today(clock func() time.Time, loc *time.Location) Item {
	if loc == nil {
		loc = time.UTC
	}
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		t := clock().In(loc)
		return ctx.WithValue(value.Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}), nil
	})
}

// UUID returns a transform item setting ctx.Value to a freshly generated
// UUID rendered as a string.
func UUID() Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		return ctx.WithValue(value.String(uuid.NewString())), nil
	})
}

// ToLowerCase returns a transform item lower-casing a string value.
func ToLowerCase() Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		s, ok := ctx.Value.(value.String)
		if !ok {
			return ctx, newTypeError(ctx, "string", ctx.Value.Kind().String())
		}
		return ctx.WithValue(value.String(strings.ToLower(string(s)))), nil
	})
}

// ToSentenceCase returns a transform item upper-casing the first rune of a
// string value and lower-casing the rest.
func ToSentenceCase() Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		s, ok := ctx.Value.(value.String)
		if !ok {
			return ctx, newTypeError(ctx, "string", ctx.Value.Kind().String())
		}
		str := string(s)
		if str == "" {
			return ctx, nil
		}
		runes := []rune(strings.ToLower(str))
		runes[0] = unicode.ToUpper(runes[0])
		return ctx.WithValue(value.String(string(runes))), nil
	})
}

// Append returns a transform item appending elem to a Vec value.
func Append(elem value.Value) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		vec, ok := ctx.Value.(value.Vec)
		if !ok {
			return ctx, newTypeError(ctx, "vec", ctx.Value.Kind().String())
		}
		out := make(value.Vec, len(vec)+1)
		copy(out, vec)
		out[len(vec)] = elem
		return ctx.WithValue(out), nil
	})
}

// Truncate returns a transform item truncating a string or Vec value to
// at most n elements/runes.
func Truncate(n int) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		switch v := ctx.Value.(type) {
		case value.String:
			r := []rune(string(v))
			if len(r) <= n {
				return ctx, nil
			}
			return ctx.WithValue(value.String(string(r[:n]))), nil
		case value.Vec:
			if len(v) <= n {
				return ctx, nil
			}
			return ctx.WithValue(append(value.Vec(nil), v[:n]...)), nil
		default:
			return ctx, newTypeError(ctx, "string or vec", ctx.Value.Kind().String())
		}
	})
}

// At returns a transform item replacing ctx.Value with the element at
// index of a Vec/Tuple value.
func At(index int) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		switch v := ctx.Value.(type) {
		case value.Vec:
			if index < 0 || index >= len(v) {
				return ctx, newValidationError(ctx, "index out of range")
			}
			return ctx.WithValue(v[index]), nil
		case value.Tuple:
			if index < 0 || index >= len(v) {
				return ctx, newValidationError(ctx, "index out of range")
			}
			return ctx.WithValue(v[index]), nil
		default:
			return ctx, newTypeError(ctx, "vec or tuple", ctx.Value.Kind().String())
		}
	})
}
