package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/syssam/keel/value"
)

// arith applies a same-width binary numeric operation to ctx.Value,
// dispatching on the dynamic Kind so `add`/`sub`/`mul`/`div`/`min` share
// one width-preserving core. Per the open question on mixed-width
// arithmetic, the operand is coerced to the current value's width rather
// than the other way around.
func arith(v value.Value, operand value.Value, op func(a, b float64) float64, decOp func(a, b decimal.Decimal) decimal.Decimal) (value.Value, error) {
	switch cur := v.(type) {
	case value.Int32:
		o, err := asFloat(operand)
		if err != nil {
			return nil, err
		}
		return value.Int32(op(float64(cur), o)), nil
	case value.Int64:
		o, err := asFloat(operand)
		if err != nil {
			return nil, err
		}
		return value.Int64(op(float64(cur), o)), nil
	case value.Float32:
		o, err := asFloat(operand)
		if err != nil {
			return nil, err
		}
		return value.Float32(op(float64(cur), o)), nil
	case value.Float64:
		o, err := asFloat(operand)
		if err != nil {
			return nil, err
		}
		return value.Float64(op(float64(cur), o)), nil
	case value.Decimal:
		o, err := asDecimal(operand)
		if err != nil {
			return nil, err
		}
		return value.NewDecimal(decOp(cur.D, o)), nil
	default:
		return nil, fmt.Errorf("pipeline: arithmetic not supported on %s", v.Kind())
	}
}

func asFloat(v value.Value) (float64, error) {
	switch n := v.(type) {
	case value.Int32:
		return float64(n), nil
	case value.Int64:
		return float64(n), nil
	case value.Float32:
		return float64(n), nil
	case value.Float64:
		return float64(n), nil
	case value.Decimal:
		f, _ := n.D.Float64()
		return f, nil
	default:
		return 0, fmt.Errorf("pipeline: %s is not numeric", v.Kind())
	}
}

func asDecimal(v value.Value) (decimal.Decimal, error) {
	switch n := v.(type) {
	case value.Int32:
		return decimal.NewFromInt(int64(n)), nil
	case value.Int64:
		return decimal.NewFromInt(int64(n)), nil
	case value.Float32:
		return decimal.NewFromFloat(float64(n)), nil
	case value.Float64:
		return decimal.NewFromFloat(float64(n)), nil
	case value.Decimal:
		return n.D, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("pipeline: %s is not numeric", v.Kind())
	}
}
