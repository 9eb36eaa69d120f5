package object

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/syssam/keel/value"
)

// AtomicOp names one of the connector-pushed-down atomic update
// operations.
type AtomicOp uint8

const (
	AtomicIncrement AtomicOp = iota
	AtomicDecrement
	AtomicMultiply
	AtomicDivide
	AtomicPush
)

// AtomicUpdate is one queued atomic update on a field. Multiple updaters
// on the same field compose in input order within a single save_object
// call, per the Concurrency & Resource Model's ordering guarantee.
type AtomicUpdate struct {
	Op      AtomicOp
	Operand value.Value
}

// ApplyAtomicUpdate folds operand into cur using op, preserving cur's
// width (the engine's decision for the open question on mixed-width
// atomic updaters: the operand is coerced to the field's declared width,
// and integer overflow saturates rather than panicking).
func ApplyAtomicUpdate(cur value.Value, u AtomicUpdate) (value.Value, error) {
	if u.Op == AtomicPush {
		vec, ok := cur.(value.Vec)
		if !ok {
			return nil, fmt.Errorf("object: push requires a vec field, got %s", cur.Kind())
		}
		return append(append(value.Vec(nil), vec...), u.Operand), nil
	}
	switch c := cur.(type) {
	case value.Int32:
		o, err := coerceInt(u.Operand)
		if err != nil {
			return nil, err
		}
		return value.Int32(saturateInt32(applyIntOp(int64(c), o, u.Op))), nil
	case value.Int64:
		o, err := coerceInt(u.Operand)
		if err != nil {
			return nil, err
		}
		return value.Int64(applyIntOp(int64(c), o, u.Op)), nil
	case value.Float32:
		o, err := coerceFloat(u.Operand)
		if err != nil {
			return nil, err
		}
		return value.Float32(applyFloatOp(float64(c), o, u.Op)), nil
	case value.Float64:
		o, err := coerceFloat(u.Operand)
		if err != nil {
			return nil, err
		}
		return value.Float64(applyFloatOp(float64(c), o, u.Op)), nil
	case value.Decimal:
		o, err := coerceDecimal(u.Operand)
		if err != nil {
			return nil, err
		}
		return value.NewDecimal(applyDecimalOp(c.D, o, u.Op)), nil
	default:
		return nil, fmt.Errorf("object: atomic update not supported on %s", cur.Kind())
	}
}

func applyIntOp(cur, operand int64, op AtomicOp) int64 {
	a, b, r := big.NewInt(cur), big.NewInt(operand), new(big.Int)
	switch op {
	case AtomicIncrement:
		r.Add(a, b)
	case AtomicDecrement:
		r.Sub(a, b)
	case AtomicMultiply:
		r.Mul(a, b)
	case AtomicDivide:
		if operand == 0 {
			return cur
		}
		r.Quo(a, b)
	default:
		return cur
	}
	if r.IsInt64() {
		return r.Int64()
	}
	if r.Sign() > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}

func applyFloatOp(cur, operand float64, op AtomicOp) float64 {
	switch op {
	case AtomicIncrement:
		return cur + operand
	case AtomicDecrement:
		return cur - operand
	case AtomicMultiply:
		return cur * operand
	case AtomicDivide:
		if operand == 0 {
			return 0
		}
		return cur / operand
	default:
		return cur
	}
}

func applyDecimalOp(cur, operand decimal.Decimal, op AtomicOp) decimal.Decimal {
	switch op {
	case AtomicIncrement:
		return cur.Add(operand)
	case AtomicDecrement:
		return cur.Sub(operand)
	case AtomicMultiply:
		return cur.Mul(operand)
	case AtomicDivide:
		if operand.IsZero() {
			return cur
		}
		return cur.Div(operand)
	default:
		return cur
	}
}

func saturateInt32(v int64) int64 {
	const max32 = int64(1<<31 - 1)
	const min32 = -int64(1 << 31)
	if v > max32 {
		return max32
	}
	if v < min32 {
		return min32
	}
	return v
}

func coerceInt(v value.Value) (int64, error) {
	switch n := v.(type) {
	case value.Int32:
		return int64(n), nil
	case value.Int64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("object: atomic operand must be an integer, got %s", v.Kind())
	}
}

func coerceFloat(v value.Value) (float64, error) {
	switch n := v.(type) {
	case value.Int32:
		return float64(n), nil
	case value.Int64:
		return float64(n), nil
	case value.Float32:
		return float64(n), nil
	case value.Float64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("object: atomic operand must be numeric, got %s", v.Kind())
	}
}

func coerceDecimal(v value.Value) (decimal.Decimal, error) {
	switch n := v.(type) {
	case value.Int32:
		return decimal.NewFromInt(int64(n)), nil
	case value.Int64:
		return decimal.NewFromInt(int64(n)), nil
	case value.Decimal:
		return n.D, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("object: atomic operand must be decimal-compatible, got %s", v.Kind())
	}
}
