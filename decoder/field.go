package decoder

import (
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"

	"github.com/syssam/keel"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// decodeFieldValue coerces raw (a JSON-decoded any) to field's declared
// Kind, per the primitive-coercion rules in the Decoder component design.
// graph may be nil when the caller already knows no enum lookup is
// needed (e.g. credential fields, which are never enum-typed).
func decodeFieldValue(graph *schema.Graph, field *schema.Field, raw any, path value.Path) (value.Value, error) {
	if raw == nil {
		if !field.Optional {
			return nil, keel.New(keel.KindMissingRequiredInput, "field %q is required", field.Name).AtPath(path.String())
		}
		return value.Null{}, nil
	}
	switch field.Type.Kind {
	case value.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, typeErr(path, "bool", raw)
		}
		return value.Bool(b), nil
	case value.KindInt32:
		n, ok := asNumber(raw)
		if !ok {
			return nil, typeErr(path, "int32", raw)
		}
		return value.Int32(int32(n)), nil
	case value.KindInt64:
		n, ok := asNumber(raw)
		if !ok {
			return nil, typeErr(path, "int64", raw)
		}
		return value.Int64(int64(n)), nil
	case value.KindFloat32:
		n, ok := asNumber(raw)
		if !ok {
			return nil, typeErr(path, "float32", raw)
		}
		return value.Float32(float32(n)), nil
	case value.KindFloat64:
		n, ok := asNumber(raw)
		if !ok {
			return nil, typeErr(path, "float64", raw)
		}
		return value.Float64(n), nil
	case value.KindDecimal:
		switch v := raw.(type) {
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, keel.New(keel.KindUnexpectedInputValue, "invalid decimal %q", v).AtPath(path.String())
			}
			return value.NewDecimal(d), nil
		case float64:
			return value.NewDecimal(decimal.NewFromFloat(v)), nil
		default:
			return nil, typeErr(path, "decimal", raw)
		}
	case value.KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, typeErr(path, "string", raw)
		}
		if field.Type.EnumName != "" && graph != nil {
			enum, ok := graph.Enum(field.Type.EnumName)
			if ok && !enum.Valid(s) {
				return nil, keel.New(keel.KindUnexpectedInputValue, "invalid enum value %q for %s", s, field.Type.EnumName).AtPath(path.String())
			}
		}
		return value.String(s), nil
	case value.KindDate:
		s, ok := raw.(string)
		if !ok {
			return nil, typeErr(path, "date", raw)
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, keel.New(keel.KindUnexpectedInputValue, "invalid date %q", s).AtPath(path.String())
		}
		return value.DateOf(t), nil
	case value.KindDateTime:
		s, ok := raw.(string)
		if !ok {
			return nil, typeErr(path, "datetime", raw)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, keel.New(keel.KindUnexpectedInputValue, "invalid datetime %q", s).AtPath(path.String())
		}
		return value.NewDateTime(t), nil
	case value.KindObjectID:
		s, ok := raw.(string)
		if !ok {
			return nil, typeErr(path, "objectId", raw)
		}
		b, err := hex.DecodeString(s)
		if err != nil || len(b) != 12 {
			return nil, keel.New(keel.KindUnexpectedInputValue, "invalid objectId %q", s).AtPath(path.String())
		}
		var id value.ObjectID
		copy(id[:], b)
		return id, nil
	case value.KindVec:
		list, ok := raw.([]any)
		if !ok {
			return nil, typeErr(path, "vec", raw)
		}
		out := make(value.Vec, 0, len(list))
		for i, elem := range list {
			// Each element is decoded by its JSON shape through
			// decodeLooseValue; no per-element field kind is applied.
			v, err := decodeLooseValue(elem, path.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, keel.New(keel.KindInternalServerError, "decoder: unsupported field kind %s", field.Type.Kind).AtPath(path.String())
	}
}

// decodeLooseValue decodes a JSON value with no target Field to guide it,
// used for list elements whose declared element type the schema does not
// separately track.
func decodeLooseValue(raw any, path value.Path) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return value.Null{}, nil
	case bool:
		return value.Bool(v), nil
	case float64:
		return value.Float64(v), nil
	case string:
		return value.String(v), nil
	case []any:
		out := make(value.Vec, 0, len(v))
		for i, elem := range v {
			dv, err := decodeLooseValue(elem, path.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, dv)
		}
		return out, nil
	case map[string]any:
		out := value.NewMap()
		for k, elem := range v {
			dv, err := decodeLooseValue(elem, path.Key(k))
			if err != nil {
				return nil, err
			}
			out.Set(k, dv)
		}
		return out, nil
	default:
		return nil, typeErr(path, "json value", raw)
	}
}

func asNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func typeErr(path value.Path, expected string, got any) error {
	return keel.New(keel.KindUnexpectedInputType, "expected %s, got %T", expected, got).AtPath(path.String())
}
