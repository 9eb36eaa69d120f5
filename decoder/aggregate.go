package decoder

import (
	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

var aggregateOps = map[string]connection.AggregateOp{
	"_count": connection.AggregateCount,
	"_sum":   connection.AggregateSum,
	"_avg":   connection.AggregateAvg,
	"_min":   connection.AggregateMin,
	"_max":   connection.AggregateMax,
}

// decodeAggregateSpec decodes the `_count`/`_sum`/`_avg`/`_min`/`_max`
// top-level keys an aggregate/groupBy request carries. `_count: true`
// requests a single row count with no field; any other op, and a
// per-field `_count`, name the fields to aggregate as
// `{"fieldName": true}`.
func decodeAggregateSpec(model *schema.Model, raw map[string]any, path value.Path) ([]connection.Aggregate, error) {
	var out []connection.Aggregate
	for key, op := range aggregateOps {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if key == "_count" {
			if b, ok := v.(bool); ok {
				if b {
					out = append(out, connection.Aggregate{Op: connection.AggregateCount, As: "_count"})
				}
				continue
			}
		}
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, typeErr(path.Key(key), "object", v)
		}
		for fname, want := range fields {
			field, ok := model.Field(fname)
			if !ok || !field.Queryable {
				return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no aggregatable field %q", model.Name, fname).AtPath(path.Key(key).Key(fname).String())
			}
			b, ok := want.(bool)
			if !ok || !b {
				continue
			}
			out = append(out, connection.Aggregate{Op: op, Field: fname, As: key + "." + fname})
		}
	}
	return out, nil
}

// decodeGroupByFields decodes the `by` list a groupBy request names.
func decodeGroupByFields(model *schema.Model, raw any, path value.Path) ([]string, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, typeErr(path, "list", raw)
	}
	out := make([]string, 0, len(list))
	for i, elem := range list {
		name, ok := elem.(string)
		if !ok {
			return nil, typeErr(path.Index(i), "string", elem)
		}
		if _, ok := model.Field(name); !ok {
			return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no field %q", model.Name, name).AtPath(path.Index(i).String())
		}
		out = append(out, name)
	}
	return out, nil
}
