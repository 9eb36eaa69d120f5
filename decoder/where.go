package decoder

import (
	"github.com/syssam/keel"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// scalarOperators are the field-filter operator keys recognized under a
// `where` clause's field entries, e.g. {"age": {"gt": 18}}.
var scalarOperators = map[string]bool{
	"equals": true, "not": true, "in": true, "notIn": true,
	"lt": true, "lte": true, "gt": true, "gte": true,
	"contains": true, "startsWith": true, "endsWith": true,
}

// listOperators take a list of scalars rather than a single scalar.
var listOperators = map[string]bool{"in": true, "notIn": true}

// relationFilterVerbs are the nested-filter shapes a relation entry under
// `where` may use: some/none/every for vec relations, is/isNot for
// object relations.
var relationFilterVerbs = map[string]bool{"some": true, "none": true, "every": true, "is": true, "isNot": true}

// decodeWhere decodes a where clause (or a unique-where/list-of-unique-where
// used by connect/disconnect/delete/set) against model. A bare list at the
// top decodes each element independently, matching the shape `set`/
// `connect` use for multi-target operations.
func decodeWhere(graph *schema.Graph, model *schema.Model, raw any, path value.Path) (value.Value, error) {
	if list, ok := raw.([]any); ok {
		out := make(value.Vec, 0, len(list))
		for i, elem := range list {
			v, err := decodeWhere(graph, model, elem, path.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "where object", raw)
	}
	out := value.NewMap()
	for k, v := range obj {
		if field, ok := model.Field(k); ok {
			decoded, err := decodeFieldFilter(graph, field, v, path.Key(k))
			if err != nil {
				return nil, err
			}
			out.Set(k, decoded)
			continue
		}
		if rel, ok := model.Relation(k); ok {
			decoded, err := decodeRelationFilter(graph, rel, v, path.Key(k))
			if err != nil {
				return nil, err
			}
			out.Set(k, decoded)
			continue
		}
		return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no field or relation %q", model.Name, k).AtPath(path.Key(k).String())
	}
	return out, nil
}

func decodeFieldFilter(graph *schema.Graph, field *schema.Field, raw any, path value.Path) (value.Value, error) {
	opMap, ok := raw.(map[string]any)
	if !ok {
		// Bare scalar: shorthand for {"equals": raw}.
		return decodeFieldValue(graph, field, raw, path)
	}
	isOperatorShape := false
	for k := range opMap {
		if scalarOperators[k] {
			isOperatorShape = true
			break
		}
	}
	if !isOperatorShape {
		return nil, keel.New(keel.KindUnexpectedInputKey, "expected a filter operator under %q", path.String()).AtPath(path.String())
	}
	out := value.NewMap()
	for op, v := range opMap {
		if !scalarOperators[op] {
			return nil, keel.New(keel.KindUnexpectedInputKey, "unknown filter operator %q", op).AtPath(path.Key(op).String())
		}
		if listOperators[op] {
			list, ok := v.([]any)
			if !ok {
				return nil, typeErr(path.Key(op), "list", v)
			}
			decodedList := make(value.Vec, 0, len(list))
			for i, elem := range list {
				dv, err := decodeFieldValue(graph, field, elem, path.Key(op).Index(i))
				if err != nil {
					return nil, err
				}
				decodedList = append(decodedList, dv)
			}
			out.Set(op, decodedList)
			continue
		}
		dv, err := decodeFieldValue(graph, field, v, path.Key(op))
		if err != nil {
			return nil, err
		}
		out.Set(op, dv)
	}
	return out, nil
}

func decodeRelationFilter(graph *schema.Graph, rel *schema.Relation, raw any, path value.Path) (value.Value, error) {
	target, ok := graph.Model(rel.Target)
	if !ok {
		return nil, keel.New(keel.KindInternalServerError, "decoder: relation target %q not found", rel.Target).AtPath(path.String())
	}
	verbMap, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "relation filter object", raw)
	}
	out := value.NewMap()
	for verb, nested := range verbMap {
		if !relationFilterVerbs[verb] {
			return nil, keel.New(keel.KindUnexpectedInputKey, "unknown relation filter %q", verb).AtPath(path.Key(verb).String())
		}
		decoded, err := decodeWhere(graph, target, nested, path.Key(verb))
		if err != nil {
			return nil, err
		}
		out.Set(verb, decoded)
	}
	return out, nil
}
