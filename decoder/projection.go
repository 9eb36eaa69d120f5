package decoder

import (
	"github.com/syssam/keel"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// decodeOrderBy decodes an `orderBy` clause: either a single
// {"field": "asc"|"desc"} object or a list of them, applied in order for
// multi-key sorts.
func decodeOrderBy(model *schema.Model, raw any, path value.Path) ([]OrderTerm, error) {
	if list, ok := raw.([]any); ok {
		out := make([]OrderTerm, 0, len(list))
		for i, elem := range list {
			terms, err := decodeOrderBy(model, elem, path.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, terms...)
		}
		return out, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "orderBy object", raw)
	}
	out := make([]OrderTerm, 0, len(obj))
	for k, v := range obj {
		field, ok := model.Field(k)
		if !ok || !field.Sortable {
			return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no sortable field %q", model.Name, k).AtPath(path.Key(k).String())
		}
		dir, ok := v.(string)
		if !ok || (dir != "asc" && dir != "desc") {
			return nil, keel.New(keel.KindUnexpectedInputValue, "orderBy direction must be \"asc\" or \"desc\"").AtPath(path.Key(k).String())
		}
		out = append(out, OrderTerm{Field: k, Desc: dir == "desc"})
	}
	return out, nil
}

// decodeSelect decodes a `select` clause into a field-name set.
func decodeSelect(model *schema.Model, raw any, path value.Path) (map[string]bool, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "select object", raw)
	}
	out := make(map[string]bool, len(obj))
	for k, v := range obj {
		field, ok := model.Field(k)
		if !ok {
			return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no field %q", model.Name, k).AtPath(path.Key(k).String())
		}
		if field.Read == schema.ReadNoRead {
			return nil, keel.New(keel.KindUnexpectedInputKey, "field %q is never readable", k).AtPath(path.Key(k).String())
		}
		b, ok := v.(bool)
		if !ok {
			return nil, typeErr(path.Key(k), "bool", v)
		}
		out[k] = b
	}
	return out, nil
}

// decodeInclude decodes an `include` clause into per-relation clauses,
// each optionally scoped by its own where/orderBy/take/skip/select/include.
func decodeInclude(graph *schema.Graph, model *schema.Model, raw any, path value.Path) (map[string]*IncludeClause, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "include object", raw)
	}
	out := make(map[string]*IncludeClause, len(obj))
	for k, v := range obj {
		rel, ok := model.Relation(k)
		if !ok {
			return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no relation %q", model.Name, k).AtPath(path.Key(k).String())
		}
		target, ok := graph.Model(rel.Target)
		if !ok {
			return nil, keel.New(keel.KindInternalServerError, "decoder: relation target %q not found", rel.Target).AtPath(path.Key(k).String())
		}
		clause := &IncludeClause{}
		switch detail := v.(type) {
		case bool:
			if !detail {
				continue
			}
		case map[string]any:
			sub := path.Key(k)
			if w, ok := detail["where"]; ok {
				decoded, err := decodeWhere(graph, target, w, sub.Key("where"))
				if err != nil {
					return nil, err
				}
				clause.Where = decoded
			}
			if ob, ok := detail["orderBy"]; ok {
				terms, err := decodeOrderBy(target, ob, sub.Key("orderBy"))
				if err != nil {
					return nil, err
				}
				clause.OrderBy = terms
			}
			if take, ok := detail["take"]; ok {
				n, err := decodeInt(take, sub.Key("take"))
				if err != nil {
					return nil, err
				}
				clause.Take = n
			}
			if skip, ok := detail["skip"]; ok {
				n, err := decodeInt(skip, sub.Key("skip"))
				if err != nil {
					return nil, err
				}
				clause.Skip = n
			}
			if sel, ok := detail["select"]; ok {
				s, err := decodeSelect(target, sel, sub.Key("select"))
				if err != nil {
					return nil, err
				}
				clause.Select = s
			}
			if inc, ok := detail["include"]; ok {
				nested, err := decodeInclude(graph, target, inc, sub.Key("include"))
				if err != nil {
					return nil, err
				}
				clause.Include = nested
			}
		default:
			return nil, typeErr(path.Key(k), "bool or object", v)
		}
		out[k] = clause
	}
	return out, nil
}
