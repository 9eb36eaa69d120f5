package decoder

import (
	"github.com/syssam/keel"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// relationVerbs names the nested-mutation verbs the relation walker
// understands, per the Relation Walker's expansion table. The set is used
// here only to recognize which key decodeRelationOp is looking at; the
// walker itself decides legality (e.g. a many-to-one relation rejecting
// `set`).
var relationVerbs = map[string]bool{
	"create": true, "connect": true, "connectOrCreate": true, "set": true,
	"disconnect": true, "update": true, "upsert": true, "delete": true,
	"updateMany": true, "deleteMany": true, "createMany": true,
}

// decodeObjectInput decodes a create/update payload: raw is either a
// single object (create, update, the create half of upsert) or a list of
// objects (createMany). Each key is either a plain field (coerced via
// decodeFieldValue) or a relation name (decoded into a nested verb map
// for the relation walker to expand).
func decodeObjectInput(graph *schema.Graph, model *schema.Model, raw any, path value.Path) (value.Value, error) {
	if list, ok := raw.([]any); ok {
		out := make(value.Vec, 0, len(list))
		for i, elem := range list {
			v, err := decodeObjectInput(graph, model, elem, path.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "object", raw)
	}
	out := value.NewMap()
	for k, v := range obj {
		if field, ok := model.Field(k); ok {
			decoded, err := decodeFieldValue(graph, field, v, path.Key(k))
			if err != nil {
				return nil, err
			}
			out.Set(k, decoded)
			continue
		}
		if rel, ok := model.Relation(k); ok {
			decoded, err := decodeRelationInput(graph, rel, v, path.Key(k))
			if err != nil {
				return nil, err
			}
			out.Set(k, decoded)
			continue
		}
		if _, ok := model.Property(k); ok {
			return nil, keel.New(keel.KindUnexpectedInputKey, "property %q is read-only through a getter and cannot appear in %s", k, path.String()).AtPath(path.Key(k).String())
		}
		return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no field or relation %q", model.Name, k).AtPath(path.Key(k).String())
	}
	return out, nil
}

// decodeRelationInput decodes the verb map nested under a relation key,
// e.g. {"connect": [...]} or {"create": {...}}.
func decodeRelationInput(graph *schema.Graph, rel *schema.Relation, raw any, path value.Path) (value.Value, error) {
	verbMap, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "relation operation object", raw)
	}
	target, ok := graph.Model(rel.Target)
	if !ok {
		return nil, keel.New(keel.KindInternalServerError, "decoder: relation target %q not found", rel.Target).AtPath(path.String())
	}
	out := value.NewMap()
	for verb, payload := range verbMap {
		if !relationVerbs[verb] {
			return nil, keel.New(keel.KindUnexpectedInputKey, "unknown relation verb %q", verb).AtPath(path.Key(verb).String())
		}
		decoded, err := decodeRelationVerbPayload(graph, target, verb, payload, path.Key(verb))
		if err != nil {
			return nil, err
		}
		out.Set(verb, decoded)
	}
	return out, nil
}

func decodeRelationVerbPayload(graph *schema.Graph, target *schema.Model, verb string, raw any, path value.Path) (value.Value, error) {
	switch verb {
	case "create", "createMany":
		return decodeObjectInput(graph, target, raw, path)
	case "connect", "disconnect", "delete", "deleteMany":
		return decodeWhere(graph, target, raw, path)
	case "set":
		return decodeWhere(graph, target, raw, path)
	case "update", "updateMany":
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, typeErr(path, "object", raw)
		}
		out := value.NewMap()
		if w, ok := m["where"]; ok {
			decoded, err := decodeWhere(graph, target, w, path.Key("where"))
			if err != nil {
				return nil, err
			}
			out.Set("where", decoded)
		}
		if u, ok := m["update"]; ok {
			decoded, err := decodeObjectInput(graph, target, u, path.Key("update"))
			if err != nil {
				return nil, err
			}
			out.Set("update", decoded)
		} else if verb == "update" && len(m) > 0 {
			// A bare update (no where/update split) targets the single
			// connected object directly: the whole map is the update body.
			decoded, err := decodeObjectInput(graph, target, raw, path)
			if err != nil {
				return nil, err
			}
			return decoded, nil
		}
		return out, nil
	case "upsert":
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, typeErr(path, "object", raw)
		}
		out := value.NewMap()
		if w, ok := m["where"]; ok {
			decoded, err := decodeWhere(graph, target, w, path.Key("where"))
			if err != nil {
				return nil, err
			}
			out.Set("where", decoded)
		}
		if c, ok := m["create"]; ok {
			decoded, err := decodeObjectInput(graph, target, c, path.Key("create"))
			if err != nil {
				return nil, err
			}
			out.Set("create", decoded)
		}
		if u, ok := m["update"]; ok {
			decoded, err := decodeObjectInput(graph, target, u, path.Key("update"))
			if err != nil {
				return nil, err
			}
			out.Set("update", decoded)
		}
		return out, nil
	case "connectOrCreate":
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, typeErr(path, "object", raw)
		}
		out := value.NewMap()
		if w, ok := m["where"]; ok {
			decoded, err := decodeWhere(graph, target, w, path.Key("where"))
			if err != nil {
				return nil, err
			}
			out.Set("where", decoded)
		}
		if c, ok := m["create"]; ok {
			decoded, err := decodeObjectInput(graph, target, c, path.Key("create"))
			if err != nil {
				return nil, err
			}
			out.Set("create", decoded)
		}
		return out, nil
	default:
		return nil, keel.New(keel.KindUnexpectedInputKey, "unknown relation verb %q", verb).AtPath(path.String())
	}
}
