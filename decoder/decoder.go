// Package decoder turns a raw decoded-JSON request body (the
// encoding/json.Unmarshal-into-any shape) into the engine's typed value
// tree, under a specific model and handler. It is the single place that
// enforces which top-level keys a handler accepts and that every scalar
// coerces to its field's declared Kind — nothing downstream re-validates
// input shape.
package decoder

import (
	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// Decoder decodes request bodies against a frozen schema graph.
type Decoder struct {
	graph *schema.Graph
}

// New returns a Decoder bound to graph. graph must already be finalized.
func New(graph *schema.Graph) *Decoder {
	return &Decoder{graph: graph}
}

// allowedKeys lists the top-level request keys each handler accepts, per
// the wire protocol's handler table. Keys outside this set fail with
// unexpected_input_key at the root path.
var allowedKeys = map[schema.Handler]map[string]bool{
	schema.HandlerFindUnique:  keySet("where", "select", "include"),
	schema.HandlerFindFirst:   keySet("where", "orderBy", "cursor", "take", "skip", "select", "include"),
	schema.HandlerFindMany:    keySet("where", "orderBy", "cursor", "take", "skip", "pageSize", "pageNumber", "distinct", "select", "include"),
	schema.HandlerCreate:      keySet("create", "select", "include"),
	schema.HandlerCreateMany:  keySet("create", "select", "include"),
	schema.HandlerUpdate:      keySet("where", "update", "select", "include"),
	schema.HandlerUpdateMany:  keySet("where", "update"),
	schema.HandlerUpsert:      keySet("where", "create", "update", "select", "include"),
	schema.HandlerDelete:      keySet("where", "select", "include"),
	schema.HandlerDeleteMany:  keySet("where"),
	schema.HandlerCount:       keySet("where"),
	schema.HandlerAggregate:   keySet("where", "_count", "_sum", "_avg", "_min", "_max"),
	schema.HandlerGroupBy:     keySet("where", "by", "_count", "_sum", "_avg", "_min", "_max"),
	schema.HandlerSignIn:      keySet("credentials"),
	schema.HandlerIdentity:    keySet("select", "include"),
}

func keySet(keys ...string) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}

// Request is the decoded, typed form of a handler's request body: each
// recognized top-level key is resolved into its typed shape and stored
// under the same name, so callers (package action) can pull out exactly
// what the handler needs.
type Request struct {
	Where      value.Value
	Create     value.Value
	Update     value.Value
	Credentials *value.Map
	OrderBy    []OrderTerm
	Cursor     value.Value
	Take       int
	Skip       int
	Distinct   []string
	PageSize   int
	PageNumber int
	Select     map[string]bool
	Include    map[string]*IncludeClause
	Aggregates []connection.Aggregate
	GroupBy    []string
}

// OrderTerm is one decoded `orderBy` entry.
type OrderTerm struct {
	Field string
	Desc  bool
}

// IncludeClause is a decoded `include` entry: whether the relation is
// included at all, plus any nested finder clauses scoping it.
type IncludeClause struct {
	OrderBy  []OrderTerm
	Where    value.Value
	Take     int
	Skip     int
	Select   map[string]bool
	Include  map[string]*IncludeClause
}

// Decode validates raw's top-level keys against handler's allowed set and
// decodes each present key into its typed form.
func (d *Decoder) Decode(model *schema.Model, handler schema.Handler, raw map[string]any) (*Request, error) {
	allowed, ok := allowedKeys[handler]
	if !ok {
		return nil, keel.New(keel.KindDestinationNotFound, "decoder: unknown handler %q", handler)
	}
	for k := range raw {
		if !allowed[k] {
			return nil, keel.New(keel.KindUnexpectedInputKey, "unexpected key %q for handler %s", k, handler).AtPath(k)
		}
	}

	req := &Request{}
	var err error

	if w, ok := raw["where"]; ok {
		if req.Where, err = decodeWhere(d.graph, model, w, value.Path{}.Key("where")); err != nil {
			return nil, err
		}
	}
	if c, ok := raw["create"]; ok {
		if req.Create, err = decodeObjectInput(d.graph, model, c, value.Path{}.Key("create")); err != nil {
			return nil, err
		}
	}
	if u, ok := raw["update"]; ok {
		if req.Update, err = decodeObjectInput(d.graph, model, u, value.Path{}.Key("update")); err != nil {
			return nil, err
		}
	}
	if cred, ok := raw["credentials"]; ok {
		m, ok := cred.(map[string]any)
		if !ok {
			return nil, keel.New(keel.KindUnexpectedInputType, "credentials must be an object").AtPath("credentials")
		}
		decoded, err := decodeCredentials(model, m)
		if err != nil {
			return nil, err
		}
		req.Credentials = decoded
	}
	if cur, ok := raw["cursor"]; ok {
		if req.Cursor, err = decodeCursor(model, cur, value.Path{}.Key("cursor")); err != nil {
			return nil, err
		}
	}
	if ob, ok := raw["orderBy"]; ok {
		if req.OrderBy, err = decodeOrderBy(model, ob, value.Path{}.Key("orderBy")); err != nil {
			return nil, err
		}
	}
	if take, ok := raw["take"]; ok {
		if req.Take, err = decodeInt(take, value.Path{}.Key("take")); err != nil {
			return nil, err
		}
	}
	if skip, ok := raw["skip"]; ok {
		if req.Skip, err = decodeInt(skip, value.Path{}.Key("skip")); err != nil {
			return nil, err
		}
	}
	if sel, ok := raw["select"]; ok {
		if req.Select, err = decodeSelect(model, sel, value.Path{}.Key("select")); err != nil {
			return nil, err
		}
	}
	if inc, ok := raw["include"]; ok {
		if req.Include, err = decodeInclude(d.graph, model, inc, value.Path{}.Key("include")); err != nil {
			return nil, err
		}
	}
	if dis, ok := raw["distinct"]; ok {
		if req.Distinct, err = decodeStringList(dis, value.Path{}.Key("distinct")); err != nil {
			return nil, err
		}
	}
	if ps, ok := raw["pageSize"]; ok {
		if req.PageSize, err = decodeInt(ps, value.Path{}.Key("pageSize")); err != nil {
			return nil, err
		}
	}
	if pn, ok := raw["pageNumber"]; ok {
		if req.PageNumber, err = decodeInt(pn, value.Path{}.Key("pageNumber")); err != nil {
			return nil, err
		}
	}
	if handler == schema.HandlerAggregate || handler == schema.HandlerGroupBy {
		if req.Aggregates, err = decodeAggregateSpec(model, raw, value.Path{}); err != nil {
			return nil, err
		}
	}
	if handler == schema.HandlerGroupBy {
		by, ok := raw["by"]
		if !ok {
			return nil, keel.New(keel.KindMissingRequiredInput, "groupBy requires a \"by\" field list").AtPath("by")
		}
		if req.GroupBy, err = decodeGroupByFields(model, by, value.Path{}.Key("by")); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func decodeInt(raw any, path value.Path) (int, error) {
	switch n := raw.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, keel.New(keel.KindUnexpectedInputType, "expected a number, got %T", raw).AtPath(path.String())
	}
}

func decodeStringList(raw any, path value.Path) ([]string, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, keel.New(keel.KindUnexpectedInputType, "expected a list, got %T", raw).AtPath(path.String())
	}
	out := make([]string, 0, len(list))
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return nil, keel.New(keel.KindUnexpectedInputType, "expected a string, got %T", elem).AtPath(path.Index(i).String())
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeCursor decodes a `cursor` clause: a bare field->scalar object
// naming the row to seek from, e.g. {"id": 5} or a composite-key
// {"tenantId": 1, "id": 5}. Unlike `where`, a cursor entry is always a
// plain equals — there is no operator shape — since it names one exact
// row that paging starts from (inclusive), not a filter. sqlconn seeks on
// a single column, the paging order's key, and ignores any other entry.
func decodeCursor(model *schema.Model, raw any, path value.Path) (*value.Map, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, typeErr(path, "cursor object", raw)
	}
	if len(obj) == 0 {
		return nil, keel.New(keel.KindMissingRequiredInput, "cursor must name at least one field").AtPath(path.String())
	}
	out := value.NewMap()
	for k, v := range obj {
		field, ok := model.Field(k)
		if !ok {
			return nil, keel.New(keel.KindUnexpectedInputKey, "model %s has no field %q", model.Name, k).AtPath(path.Key(k).String())
		}
		decoded, err := decodeFieldValue(nil, field, v, path.Key(k))
		if err != nil {
			return nil, err
		}
		out.Set(k, decoded)
	}
	return out, nil
}

func decodeCredentials(model *schema.Model, raw map[string]any) (*value.Map, error) {
	identitySet := make(map[string]bool, len(model.AuthIdentityKeys))
	for _, k := range model.AuthIdentityKeys {
		identitySet[k] = true
	}
	bySet := make(map[string]bool, len(model.AuthByKeys))
	for _, k := range model.AuthByKeys {
		bySet[k] = true
	}
	var identityCount, byCount int
	for k := range raw {
		switch {
		case identitySet[k]:
			identityCount++
		case bySet[k]:
			byCount++
		default:
			return nil, keel.New(keel.KindUnexpectedInputKey, "unexpected credentials key %q", k).AtPath("credentials." + k)
		}
	}
	if identityCount != 1 || byCount != 1 {
		return nil, keel.New(keel.KindMissingRequiredInput, "credentials must contain exactly one identity key and one auth-by key").AtPath("credentials")
	}
	out := value.NewMap()
	for k, v := range raw {
		field, ok := model.Field(k)
		if !ok {
			return nil, keel.New(keel.KindUnexpectedInputKey, "unexpected credentials key %q", k).AtPath("credentials." + k)
		}
		decoded, err := decodeFieldValue(nil, field, v, value.Path{}.Key("credentials").Key(k))
		if err != nil {
			return nil, err
		}
		out.Set(k, decoded)
	}
	return out, nil
}
