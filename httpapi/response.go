package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/syssam/keel"
	"github.com/syssam/keel/action"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/value"
)

// envelope is the §6 response shape shared by single and many results;
// Meta is omitted entirely for a single result.
type envelope struct {
	Data any  `json:"data"`
	Meta *any `json:"meta,omitempty"`
}

type metaJSON struct {
	Count         *int64 `json:"count,omitempty"`
	NumberOfPages *int64 `json:"numberOfPages,omitempty"`
	Token         string `json:"token,omitempty"`
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *action.Response) {
	env := envelope{Data: toJSON(resp.Data)}
	if resp.Meta != nil {
		m := any(metaJSON{Count: resp.Meta.Count, NumberOfPages: resp.Meta.NumberOfPages, Token: resp.Meta.Token})
		env.Meta = &m
	}
	s.writeJSON(w, http.StatusOK, env)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := keel.KindInternalServerError
	var e *keel.Error
	if errors.As(err, &e) {
		kind = e.Kind
	}
	s.writeJSON(w, action.StatusFor(kind), action.ToEnvelope(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("httpapi: encoding response failed", "err", err)
	}
}

// toJSON converts a Response.Data payload — a rendered value.Value tree,
// or one of the raw Go types the query handlers return directly (int64
// from count, []*connection.GroupResult from groupBy) — into a plain Go
// value encoding/json can marshal.
func toJSON(data any) any {
	switch d := data.(type) {
	case nil:
		return nil
	case int64:
		return d
	case []*connection.GroupResult:
		out := make([]map[string]any, len(d))
		for i, g := range d {
			row := make(map[string]any, len(g.Keys)+len(g.Aggregates))
			for k, v := range g.Keys {
				row[k] = valueToJSON(v)
			}
			for k, v := range g.Aggregates {
				row[k] = valueToJSON(v)
			}
			out[i] = row
		}
		return out
	case value.Value:
		return valueToJSON(d)
	default:
		return d
	}
}

// valueToJSON converts one value.Value node (and, recursively, its
// children) into the plain map[string]any/[]any/string/... shape
// encoding/json expects.
func valueToJSON(v value.Value) any {
	if v == nil || value.IsNull(v) {
		return nil
	}
	switch v := v.(type) {
	case value.Bool:
		return bool(v)
	case value.Int32:
		return int32(v)
	case value.Int64:
		return int64(v)
	case value.Float32:
		return float32(v)
	case value.Float64:
		return float64(v)
	case value.Decimal:
		return v.D.String()
	case value.String:
		return string(v)
	case value.Date:
		return v.String()
	case value.DateTime:
		return v.T.Format("2006-01-02T15:04:05.999999999Z07:00")
	case value.ObjectID:
		return v.String()
	case value.Vec:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = valueToJSON(elem)
		}
		return out
	case value.Tuple:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = valueToJSON(elem)
		}
		return out
	case *value.Map:
		out := make(map[string]any, v.Len())
		v.Range(func(key string, val value.Value) bool {
			out[key] = valueToJSON(val)
			return true
		})
		return out
	default:
		return nil
	}
}
