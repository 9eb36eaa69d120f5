package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel/action"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/httpapi"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// memConn is the same minimal in-memory Connection fixture package
// action's own tests use.
type memConn struct {
	rows map[string][]*object.Object
}

func newMemConn() *memConn { return &memConn{rows: make(map[string][]*object.Object)} }

func (c *memConn) SaveObject(ctx context.Context, o *object.Object) error {
	rows := c.rows[o.Model().Name]
	if id, ok := o.Get("id"); ok {
		for _, existing := range rows {
			eid, _ := existing.Get("id")
			if eid == id {
				return nil
			}
		}
	} else {
		next := int64(len(rows) + 1)
		_ = o.Set(ctx, "id", value.Int64(next))
	}
	c.rows[o.Model().Name] = append(rows, o)
	return nil
}

func (c *memConn) DeleteObject(ctx context.Context, o *object.Object) error {
	rows := c.rows[o.Model().Name]
	id, _ := o.Get("id")
	out := rows[:0]
	for _, existing := range rows {
		eid, _ := existing.Get("id")
		if eid != id {
			out = append(out, existing)
		}
	}
	c.rows[o.Model().Name] = out
	return nil
}

func (c *memConn) FindUnique(ctx context.Context, model *schema.Model, where value.Value, proj *object.Projection) (*object.Object, error) {
	matches, err := c.FindMany(ctx, model, &connection.Finder{Where: where})
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

func (c *memConn) FindMany(ctx context.Context, model *schema.Model, finder *connection.Finder) ([]*object.Object, error) {
	where, _ := finder.Where.(*value.Map)
	var out []*object.Object
	for _, row := range c.rows[model.Name] {
		if matchesWhere(row, where) {
			out = append(out, row)
		}
	}
	return out, nil
}

func matchesWhere(row *object.Object, where *value.Map) bool {
	if where == nil {
		return true
	}
	for _, k := range where.Keys() {
		want, _ := where.Get(k)
		got, ok := row.Get(k)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (c *memConn) Count(ctx context.Context, model *schema.Model, finder *connection.Finder) (int64, error) {
	rows, err := c.FindMany(ctx, model, finder)
	return int64(len(rows)), err
}
func (c *memConn) Aggregate(ctx context.Context, model *schema.Model, finder *connection.Finder, aggs []connection.Aggregate) (*value.Map, error) {
	return value.NewMap(), nil
}
func (c *memConn) GroupBy(ctx context.Context, model *schema.Model, finder *connection.Finder, groupFields []string, aggs []connection.Aggregate) ([]*connection.GroupResult, error) {
	return nil, nil
}
func (c *memConn) QueryRaw(ctx context.Context, query string, args []value.Value) (value.Value, error) {
	return value.Null{}, nil
}
func (c *memConn) Transaction(ctx context.Context, fn func(ctx context.Context, tx connection.Connection) error) error {
	return fn(ctx, c)
}
func (c *memConn) Purge(ctx context.Context, model *schema.Model) error   { c.rows[model.Name] = nil; return nil }
func (c *memConn) Migrate(ctx context.Context, graph *schema.Graph) error { return nil }
func (c *memConn) Close() error                                          { return nil }

var _ connection.Connection = (*memConn)(nil)

func categoryGraph(t *testing.T) *schema.Graph {
	t.Helper()
	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "Category",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}, Queryable: true},
		},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	})
	require.NoError(t, g.Finalize())
	return g
}

func newTestServer(t *testing.T) (*httpapi.Server, *memConn, *schema.Graph) {
	t.Helper()
	g := categoryGraph(t)
	conn := newMemConn()
	d := action.New(g, conn)
	return httpapi.New(g, conn, d, nil), conn, g
}

func doJSON(t *testing.T, s *httpapi.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestCreateThenFindUniqueRoundTrips(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/Category/action/create", `{"create":{"name":"Cosmetics"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	data := created["data"].(map[string]any)
	assert.Equal(t, "Cosmetics", data["name"])

	rec = doJSON(t, s, http.MethodPost, "/Category/action/findUnique", `{"where":{"name":"Cosmetics"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var found map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Equal(t, "Cosmetics", found["data"].(map[string]any)["name"])
}

func TestOptionsReturnsEmptyObject(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodOptions, "/Category/action/create", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "{}", rec.Body.String())
}

func TestUnsupportedMethodYieldsDestinationNotFound(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/Category/action/findMany", "")
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	errBody := env["error"].(map[string]any)
	assert.Equal(t, "destination_not_found", errBody["type"])
}

func TestUnknownModelYieldsDestinationNotFound(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/NoSuchModel/action/findMany", "{}")
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	errBody := env["error"].(map[string]any)
	assert.Equal(t, "destination_not_found", errBody["type"])
}

func TestOversizedPayloadYieldsMemoryOverflow(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestServer(t)

	huge := bytes.Repeat([]byte("a"), 262_145)
	body := `{"create":{"name":"` + string(huge) + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/Category/action/create", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	errBody := env["error"].(map[string]any)
	assert.Equal(t, "internal_server_error", errBody["type"])
	assert.Equal(t, "Memory overflow", errBody["message"])
}

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, raw string) (*schema.Model, value.Value, error) {
	return nil, nil, nil
}

func TestMalformedAuthorizationHeaderRejected(t *testing.T) {
	t.Parallel()
	g := categoryGraph(t)
	conn := newMemConn()
	d := action.New(g, conn)
	s := httpapi.New(g, conn, d, stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/Category/action/findMany", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	errBody := env["error"].(map[string]any)
	assert.Equal(t, "invalid_authorization_format", errBody["type"])
}
