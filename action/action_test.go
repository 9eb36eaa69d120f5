package action_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel"
	"github.com/syssam/keel/action"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// memConn is the same minimal in-memory Connection fixture the engine and
// relationwalker package tests use.
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

func userGraph(t *testing.T) *schema.Graph {
	t.Helper()
	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name:             "User",
		AuthIdentityKeys: []string{"email"},
		AuthByKeys:       []string{"password"},
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "email", Type: schema.FieldType{Kind: value.KindString}, IdentityIdentifier: true, Queryable: true},
			{Name: "password", Type: schema.FieldType{Kind: value.KindString}, IdentityChecker: pipeline.New(pipeline.ItemFunc(func(ctx pipeline.Ctx) (pipeline.Ctx, error) {
				stored, _ := ctx.Object.Get("password")
				if stored != ctx.Value {
					return ctx, keel.ValidationError("password", "credential does not match")
				}
				return ctx, nil
			}))},
		},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	})
	require.NoError(t, g.Finalize())
	return g
}

type stubIssuer struct{ token string }

func (s *stubIssuer) Issue(ctx context.Context, identity *object.Object) (string, error) {
	return s.token, nil
}

func mustModel(t *testing.T, g *schema.Graph, name string) *schema.Model {
	t.Helper()
	m, ok := g.Model(name)
	require.True(t, ok)
	return m
}

func TestDispatchCreateAndFindUnique(t *testing.T) {
	t.Parallel()
	g := userGraph(t)
	conn := newMemConn()
	d := action.New(g, conn)
	ctx := context.Background()
	userModel := mustModel(t, g, "User")

	created, err := d.Dispatch(ctx, &action.Request{
		Model:     userModel,
		Handler:   schema.HandlerCreate,
		Initiator: object.ProgramCode(),
		Body: map[string]any{
			"create": map[string]any{
				"email":    "a@b.c",
				"password": "s3cret",
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Data)

	found, err := d.Dispatch(ctx, &action.Request{
		Model:     userModel,
		Handler:   schema.HandlerFindUnique,
		Initiator: object.ProgramCode(),
		Body: map[string]any{
			"where": map[string]any{"email": "a@b.c"},
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, found.Data)
}

func TestDispatchSignInSuccessAndFailure(t *testing.T) {
	t.Parallel()
	g := userGraph(t)
	conn := newMemConn()
	d := action.New(g, conn).WithIssuer(&stubIssuer{token: "signed.jwt.token"})
	ctx := context.Background()
	userModel := mustModel(t, g, "User")

	_, err := d.Dispatch(ctx, &action.Request{
		Model:     userModel,
		Handler:   schema.HandlerCreate,
		Initiator: object.ProgramCode(),
		Body: map[string]any{
			"create": map[string]any{"email": "a@b.c", "password": "s3cret"},
		},
	})
	require.NoError(t, err)

	resp, err := d.Dispatch(ctx, &action.Request{
		Model:     userModel,
		Handler:   schema.HandlerSignIn,
		Initiator: object.Anonymous(),
		Body: map[string]any{
			"credentials": map[string]any{"email": "a@b.c", "password": "s3cret"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "signed.jwt.token", resp.Meta.Token)

	_, err = d.Dispatch(ctx, &action.Request{
		Model:     userModel,
		Handler:   schema.HandlerSignIn,
		Initiator: object.Anonymous(),
		Body: map[string]any{
			"credentials": map[string]any{"email": "a@b.c", "password": "wrong"},
		},
	})
	require.Error(t, err)
	assert.True(t, keel.IsKind(err, keel.KindValidationError))
}

func TestDispatchUnknownActionRejected(t *testing.T) {
	t.Parallel()
	g := userGraph(t)
	userModel := mustModel(t, g, "User")
	userModel.Actions = map[schema.Handler]bool{schema.HandlerFindUnique: true}
	conn := newMemConn()
	d := action.New(g, conn)

	_, err := d.Dispatch(context.Background(), &action.Request{
		Model:     userModel,
		Handler:   schema.HandlerDelete,
		Initiator: object.ProgramCode(),
		Body:      map[string]any{"where": map[string]any{"id": float64(1)}},
	})
	require.Error(t, err)
	assert.True(t, keel.IsKind(err, keel.KindDestinationNotFound))
}

func TestErrorEnvelopeShape(t *testing.T) {
	t.Parallel()
	err := keel.ValidationError("credentials.password", "credential does not match")
	env := action.ToEnvelope(err)
	assert.Equal(t, "validation_error", env.Error.Type)
	assert.Equal(t, "credential does not match", env.Error.Fields["credentials.password"])
	assert.Equal(t, 422, action.StatusFor(keel.KindValidationError))
}
