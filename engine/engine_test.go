package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/engine"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// memConn is a minimal in-memory Connection, identical in spirit to the
// relationwalker package's own fixture: model-keyed slices of rows keyed on
// "id", sufficient to exercise the engine's routines without a real store.
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
	if finder.Take > 0 && len(out) > finder.Take {
		out = out[:finder.Take]
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
	rows, err := c.FindMany(ctx, model, finder)
	if err != nil {
		return nil, err
	}
	out := value.NewMap()
	for _, agg := range aggs {
		if agg.Op == connection.AggregateCount {
			out.Set(agg.As, value.Int64(int64(len(rows))))
		}
	}
	return out, nil
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

func blogGraph(t *testing.T) *schema.Graph {
	t.Helper()
	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "Author",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}},
		},
		Relations: []*schema.Relation{
			{Name: "posts", Target: "Post", IsVec: true},
		},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	})
	g.AddModel(&schema.Model{
		Name: "Post",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "title", Type: schema.FieldType{Kind: value.KindString}},
			{Name: "authorId", Type: schema.FieldType{Kind: value.KindInt64}, Optional: true},
		},
		Relations: []*schema.Relation{
			{Name: "author", Target: "Author", Fields: []string{"authorId"}, References: []string{"id"}, Optional: true},
		},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	})
	require.NoError(t, g.Finalize())
	return g
}

func mustModel(t *testing.T, g *schema.Graph, name string) *schema.Model {
	t.Helper()
	m, ok := g.Model(name)
	require.True(t, ok)
	return m
}

func TestEngineCreateWithNestedRelationAndRender(t *testing.T) {
	t.Parallel()
	g := blogGraph(t)
	conn := newMemConn()
	e := engine.New(g)
	ctx := context.Background()

	authorModel := mustModel(t, g, "Author")

	post := value.NewMap()
	post.Set("title", value.String("Hello world"))
	posts := value.Vec{post}
	create := value.NewMap()
	create.Set("name", value.String("Ada"))
	create.Set("posts", func() value.Value {
		m := value.NewMap()
		m.Set("create", posts)
		return m
	}())

	req := &decoder.Request{Create: create}
	author, err := e.Create(ctx, conn, authorModel, object.Initiator{}, req)
	require.NoError(t, err)
	require.NotNil(t, author)

	rendered, err := e.Render(ctx, conn, author, nil, map[string]*decoder.IncludeClause{
		"posts": {},
	})
	require.NoError(t, err)
	m, ok := rendered.(*value.Map)
	require.True(t, ok)
	list, ok := m.Get("posts")
	require.True(t, ok)
	vec, ok := list.(value.Vec)
	require.True(t, ok)
	require.Len(t, vec, 1)
}

func TestEngineFindUniqueNoMatchReturnsNil(t *testing.T) {
	t.Parallel()
	g := blogGraph(t)
	conn := newMemConn()
	e := engine.New(g)
	ctx := context.Background()
	authorModel := mustModel(t, g, "Author")

	where := value.NewMap()
	where.Set("id", value.Int64(999))
	req := &decoder.Request{Where: where}
	found, err := e.FindUnique(ctx, conn, authorModel, req)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestEngineUpdateNotFound(t *testing.T) {
	t.Parallel()
	g := blogGraph(t)
	conn := newMemConn()
	e := engine.New(g)
	ctx := context.Background()
	authorModel := mustModel(t, g, "Author")

	where := value.NewMap()
	where.Set("id", value.Int64(1))
	update := value.NewMap()
	update.Set("name", value.String("Grace"))
	req := &decoder.Request{Where: where, Update: update}
	_, err := e.Update(ctx, conn, authorModel, object.Initiator{}, req)
	assert.Error(t, err)
}

func TestEngineCreateManyPartialFailure(t *testing.T) {
	t.Parallel()
	g := blogGraph(t)
	conn := newMemConn()
	e := engine.New(g)
	ctx := context.Background()
	authorModel := mustModel(t, g, "Author")

	good := value.NewMap()
	good.Set("name", value.String("Ada"))
	bad := value.String("not an object")

	req := &decoder.Request{Create: value.Vec{good, bad}}
	objs, errs := e.CreateMany(ctx, conn, authorModel, object.Initiator{}, req)
	assert.Len(t, objs, 1)
	assert.Len(t, errs, 1)
}

func TestEngineDeleteRemovesRow(t *testing.T) {
	t.Parallel()
	g := blogGraph(t)
	conn := newMemConn()
	e := engine.New(g)
	ctx := context.Background()
	authorModel := mustModel(t, g, "Author")

	create := value.NewMap()
	create.Set("name", value.String("Ada"))
	author, err := e.Create(ctx, conn, authorModel, object.Initiator{}, &decoder.Request{Create: create})
	require.NoError(t, err)

	id, _ := author.Get("id")
	where := value.NewMap()
	where.Set("id", id)
	deleted, err := e.Delete(ctx, conn, authorModel, object.Initiator{}, &decoder.Request{Where: where})
	require.NoError(t, err)
	require.NotNil(t, deleted)

	remaining, err := e.FindMany(ctx, conn, authorModel, &decoder.Request{})
	require.NoError(t, err)
	assert.Len(t, remaining, 0)
}

func TestEngineCountAndAggregate(t *testing.T) {
	t.Parallel()
	g := blogGraph(t)
	conn := newMemConn()
	e := engine.New(g)
	ctx := context.Background()
	authorModel := mustModel(t, g, "Author")

	for _, name := range []string{"Ada", "Grace"} {
		create := value.NewMap()
		create.Set("name", value.String(name))
		_, err := e.Create(ctx, conn, authorModel, object.Initiator{}, &decoder.Request{Create: create})
		require.NoError(t, err)
	}

	count, err := e.Count(ctx, conn, authorModel, &decoder.Request{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	req := &decoder.Request{Aggregates: []connection.Aggregate{{Op: connection.AggregateCount, As: "_count"}}}
	agg, err := e.Aggregate(ctx, conn, authorModel, req)
	require.NoError(t, err)
	total, ok := agg.Get("_count")
	require.True(t, ok)
	assert.Equal(t, value.Int64(2), total)
}
