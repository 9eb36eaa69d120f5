package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

func buildGraph(t *testing.T) *schema.Graph {
	t.Helper()
	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "Category",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}, Sortable: true, Queryable: true},
		},
		Relations: []*schema.Relation{
			{Name: "products", Target: "Product", IsVec: true},
		},
		Indexes: []*schema.Index{
			{Kind: schema.IndexPrimary, Fields: []string{"id"}},
			{Kind: schema.IndexUnique, Fields: []string{"name"}},
		},
	})
	g.AddModel(&schema.Model{
		Name: "Product",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}, Sortable: true, Queryable: true},
			{Name: "categoryId", Type: schema.FieldType{Kind: value.KindInt64}, Optional: true},
		},
		Relations: []*schema.Relation{
			{Name: "category", Target: "Category", Fields: []string{"categoryId"}, References: []string{"id"}, Optional: true},
		},
		Indexes: []*schema.Index{
			{Kind: schema.IndexPrimary, Fields: []string{"id"}},
			{Kind: schema.IndexUnique, Fields: []string{"name"}},
		},
	})
	require.NoError(t, g.Finalize())
	return g
}

func TestDecodeRejectsUnknownTopLevelKey(t *testing.T) {
	t.Parallel()
	g := buildGraph(t)
	d := decoder.New(g)
	model, _ := g.Model("Category")

	_, err := d.Decode(model, schema.HandlerFindMany, map[string]any{"bogus": 1})
	assert.Error(t, err)
}

func TestDecodeCreateWithNestedConnectMany(t *testing.T) {
	t.Parallel()
	g := buildGraph(t)
	d := decoder.New(g)
	model, _ := g.Model("Category")

	req, err := d.Decode(model, schema.HandlerCreate, map[string]any{
		"create": map[string]any{
			"name": "Toiletries",
			"products": map[string]any{
				"connect": []any{
					map[string]any{"name": "Hair Jelly"},
					map[string]any{"name": "Lipstick"},
				},
			},
		},
	})
	require.NoError(t, err)

	createMap, ok := req.Create.(*value.Map)
	require.True(t, ok)
	name, ok := createMap.Get("name")
	require.True(t, ok)
	assert.Equal(t, value.String("Toiletries"), name)

	productsRaw, ok := createMap.Get("products")
	require.True(t, ok)
	productsMap := productsRaw.(*value.Map)
	connectRaw, ok := productsMap.Get("connect")
	require.True(t, ok)
	connectList, ok := connectRaw.(value.Vec)
	require.True(t, ok)
	assert.Len(t, connectList, 2)
}

func TestDecodeWhereWithOperator(t *testing.T) {
	t.Parallel()
	g := buildGraph(t)
	d := decoder.New(g)
	model, _ := g.Model("Category")

	req, err := d.Decode(model, schema.HandlerFindMany, map[string]any{
		"where": map[string]any{"name": map[string]any{"contains": "Cos"}},
	})
	require.NoError(t, err)

	whereMap := req.Where.(*value.Map)
	nameFilter, ok := whereMap.Get("name")
	require.True(t, ok)
	opMap := nameFilter.(*value.Map)
	contains, ok := opMap.Get("contains")
	require.True(t, ok)
	assert.Equal(t, value.String("Cos"), contains)
}

func TestDecodeOrderByRejectsNonSortableField(t *testing.T) {
	t.Parallel()
	g := buildGraph(t)
	d := decoder.New(g)
	model, _ := g.Model("Product")

	_, err := d.Decode(model, schema.HandlerFindMany, map[string]any{
		"orderBy": map[string]any{"categoryId": "asc"},
	})
	assert.Error(t, err)
}

func TestDecodeIncludeWithNestedFinder(t *testing.T) {
	t.Parallel()
	g := buildGraph(t)
	d := decoder.New(g)
	model, _ := g.Model("Category")

	req, err := d.Decode(model, schema.HandlerFindMany, map[string]any{
		"include": map[string]any{
			"products": map[string]any{
				"orderBy": map[string]any{"name": "asc"},
			},
		},
	})
	require.NoError(t, err)
	clause, ok := req.Include["products"]
	require.True(t, ok)
	require.Len(t, clause.OrderBy, 1)
	assert.Equal(t, "name", clause.OrderBy[0].Field)
	assert.False(t, clause.OrderBy[0].Desc)
}

func TestDecodeCursorDecodesNamedFields(t *testing.T) {
	t.Parallel()
	g := buildGraph(t)
	d := decoder.New(g)
	model, _ := g.Model("Category")

	req, err := d.Decode(model, schema.HandlerFindMany, map[string]any{
		"cursor": map[string]any{"id": float64(5)},
	})
	require.NoError(t, err)
	cursor, ok := req.Cursor.(*value.Map)
	require.True(t, ok)
	id, ok := cursor.Get("id")
	require.True(t, ok)
	assert.Equal(t, value.Int64(5), id)
}

func TestDecodeCursorRejectsEmptyObject(t *testing.T) {
	t.Parallel()
	g := buildGraph(t)
	d := decoder.New(g)
	model, _ := g.Model("Category")

	_, err := d.Decode(model, schema.HandlerFindMany, map[string]any{
		"cursor": map[string]any{},
	})
	assert.Error(t, err)
}

func TestDecodeCredentialsRequiresIdentityAndByKey(t *testing.T) {
	t.Parallel()
	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "User",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true},
			{Name: "email", Type: schema.FieldType{Kind: value.KindString}},
			{Name: "password", Type: schema.FieldType{Kind: value.KindString}},
		},
		Indexes:          []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
		AuthIdentityKeys: []string{"email"},
		AuthByKeys:       []string{"password"},
	})
	require.NoError(t, g.Finalize())
	d := decoder.New(g)
	model, _ := g.Model("User")

	_, err := d.Decode(model, schema.HandlerSignIn, map[string]any{
		"credentials": map[string]any{"email": "a@b.c"},
	})
	assert.Error(t, err)

	req, err := d.Decode(model, schema.HandlerSignIn, map[string]any{
		"credentials": map[string]any{"email": "a@b.c", "password": "ok"},
	})
	require.NoError(t, err)
	email, ok := req.Credentials.Get("email")
	require.True(t, ok)
	assert.Equal(t, value.String("a@b.c"), email)
}
