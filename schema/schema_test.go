package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

func buildCategoryProductGraph(t *testing.T) *schema.Graph {
	t.Helper()

	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "Category",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}},
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
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}},
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
	return g
}

func TestFinalizeResolvesInverseRelations(t *testing.T) {
	t.Parallel()

	g := buildCategoryProductGraph(t)
	require.NoError(t, g.Finalize())

	cat, ok := g.Model("Category")
	require.True(t, ok)
	products, ok := cat.Relation("products")
	require.True(t, ok)
	assert.Equal(t, "category", products.Inverse)

	prod, ok := g.Model("Product")
	require.True(t, ok)
	categoryRel, ok := prod.Relation("category")
	require.True(t, ok)
	assert.Equal(t, "products", categoryRel.Inverse)

	categoryIDField, ok := prod.Field("categoryId")
	require.True(t, ok)
	assert.True(t, categoryIDField.ForeignKey)
	assert.True(t, categoryRel.HasForeignKey())
	assert.False(t, products.HasForeignKey())
}

func TestFinalizeRejectsMissingPrimaryIndex(t *testing.T) {
	t.Parallel()

	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name:   "Broken",
		Fields: []*schema.Field{{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}}},
	})
	assert.Error(t, g.Finalize())
}

func TestFinalizeRejectsMismatchedRelationFieldTypes(t *testing.T) {
	t.Parallel()

	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "A",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true},
			{Name: "bId", Type: schema.FieldType{Kind: value.KindString}},
		},
		Relations: []*schema.Relation{
			{Name: "b", Target: "B", Fields: []string{"bId"}, References: []string{"id"}},
		},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	})
	g.AddModel(&schema.Model{
		Name:    "B",
		Fields:  []*schema.Field{{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true}},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	})
	assert.Error(t, g.Finalize())
}

func TestFinalizeRejectsAuthKeyOverlap(t *testing.T) {
	t.Parallel()

	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "User",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true},
			{Name: "email", Type: schema.FieldType{Kind: value.KindString}},
		},
		Indexes:          []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
		AuthIdentityKeys: []string{"email"},
		AuthByKeys:       []string{"email"},
	})
	assert.Error(t, g.Finalize())
}

func TestModelHasActionDefaultsToAllHandlers(t *testing.T) {
	t.Parallel()

	m := &schema.Model{Name: "X"}
	assert.True(t, m.HasAction(schema.HandlerCreate))

	m.Actions = map[schema.Handler]bool{schema.HandlerFindMany: true}
	assert.True(t, m.HasAction(schema.HandlerFindMany))
	assert.False(t, m.HasAction(schema.HandlerCreate))
}

func TestActionForKnownHandlers(t *testing.T) {
	t.Parallel()

	a, ok := schema.ActionFor(schema.HandlerCreateMany)
	require.True(t, ok)
	assert.Equal(t, schema.VerbCreate, a.Verb)
	assert.Equal(t, schema.CardinalityMany, a.Cardinality)

	_, ok = schema.ActionFor(schema.Handler("bogus"))
	assert.False(t, ok)
}
