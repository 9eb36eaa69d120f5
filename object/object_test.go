package object_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

func productModel() *schema.Model {
	m := &schema.Model{
		Name: "Product",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Write: schema.WriteNever},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}, Write: schema.WriteOnce},
			{Name: "stock", Type: schema.FieldType{Kind: value.KindInt32}},
			{Name: "secret", Type: schema.FieldType{Kind: value.KindString}, Read: schema.ReadNoRead},
			{Name: "note", Type: schema.FieldType{Kind: value.KindString}, Prev: schema.PreviousValueKeep},
		},
		Indexes: []*schema.Index{{Kind: schema.IndexPrimary, Fields: []string{"id"}}},
	}
	return m
}

func newTestModel(t *testing.T) *schema.Model {
	t.Helper()
	g := schema.NewGraph()
	m := productModel()
	g.AddModel(m)
	require.NoError(t, g.Finalize())
	return m
}

func TestSetRunsOnSetPipelineAndMarksDirty(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	f, _ := model.Field("stock")
	f.OnSet = pipeline.New(pipeline.Mul(value.Int32(10)))

	o := object.New(model, object.ProgramCode(), pipeline.ActionCreate, nil)
	require.NoError(t, o.Set(context.Background(), "stock", value.Int32(1)))

	v, ok := o.Get("stock")
	require.True(t, ok)
	assert.Equal(t, value.Int32(10), v)
	assert.True(t, o.IsDirty("stock"))
	assert.Equal(t, object.StateNew, o.State())
}

func TestSetRejectsWriteNeverField(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	o := object.New(model, object.ProgramCode(), pipeline.ActionCreate, nil)
	err := o.Set(context.Background(), "id", value.Int64(1))
	assert.True(t, keel.IsKind(err, keel.KindValidationError))
}

func TestSetRejectsWriteOnceAfterInitialized(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	o := object.New(model, object.ProgramCode(), pipeline.ActionCreate, nil)
	require.NoError(t, o.Set(context.Background(), "name", value.String("widget")))

	hydrated := object.Hydrate(model, object.ProgramCode(), nil, map[string]value.Value{
		"id": value.Int64(1), "name": value.String("widget"),
	})
	err := hydrated.Set(context.Background(), "name", value.String("renamed"))
	assert.True(t, keel.IsKind(err, keel.KindValidationError))
}

func TestSetKeepsPreviousValueWhenRuleSaysKeep(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	o := object.Hydrate(model, object.ProgramCode(), nil, map[string]value.Value{
		"id": value.Int64(1), "note": value.String("old"),
	})
	require.NoError(t, o.Set(context.Background(), "note", value.String("new")))

	prev, ok := o.GetPreviousValue("note")
	require.True(t, ok)
	assert.Equal(t, value.String("old"), prev)
	assert.Equal(t, object.StateModified, o.State())
}

func TestAtomicIncrementAppliesImmediatelyAndSaturatesInt32(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	o := object.Hydrate(model, object.ProgramCode(), nil, map[string]value.Value{
		"id": value.Int64(1), "stock": value.Int32(2147483647),
	})
	require.NoError(t, o.Atomic("stock", object.AtomicUpdate{Op: object.AtomicIncrement, Operand: value.Int32(10)}))

	v, ok := o.Get("stock")
	require.True(t, ok)
	assert.Equal(t, value.Int32(2147483647), v)
}

func TestToJSONOmitsNoReadFieldsAndHonorsSelect(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	o := object.Hydrate(model, object.ProgramCode(), nil, map[string]value.Value{
		"id": value.Int64(1), "name": value.String("widget"), "secret": value.String("shh"),
	})

	out, err := o.ToJSON(context.Background(), value.Path{})
	require.NoError(t, err)
	m, ok := out.(*value.Map)
	require.True(t, ok)

	_, hasSecret := m.Get("secret")
	assert.False(t, hasSecret)
	name, ok := m.Get("name")
	require.True(t, ok)
	assert.Equal(t, value.String("widget"), name)

	selected, err := o.ToJSONSelected(context.Background(), value.Path{}, &object.Projection{Select: map[string]bool{"id": true}})
	require.NoError(t, err)
	sm := selected.(*value.Map)
	_, hasName := sm.Get("name")
	assert.False(t, hasName)
	_, hasID := sm.Get("id")
	assert.True(t, hasID)
}

func TestInternalInitiatorBypassesWriteAndReadRules(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	o := object.Hydrate(model, object.Internal(), nil, map[string]value.Value{
		"id": value.Int64(1), "secret": value.String("shh"),
	})
	require.NoError(t, o.Set(context.Background(), "id", value.Int64(2)))

	out, err := o.ToJSON(context.Background(), value.Path{})
	require.NoError(t, err)
	m := out.(*value.Map)
	secret, ok := m.Get("secret")
	require.True(t, ok)
	assert.Equal(t, value.String("shh"), secret)
}

func TestDeleteRejectsSecondDelete(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)
	o := object.Hydrate(model, object.ProgramCode(), nil, map[string]value.Value{"id": value.Int64(1)})
	require.NoError(t, o.Delete(context.Background(), fakeDeleter{}))
	err := o.Delete(context.Background(), fakeDeleter{})
	assert.True(t, keel.IsKind(err, keel.KindObjectIsDeleted))
}

type fakeDeleter struct{}

func (fakeDeleter) DeleteObject(ctx context.Context, o *object.Object) error { return nil }
