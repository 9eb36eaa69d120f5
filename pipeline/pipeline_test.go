package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/value"
)

func baseCtx(v value.Value) pipeline.Ctx {
	return pipeline.Ctx{Context: context.Background(), Value: v, Action: pipeline.ActionCreate}
}

// TestMulTransformOnCreate mirrors spec.md scenario 5: a field whose
// onSet pipeline is `mul 10` turns a create input of 1 into 10.
func TestMulTransformOnCreate(t *testing.T) {
	t.Parallel()

	p := pipeline.New(pipeline.Mul(value.Int32(10)))
	out, err := p.Run(baseCtx(value.Int32(1)))
	require.NoError(t, err)
	assert.Equal(t, value.Int32(10), out.Value)
}

// TestWhenSubstitutesNullOnCreate mirrors spec.md scenario 6: a null
// input on create is substituted with a fixed string via a conditional
// composer.
func TestWhenSubstitutesNullOnCreate(t *testing.T) {
	t.Parallel()

	substitute := pipeline.New(pipeline.ItemFunc(func(ctx pipeline.Ctx) (pipeline.Ctx, error) {
		if !value.IsNull(ctx.Value) {
			return ctx, nil
		}
		return ctx.WithValue(value.String("done")), nil
	}))
	p := pipeline.New(pipeline.When(substitute, pipeline.ActionCreate))

	out, err := p.Run(baseCtx(value.Null{}))
	require.NoError(t, err)
	assert.Equal(t, value.String("done"), out.Value)
}

func TestWhenSkipsNonMatchingAction(t *testing.T) {
	t.Parallel()

	p := pipeline.New(pipeline.When(pipeline.New(pipeline.Mul(value.Int32(10))), pipeline.ActionUpdate))
	ctx := baseCtx(value.Int32(1))
	ctx.Action = pipeline.ActionCreate

	out, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, value.Int32(1), out.Value)
}

func TestAnySucceedsOnFirstMatchingBranch(t *testing.T) {
	t.Parallel()

	fails := pipeline.New(pipeline.IsAlphanumeric())
	succeeds := pipeline.New(pipeline.Valid())
	p := pipeline.New(pipeline.Any(fails, succeeds))

	_, err := p.Run(baseCtx(value.String("-- not alnum --")))
	require.NoError(t, err)
}

func TestAnyFailsWhenNoBranchMatches(t *testing.T) {
	t.Parallel()

	p := pipeline.New(pipeline.Any(
		pipeline.New(pipeline.IsAlphanumeric()),
		pipeline.New(pipeline.IsAlphanumeric()),
	))
	ctx := baseCtx(value.String("!!!"))
	ctx.Path = value.Path{}.Key("status")

	_, err := p.Run(ctx)
	require.Error(t, err)
	assert.True(t, keel.IsKind(err, keel.KindValidationError))
}

func TestGetPreviousOnCreateYieldsNull(t *testing.T) {
	t.Parallel()

	ctx := baseCtx(value.String("x"))
	ctx.Position = pipeline.PositionCreate
	out, err := pipeline.GetPrevious("email").Run(ctx)
	require.NoError(t, err)
	assert.True(t, value.IsNull(out.Value))
}

type fakeObject struct {
	prev map[string]value.Value
	cur  map[string]value.Value
}

func (f *fakeObject) ModelName() string { return "User" }
func (f *fakeObject) Get(field string) (value.Value, bool) {
	v, ok := f.cur[field]
	return v, ok
}
func (f *fakeObject) GetPreviousValue(field string) (value.Value, bool) {
	v, ok := f.prev[field]
	return v, ok
}

func TestGetPreviousOnUpdateReadsPreviousValue(t *testing.T) {
	t.Parallel()

	obj := &fakeObject{prev: map[string]value.Value{"email": value.String("old@example.com")}}
	ctx := baseCtx(value.String("new@example.com"))
	ctx.Position = pipeline.PositionUpdate
	ctx.Object = obj

	out, err := pipeline.GetPrevious("email").Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, value.String("old@example.com"), out.Value)
}

func TestWriteOnceViaIsCombinator(t *testing.T) {
	t.Parallel()

	obj := &fakeObject{
		prev: map[string]value.Value{"email": value.String("old@example.com")},
		cur:  map[string]value.Value{"email": value.String("old@example.com")},
	}
	ctx := baseCtx(value.String("new@example.com"))
	ctx.Position = pipeline.PositionUpdate
	ctx.Object = obj
	ctx.Path = value.Path{}.Key("email")

	// Writing a different value than the previous one should fail
	// validation, modeling the writeOnce rule from object.Set.
	prevCtx, err := pipeline.GetPrevious("email").Run(ctx)
	require.NoError(t, err)
	_, err = pipeline.Is(prevCtx.Value, "").Run(ctx)
	require.Error(t, err)
}

func TestTodayUsesProvidedClockAndTimezone(t *testing.T) {
	t.Parallel()

	clock := func() time.Time { return time.Date(2026, 7, 31, 23, 30, 0, 0, time.UTC) }
	loc := time.FixedZone("TEST+2", 2*60*60)
	out, err := pipeline.Today(clock, loc).Run(baseCtx(value.Null{}))
	require.NoError(t, err)
	assert.Equal(t, value.Date{Year: 2026, Month: 8, Day: 1}, out.Value)
}

func TestUUIDProducesWellFormedString(t *testing.T) {
	t.Parallel()

	out, err := pipeline.UUID().Run(baseCtx(value.Null{}))
	require.NoError(t, err)
	s, ok := out.Value.(value.String)
	require.True(t, ok)
	assert.Len(t, string(s), 36)
}

func TestRegistryPanicsAfterFreeze(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	reg.RegisterTransform("noop", func(ctx pipeline.Ctx) (pipeline.Ctx, error) { return ctx, nil })
	reg.Freeze()

	assert.Panics(t, func() {
		reg.RegisterTransform("late", func(ctx pipeline.Ctx) (pipeline.Ctx, error) { return ctx, nil })
	})
}

func TestTransformLooksUpByName(t *testing.T) {
	t.Parallel()

	reg := pipeline.NewRegistry()
	reg.RegisterTransform("double", func(ctx pipeline.Ctx) (pipeline.Ctx, error) {
		n, _ := ctx.Value.(value.Int32)
		return ctx.WithValue(value.Int32(n * 2)), nil
	})
	reg.Freeze()

	out, err := pipeline.Transform(reg, "double").Run(baseCtx(value.Int32(21)))
	require.NoError(t, err)
	assert.Equal(t, value.Int32(42), out.Value)
}
