package pipeline

import "github.com/syssam/keel/value"

// GetPrevious returns an object-accessor item replacing ctx.Value with the
// bound object's previous (pre-mutation) value for key — used by
// writeOnce enforcement and by diff-driven transforms. It is only
// meaningful at PositionUpdate; at PositionCreate there is no previous
// value, so it yields Null rather than erroring, matching the original's
// treatment of a fresh object's previous-value map as empty.
func GetPrevious(key string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		if ctx.Object == nil || ctx.Position == PositionCreate {
			return ctx.WithValue(value.Null{}), nil
		}
		v, ok := ctx.Object.GetPreviousValue(key)
		if !ok {
			return ctx.WithValue(value.Null{}), nil
		}
		return ctx.WithValue(v), nil
	})
}
