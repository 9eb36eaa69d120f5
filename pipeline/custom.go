package pipeline

// Transform returns a custom item resolving a named transform through
// reg. Schema compilation binds `transform("slugify")`-style schema DSL
// calls to this at startup; the sub-pipeline form (an author embedding a
// literal *Pipeline instead of a name) does not need this helper at all —
// callers simply splice the sub-pipeline's Items in directly.
func Transform(reg *Registry, name string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		fn, err := reg.transform(name)
		if err != nil {
			return ctx, err
		}
		return fn(ctx)
	})
}

// Validate returns a custom item resolving a named validator through reg.
func Validate(reg *Registry, name string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		fn, err := reg.validator(name)
		if err != nil {
			return ctx, err
		}
		if verr := fn(ctx); verr != nil {
			return ctx, verr
		}
		return ctx, nil
	})
}

// Callback returns a custom item resolving a named callback through reg.
// This is a suspension point: the callback may perform host I/O.
func Callback(reg *Registry, name string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		fn, err := reg.callback(name)
		if err != nil {
			return ctx, err
		}
		return fn(ctx)
	})
}

// Compare returns a custom item resolving a named compare function
// through reg, invoking it with the bound object's previous and current
// value for the field at ctx.Path's last segment.
func Compare(reg *Registry, name string) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		fn, err := reg.compare(name)
		if err != nil {
			return ctx, err
		}
		field := ctx.Path.Last()
		var oldValue any
		if ctx.Object != nil {
			if v, ok := ctx.Object.GetPreviousValue(field); ok {
				oldValue = v
			}
		}
		if cerr := fn(ctx, oldValue, ctx.Value); cerr != nil {
			return ctx, cerr
		}
		return ctx, nil
	})
}
