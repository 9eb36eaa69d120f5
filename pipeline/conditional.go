package pipeline

// When returns a conditional composer: if ctx.Action matches any of
// actions, it runs then; otherwise it is a no-op that passes ctx through
// unchanged. This lets a single field pipeline branch its behavior by
// action without the schema author writing separate pipelines per action.
func When(then *Pipeline, actions ...ActionTag) Item {
	set := make(map[ActionTag]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		if !set[ctx.Action] {
			return ctx, nil
		}
		return then.Run(ctx)
	})
}

// Any returns a composer succeeding if any of branches succeeds against
// the *same* input ctx (branches never see each other's effects); the
// winning branch's resulting ctx is returned. If every branch fails, Any
// returns the last branch's error; with no branches at all it reports an
// invalid outcome at ctx's current path.
func Any(branches ...*Pipeline) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		var lastErr error
		for _, b := range branches {
			out, err := b.Run(ctx)
			if err == nil {
				return out, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			return ctx, newValidationError(ctx, "no branch matched")
		}
		return ctx, lastErr
	})
}

// Else returns a composer that always runs fallback against ctx. It is
// paired manually by schema authors building an if/else shape on top of
// When/Any, and mirrors the original's plain `else` item which simply
// always runs a pipeline — callers compose it inside their own
// error-recovery wrapper since a bare Pipeline.Run already halts on
// first error.
func Else(fallback *Pipeline) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		return fallback.Run(ctx)
	})
}
