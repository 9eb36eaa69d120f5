package pipeline

import "github.com/syssam/keel/value"

// QueryRaw returns an item delegating a raw backend query through the
// ctx's connection, replacing ctx.Value with the query's result. This is
// the pipeline engine's only sanctioned escape hatch to the connector
// layer; per the concurrency model, it is a suspension point.
func QueryRaw(query string, args ...value.Value) Item {
	return ItemFunc(func(ctx Ctx) (Ctx, error) {
		if ctx.Conn == nil {
			return ctx, newValidationError(ctx, "queryRaw: no connection bound to this pipeline")
		}
		out, err := ctx.Conn.QueryRaw(ctx.Context, query, args)
		if err != nil {
			return ctx, err
		}
		return ctx.WithValue(out), nil
	})
}
