package engine

import (
	"context"

	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// FindUnique resolves a single row by req.Where, honoring req.Select and
// req.Include, or returns (nil, nil) when no row matches (findUnique's
// "data: null" response shape is the dispatcher's job, not an error
// here).
func (e *Engine) FindUnique(ctx context.Context, conn connection.Connection, model *schema.Model, req *decoder.Request) (*object.Object, error) {
	return conn.FindUnique(ctx, model, req.Where, buildProjection(req.Select, req.Include))
}

// FindFirst resolves the first row matching req's filter/order clauses,
// ignoring Take (findFirst always returns at most one row).
func (e *Engine) FindFirst(ctx context.Context, conn connection.Connection, model *schema.Model, req *decoder.Request) (*object.Object, error) {
	finder := buildFinder(req)
	finder.Take = 1
	rows, err := conn.FindMany(ctx, model, finder)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// FindMany resolves every row matching req's filter/order/paging clauses.
func (e *Engine) FindMany(ctx context.Context, conn connection.Connection, model *schema.Model, req *decoder.Request) ([]*object.Object, error) {
	return conn.FindMany(ctx, model, buildFinder(req))
}

// Count returns the number of rows req.Where matches, ignoring
// take/skip/select, per the connection contract.
func (e *Engine) Count(ctx context.Context, conn connection.Connection, model *schema.Model, req *decoder.Request) (int64, error) {
	finder := connection.NewFinder()
	finder.Where = req.Where
	return conn.Count(ctx, model, finder)
}

// Aggregate computes req.Aggregates over the rows req.Where matches.
func (e *Engine) Aggregate(ctx context.Context, conn connection.Connection, model *schema.Model, req *decoder.Request) (*value.Map, error) {
	finder := connection.NewFinder()
	finder.Where = req.Where
	return conn.Aggregate(ctx, model, finder, req.Aggregates)
}

// GroupBy partitions the rows req.Where matches by req.GroupBy, computing
// req.Aggregates within each partition.
func (e *Engine) GroupBy(ctx context.Context, conn connection.Connection, model *schema.Model, req *decoder.Request) ([]*connection.GroupResult, error) {
	finder := connection.NewFinder()
	finder.Where = req.Where
	return conn.GroupBy(ctx, model, finder, req.GroupBy, req.Aggregates)
}
