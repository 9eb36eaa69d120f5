package action

import (
	"context"

	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/value"
)

func (d *Dispatcher) handleFindUnique(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	obj, err := d.engine.FindUnique(ctx, d.conn, req.Model, decoded)
	if err != nil {
		return nil, err
	}
	rendered, err := d.render(ctx, obj, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered}, nil
}

func (d *Dispatcher) handleFindFirst(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	obj, err := d.engine.FindFirst(ctx, d.conn, req.Model, decoded)
	if err != nil {
		return nil, err
	}
	rendered, err := d.render(ctx, obj, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered}, nil
}

func (d *Dispatcher) handleFindMany(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	rows, err := d.engine.FindMany(ctx, d.conn, req.Model, decoded)
	if err != nil {
		return nil, err
	}
	data, err := d.renderMany(ctx, rows, decoded)
	if err != nil {
		return nil, err
	}
	count, err := d.engine.Count(ctx, d.conn, req.Model, decoded)
	if err != nil {
		return nil, err
	}
	meta := &Meta{Count: &count}
	if decoded.PageSize > 0 {
		pages := count / int64(decoded.PageSize)
		if count%int64(decoded.PageSize) != 0 {
			pages++
		}
		meta.NumberOfPages = &pages
	}
	return &Response{Data: data, Meta: meta}, nil
}

func (d *Dispatcher) handleCount(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	count, err := d.engine.Count(ctx, d.conn, req.Model, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: count}, nil
}

func (d *Dispatcher) handleAggregate(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	agg, err := d.engine.Aggregate(ctx, d.conn, req.Model, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: agg}, nil
}

func (d *Dispatcher) handleGroupBy(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	groups, err := d.engine.GroupBy(ctx, d.conn, req.Model, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: groups}, nil
}

func (d *Dispatcher) renderMany(ctx context.Context, rows []*object.Object, decoded *decoder.Request) (value.Vec, error) {
	proj := buildProjectionForRender(decoded)
	out := make(value.Vec, 0, len(rows))
	for _, row := range rows {
		rendered, err := d.engine.Render(ctx, d.conn, row, proj, decoded.Include)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}
