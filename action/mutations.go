package action

import (
	"context"

	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/value"
)

func (d *Dispatcher) handleCreate(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	obj, err := d.engine.Create(ctx, d.conn, req.Model, req.Initiator, decoded)
	if err != nil {
		return nil, err
	}
	rendered, err := d.render(ctx, obj, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered}, nil
}

// handleCreateMany returns every successfully created row under data and
// meta.count reflecting only the successes, per the createMany Open
// Question decision: a single element's failure does not abort the rest
// of the batch nor the whole response.
func (d *Dispatcher) handleCreateMany(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	objs, _ := d.engine.CreateMany(ctx, d.conn, req.Model, req.Initiator, decoded)
	data, err := d.renderMany(ctx, objs, decoded)
	if err != nil {
		return nil, err
	}
	count := int64(len(objs))
	return &Response{Data: data, Meta: &Meta{Count: &count}}, nil
}

func (d *Dispatcher) handleUpdate(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	obj, err := d.engine.Update(ctx, d.conn, req.Model, req.Initiator, decoded)
	if err != nil {
		return nil, err
	}
	rendered, err := d.render(ctx, obj, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered}, nil
}

// handleUpdateMany reports meta.count reflecting only the rows actually
// updated. Unlike createMany, updateMany has no Open Question relaxing
// the single-transaction guarantee, so engine.UpdateMany aborts the whole
// call on its first row failure rather than reporting partial progress.
func (d *Dispatcher) handleUpdateMany(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	count, err := d.engine.UpdateMany(ctx, d.conn, req.Model, req.Initiator, decoded)
	if err != nil {
		return nil, err
	}
	count64 := int64(count)
	return &Response{Data: value.Null{}, Meta: &Meta{Count: &count64}}, nil
}

func (d *Dispatcher) handleUpsert(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	obj, err := d.engine.Upsert(ctx, d.conn, req.Model, req.Initiator, decoded)
	if err != nil {
		return nil, err
	}
	rendered, err := d.render(ctx, obj, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered}, nil
}

func (d *Dispatcher) handleDelete(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	obj, err := d.engine.Delete(ctx, d.conn, req.Model, req.Initiator, decoded)
	if err != nil {
		return nil, err
	}
	rendered, err := d.render(ctx, obj, decoded)
	if err != nil {
		return nil, err
	}
	return &Response{Data: rendered}, nil
}

func (d *Dispatcher) handleDeleteMany(ctx context.Context, req *Request, decoded *decoder.Request) (*Response, error) {
	count, err := d.engine.DeleteMany(ctx, d.conn, req.Model, req.Initiator, decoded)
	if err != nil {
		return nil, err
	}
	count64 := int64(count)
	return &Response{Data: value.Null{}, Meta: &Meta{Count: &count64}}, nil
}
