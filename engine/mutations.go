package engine

import (
	"context"

	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/relationwalker"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// Create builds a new object of model from req.Create, cascades any
// nested relation operations through the relation walker, and saves it
// inside one transaction.
func (e *Engine) Create(ctx context.Context, conn connection.Connection, model *schema.Model, initiator object.Initiator, req *decoder.Request) (*object.Object, error) {
	var created *object.Object
	err := conn.Transaction(ctx, func(ctx context.Context, tx connection.Connection) error {
		obj, err := e.applyCreatePayload(ctx, tx, model, initiator, req.Create)
		if err != nil {
			return err
		}
		created = obj
		return nil
	})
	return created, err
}

// CreateMany builds one object per element of req.Create (a value.Vec).
// A single element's failure is reported against its own index and does
// not roll back elements already created, per the createMany Open
// Question decision.
func (e *Engine) CreateMany(ctx context.Context, conn connection.Connection, model *schema.Model, initiator object.Initiator, req *decoder.Request) ([]*object.Object, []error) {
	list, ok := req.Create.(value.Vec)
	if !ok {
		return nil, []error{keel.New(keel.KindUnexpectedInputType, "createMany: create must be a list")}
	}
	objs := make([]*object.Object, 0, len(list))
	var errs []error
	for i, elem := range list {
		var created *object.Object
		err := conn.Transaction(ctx, func(ctx context.Context, tx connection.Connection) error {
			obj, err := e.applyCreatePayload(ctx, tx, model, initiator, elem)
			if err != nil {
				return err
			}
			created = obj
			return nil
		})
		if err != nil {
			errs = append(errs, keel.Wrap(keel.KindValidationError, err, "create[%d]", i))
			continue
		}
		objs = append(objs, created)
	}
	return objs, errs
}

func (e *Engine) applyCreatePayload(ctx context.Context, tx connection.Connection, model *schema.Model, initiator object.Initiator, payload value.Value) (*object.Object, error) {
	obj := object.New(model, initiator, pipeline.ActionCreate, tx)
	walker := relationwalker.New(e.graph, tx)
	if err := walker.ApplyCreate(ctx, obj, model, payload); err != nil {
		return nil, err
	}
	if err := obj.Save(ctx, tx); err != nil {
		return nil, err
	}
	if err := walker.Walk(ctx, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Update applies req.Update to the single row matching req.Where,
// cascading nested relation operations and saving inside one
// transaction.
func (e *Engine) Update(ctx context.Context, conn connection.Connection, model *schema.Model, initiator object.Initiator, req *decoder.Request) (*object.Object, error) {
	var updated *object.Object
	err := conn.Transaction(ctx, func(ctx context.Context, tx connection.Connection) error {
		obj, err := tx.FindUnique(ctx, model, req.Where, nil)
		if err != nil {
			return err
		}
		if obj == nil {
			return keel.New(keel.KindObjectNotFound, "update: no %s matches where", model.Name)
		}
		if err := e.applyUpdatePayload(ctx, tx, obj, req.Update); err != nil {
			return err
		}
		updated = obj
		return nil
	})
	return updated, err
}

// UpdateMany applies req.Update to every row matching req.Where.
func (e *Engine) UpdateMany(ctx context.Context, conn connection.Connection, model *schema.Model, initiator object.Initiator, req *decoder.Request) (int, error) {
	count := 0
	err := conn.Transaction(ctx, func(ctx context.Context, tx connection.Connection) error {
		rows, err := tx.FindMany(ctx, model, &connection.Finder{Where: req.Where})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := e.applyUpdatePayload(ctx, tx, row, req.Update); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (e *Engine) applyUpdatePayload(ctx context.Context, tx connection.Connection, obj *object.Object, payload value.Value) error {
	return relationwalker.New(e.graph, tx).ApplyUpdate(ctx, obj, obj.Model(), payload)
}

// Upsert updates the row matching req.Where when one exists, otherwise
// creates one from req.Create.
func (e *Engine) Upsert(ctx context.Context, conn connection.Connection, model *schema.Model, initiator object.Initiator, req *decoder.Request) (*object.Object, error) {
	var result *object.Object
	err := conn.Transaction(ctx, func(ctx context.Context, tx connection.Connection) error {
		existing, err := tx.FindUnique(ctx, model, req.Where, nil)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := e.applyUpdatePayload(ctx, tx, existing, req.Update); err != nil {
				return err
			}
			result = existing
			return nil
		}
		created, err := e.applyCreatePayload(ctx, tx, model, initiator, req.Create)
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	return result, err
}

// Delete removes the single row matching req.Where.
func (e *Engine) Delete(ctx context.Context, conn connection.Connection, model *schema.Model, initiator object.Initiator, req *decoder.Request) (*object.Object, error) {
	var deleted *object.Object
	err := conn.Transaction(ctx, func(ctx context.Context, tx connection.Connection) error {
		obj, err := tx.FindUnique(ctx, model, req.Where, nil)
		if err != nil {
			return err
		}
		if obj == nil {
			return keel.New(keel.KindObjectNotFound, "delete: no %s matches where", model.Name)
		}
		if err := obj.Delete(ctx, tx); err != nil {
			return err
		}
		deleted = obj
		return nil
	})
	return deleted, err
}

// DeleteMany removes every row matching req.Where.
func (e *Engine) DeleteMany(ctx context.Context, conn connection.Connection, model *schema.Model, initiator object.Initiator, req *decoder.Request) (int, error) {
	count := 0
	err := conn.Transaction(ctx, func(ctx context.Context, tx connection.Connection) error {
		rows, err := tx.FindMany(ctx, model, &connection.Finder{Where: req.Where})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := row.Delete(ctx, tx); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
