package relationwalker

import (
	"context"

	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// inverseFK returns the relation on target that mirrors r and owns the
// foreign key back to owner's model, for the common one-to-many shape
// where the "one" side relation (r) carries no local fields because the
// foreign key lives on the "many" side.
func (w *Walker) inverseFK(target *schema.Model, r *schema.Relation) (*schema.Relation, error) {
	if r.Inverse == "" {
		return nil, keel.New(keel.KindInternalServerError, "relationwalker: relation %q has no resolved inverse", r.Name)
	}
	inv, ok := target.Relation(r.Inverse)
	if !ok {
		return nil, keel.New(keel.KindInternalServerError, "relationwalker: inverse relation %q not found on %s", r.Inverse, target.Name)
	}
	return inv, nil
}

// link connects targetObj to owner according to r's foreign-key
// direction, saving whichever side's foreign key changed.
func (w *Walker) link(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, targetObj *object.Object) error {
	switch {
	case r.IsManyToMany():
		return w.linkManyToMany(ctx, owner, r, targetObj)
	case r.HasForeignKey():
		for i, f := range r.Fields {
			v, ok := targetObj.Get(r.References[i])
			if !ok {
				return keel.New(keel.KindInternalServerError, "relationwalker: target missing referenced field %q", r.References[i])
			}
			if err := owner.Set(ctx, f, v); err != nil {
				return err
			}
		}
		return owner.Save(ctx, w.conn)
	default:
		inv, err := w.inverseFK(target, r)
		if err != nil {
			return err
		}
		for i, f := range inv.Fields {
			v, ok := owner.Get(inv.References[i])
			if !ok {
				return keel.New(keel.KindInternalServerError, "relationwalker: owner missing referenced field %q", inv.References[i])
			}
			if err := targetObj.Set(ctx, f, v); err != nil {
				return err
			}
		}
		return targetObj.Save(ctx, w.conn)
	}
}

// unlink removes the association between owner and targetObj, rejecting
// the operation when the relation's foreign key is required and no
// reassignment accompanies it, per the Open Question decision recorded
// in DESIGN.md.
func (w *Walker) unlink(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, targetObj *object.Object) error {
	switch {
	case r.IsManyToMany():
		return w.unlinkManyToMany(ctx, owner, r, targetObj)
	case r.HasForeignKey():
		if !r.Optional {
			return keel.New(keel.KindValidationError, "relation %q is required and cannot be disconnected without reassignment", r.Name).AtPath(r.Name)
		}
		for _, f := range r.Fields {
			if err := owner.Set(ctx, f, value.Null{}); err != nil {
				return err
			}
		}
		return owner.Save(ctx, w.conn)
	default:
		inv, err := w.inverseFK(target, r)
		if err != nil {
			return err
		}
		if !inv.Optional {
			return keel.New(keel.KindValidationError, "relation %q is required and cannot be disconnected without reassignment", r.Name).AtPath(r.Name)
		}
		for _, f := range inv.Fields {
			if err := targetObj.Set(ctx, f, value.Null{}); err != nil {
				return err
			}
		}
		return targetObj.Save(ctx, w.conn)
	}
}

func (w *Walker) throughFKs(r *schema.Relation, ownerModel, targetModel *schema.Model) (ownerFK, targetFK *schema.Relation, err error) {
	through, ok := w.graph.Model(r.Through)
	if !ok {
		return nil, nil, keel.New(keel.KindInternalServerError, "relationwalker: through model %q not found", r.Through)
	}
	for _, tr := range through.Relations {
		if tr.Target == ownerModel.Name && tr.HasForeignKey() {
			ownerFK = tr
		}
		if tr.Target == targetModel.Name && tr.HasForeignKey() {
			targetFK = tr
		}
	}
	if ownerFK == nil || targetFK == nil {
		return nil, nil, keel.New(keel.KindInternalServerError, "relationwalker: through model %q missing owning relations", r.Through)
	}
	return ownerFK, targetFK, nil
}

func (w *Walker) linkManyToMany(ctx context.Context, owner *object.Object, r *schema.Relation, targetObj *object.Object) error {
	ownerFK, targetFK, err := w.throughFKs(r, owner.Model(), targetObj.Model())
	if err != nil {
		return err
	}
	through, _ := w.graph.Model(r.Through)
	join := object.New(through, owner.Initiator(), pipeline.ActionCreate, nil)
	for i, f := range ownerFK.Fields {
		v, _ := owner.Get(ownerFK.References[i])
		if err := join.Set(ctx, f, v); err != nil {
			return err
		}
	}
	for i, f := range targetFK.Fields {
		v, _ := targetObj.Get(targetFK.References[i])
		if err := join.Set(ctx, f, v); err != nil {
			return err
		}
	}
	return join.Save(ctx, w.conn)
}

func (w *Walker) unlinkManyToMany(ctx context.Context, owner *object.Object, r *schema.Relation, targetObj *object.Object) error {
	ownerFK, targetFK, err := w.throughFKs(r, owner.Model(), targetObj.Model())
	if err != nil {
		return err
	}
	through, _ := w.graph.Model(r.Through)
	where := value.NewMap()
	for i, f := range ownerFK.Fields {
		v, _ := owner.Get(ownerFK.References[i])
		where.Set(f, v)
	}
	for i, f := range targetFK.Fields {
		v, _ := targetObj.Get(targetFK.References[i])
		where.Set(f, v)
	}
	rows, err := w.conn.FindMany(ctx, through, &connection.Finder{Where: where})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := row.Delete(ctx, w.conn); err != nil {
			return err
		}
	}
	return nil
}
