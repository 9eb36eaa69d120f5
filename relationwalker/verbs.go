package relationwalker

import (
	"context"
	"fmt"

	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// create builds a new target object from payload, cascading its own
// nested relations, then links it to owner.
func (w *Walker) create(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, payload value.Value) error {
	child := object.New(target, owner.Initiator(), pipeline.ActionCreate, w.conn)
	if err := w.ApplyCreate(ctx, child, target, payload); err != nil {
		return err
	}
	if err := child.Save(ctx, w.conn); err != nil {
		return err
	}
	if err := w.Walk(ctx, child); err != nil {
		return err
	}
	return w.link(ctx, owner, r, target, child)
}

// createMany builds one target object per element of payload (a
// value.Vec), linking each to owner. A single element's failure does not
// roll back elements already created, matching the createMany Open
// Question decision.
func (w *Walker) createMany(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, payload value.Value) error {
	list, ok := payload.(value.Vec)
	if !ok {
		return keel.New(keel.KindUnexpectedInputType, "relationwalker: createMany payload must be a list")
	}
	for i, elem := range list {
		if err := w.create(ctx, owner, r, target, elem); err != nil {
			return keel.Wrap(keel.KindValidationError, err, "relationwalker: create[%d]", i)
		}
	}
	return nil
}

// connect links an existing target row (matched by where) to owner.
func (w *Walker) connect(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, where value.Value) error {
	found, err := w.conn.FindUnique(ctx, target, where, nil)
	if err != nil {
		return err
	}
	if found == nil {
		return keel.New(keel.KindObjectNotFound, "relationwalker: connect target not found on relation %q", r.Name)
	}
	return w.link(ctx, owner, r, target, found)
}

// connectOrCreate links an existing target row matching where, or creates
// one from create when none matches.
func (w *Walker) connectOrCreate(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, where, createPayload value.Value) error {
	found, err := w.conn.FindUnique(ctx, target, where, nil)
	if err != nil {
		return err
	}
	if found != nil {
		return w.link(ctx, owner, r, target, found)
	}
	return w.create(ctx, owner, r, target, createPayload)
}

// set replaces every existing link on a to-many relation with exactly the
// rows matching where, connecting newly-matched rows and disconnecting
// ones no longer matched.
func (w *Walker) set(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, where value.Value) error {
	wanted, err := w.conn.FindMany(ctx, target, &connection.Finder{Where: where})
	if err != nil {
		return err
	}
	current, err := w.currentlyLinked(ctx, owner, r, target)
	if err != nil {
		return err
	}
	wantedByPK := make(map[string]*object.Object, len(wanted))
	for _, o := range wanted {
		wantedByPK[pkKey(o)] = o
	}
	for _, o := range current {
		if _, keep := wantedByPK[pkKey(o)]; !keep {
			if err := w.unlink(ctx, owner, r, target, o); err != nil {
				return err
			}
		}
	}
	for _, o := range wanted {
		if err := w.link(ctx, owner, r, target, o); err != nil {
			return err
		}
	}
	return nil
}

// disconnect unlinks the rows matching where from owner without deleting
// them.
func (w *Walker) disconnect(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, where value.Value) error {
	rows, err := w.rowsForWhere(ctx, owner, r, target, where)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.unlink(ctx, owner, r, target, row); err != nil {
			return err
		}
	}
	return nil
}

// update applies an update payload to the single row of target matched by
// where, without regard to whether it is currently linked to any
// particular owner (the relation's target-side lookup already scopes it).
// where must match exactly one row, per the nested update verb's "find by
// unique" contract; zero or more than one match is an error.
func (w *Walker) update(ctx context.Context, r *schema.Relation, target *schema.Model, where, payload value.Value) error {
	rows, err := w.conn.FindMany(ctx, target, &connection.Finder{Where: where})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return keel.New(keel.KindObjectNotFound, "relationwalker: update target not found on relation %q", r.Name)
	}
	if len(rows) > 1 {
		return keel.New(keel.KindUnexpectedInputValue, "relationwalker: update where matched %d rows on relation %q, expected exactly one", len(rows), r.Name)
	}
	return w.ApplyUpdate(ctx, rows[0], target, payload)
}

// updateMany is update without the "exactly one match required" check: any
// number of matches, including zero, is applied and none is an error.
func (w *Walker) updateMany(ctx context.Context, r *schema.Relation, target *schema.Model, where, payload value.Value) error {
	rows, err := w.conn.FindMany(ctx, target, &connection.Finder{Where: where})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.ApplyUpdate(ctx, row, target, payload); err != nil {
			return err
		}
	}
	return nil
}

// upsert updates the row matching where if one exists, otherwise creates
// one from create and links it.
func (w *Walker) upsert(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model, where, createPayload, updatePayload value.Value) error {
	found, err := w.conn.FindUnique(ctx, target, where, nil)
	if err != nil {
		return err
	}
	if found != nil {
		return w.ApplyUpdate(ctx, found, target, updatePayload)
	}
	return w.create(ctx, owner, r, target, createPayload)
}

// delete deletes the single row matching where.
func (w *Walker) delete(ctx context.Context, r *schema.Relation, target *schema.Model, where value.Value) error {
	found, err := w.conn.FindUnique(ctx, target, where, nil)
	if err != nil {
		return err
	}
	if found == nil {
		return keel.New(keel.KindObjectNotFound, "relationwalker: delete target not found on relation %q", r.Name)
	}
	return found.Delete(ctx, w.conn)
}

// deleteMany deletes every row matched by where.
func (w *Walker) deleteMany(ctx context.Context, r *schema.Relation, target *schema.Model, where value.Value) error {
	rows, err := w.conn.FindMany(ctx, target, &connection.Finder{Where: where})
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

// applyUpdate assigns payload's scalar fields onto obj, stages any nested
// relation entries, saves obj, and walks its newly-staged relations.
func (w *Walker) ApplyUpdate(ctx context.Context, obj *object.Object, model *schema.Model, payload value.Value) error {
	m, ok := payload.(*value.Map)
	if !ok {
		return keel.New(keel.KindUnexpectedInputType, "relationwalker: update payload must be an object")
	}
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		if _, ok := model.Field(key); ok {
			if err := obj.Set(ctx, key, v); err != nil {
				return err
			}
			continue
		}
		if _, ok := model.Relation(key); ok {
			if err := StageRelationValue(obj, key, v); err != nil {
				return err
			}
			continue
		}
	}
	if err := obj.Save(ctx, w.conn); err != nil {
		return err
	}
	return w.Walk(ctx, obj)
}

// rowsForWhere resolves the rows a disconnect/update verb's where clause
// targets, scoped to target's model.
func (w *Walker) rowsForWhere(ctx context.Context, _ *object.Object, _ *schema.Relation, target *schema.Model, where value.Value) ([]*object.Object, error) {
	return w.conn.FindMany(ctx, target, &connection.Finder{Where: where})
}

// currentlyLinked returns the rows presently associated with owner
// through r, used by set to compute which links to drop.
func (w *Walker) currentlyLinked(ctx context.Context, owner *object.Object, r *schema.Relation, target *schema.Model) ([]*object.Object, error) {
	switch {
	case r.IsManyToMany():
		ownerFK, targetFK, err := w.throughFKs(r, owner.Model(), target)
		if err != nil {
			return nil, err
		}
		through, _ := w.graph.Model(r.Through)
		joinWhere := value.NewMap()
		for i, f := range ownerFK.Fields {
			v, _ := owner.Get(ownerFK.References[i])
			joinWhere.Set(f, v)
		}
		joins, err := w.conn.FindMany(ctx, through, &connection.Finder{Where: joinWhere})
		if err != nil {
			return nil, err
		}
		out := make([]*object.Object, 0, len(joins))
		for _, j := range joins {
			targetWhere := value.NewMap()
			for i, f := range targetFK.References {
				v, _ := j.Get(targetFK.Fields[i])
				targetWhere.Set(f, v)
			}
			row, err := w.conn.FindUnique(ctx, target, targetWhere, nil)
			if err != nil {
				return nil, err
			}
			if row != nil {
				out = append(out, row)
			}
		}
		return out, nil
	case r.HasForeignKey():
		where := value.NewMap()
		for i, f := range r.Fields {
			v, _ := owner.Get(f)
			where.Set(r.References[i], v)
		}
		return w.conn.FindMany(ctx, target, &connection.Finder{Where: where})
	default:
		inv, err := w.inverseFK(target, r)
		if err != nil {
			return nil, err
		}
		where := value.NewMap()
		for i, f := range inv.Fields {
			v, _ := owner.Get(inv.References[i])
			where.Set(f, v)
		}
		return w.conn.FindMany(ctx, target, &connection.Finder{Where: where})
	}
}

// pkKey stringifies an object's primary key for use as a set-membership
// key when computing set's add/remove diff.
func pkKey(o *object.Object) string {
	out := ""
	for _, f := range o.Model().PrimaryFields() {
		v, _ := o.Get(f.Name)
		out += f.Name + "=" + fmt.Sprintf("%v", v) + ";"
	}
	return out
}
