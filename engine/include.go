package engine

import (
	"context"

	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/decoder"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// Render serializes obj honoring proj's select mask, then eagerly loads
// and embeds every relation include names, recursing into each included
// object's own nested include clause. This is the one place the engine
// assembles a full response value for the dispatcher; object.ToJSON
// itself never touches relations, since object has no connection to load
// them through.
func (e *Engine) Render(ctx context.Context, conn connection.Connection, obj *object.Object, proj *object.Projection, include map[string]*decoder.IncludeClause) (value.Value, error) {
	out, err := obj.ToJSONSelected(ctx, value.Path{}, proj)
	if err != nil {
		return nil, err
	}
	m, ok := out.(*value.Map)
	if !ok {
		return out, nil
	}
	for name, clause := range include {
		rel, ok := obj.Model().Relation(name)
		if !ok {
			return nil, keel.New(keel.KindUnexpectedInputKey, "engine: model %s has no relation %q", obj.Model().Name, name).AtPath(name)
		}
		target, ok := e.graph.Model(rel.Target)
		if !ok {
			return nil, keel.New(keel.KindInternalServerError, "engine: relation target %q not found", rel.Target)
		}
		childProj := buildProjection(clause.Select, clause.Include)
		if rel.IsVec {
			rows, err := e.findRelatedMany(ctx, conn, obj, rel, target, clause)
			if err != nil {
				return nil, err
			}
			list := make(value.Vec, 0, len(rows))
			for _, row := range rows {
				rendered, err := e.Render(ctx, conn, row, childProj, clause.Include)
				if err != nil {
					return nil, err
				}
				list = append(list, rendered)
			}
			m.Set(name, list)
			continue
		}
		row, err := e.findRelatedOne(ctx, conn, obj, rel, target)
		if err != nil {
			return nil, err
		}
		if row == nil {
			m.Set(name, value.Null{})
			continue
		}
		rendered, err := e.Render(ctx, conn, row, childProj, clause.Include)
		if err != nil {
			return nil, err
		}
		m.Set(name, rendered)
	}
	return m, nil
}

// findRelatedOne resolves a to-one relation's related row: via owner's
// local foreign key when owner holds it, or via the inverse relation's
// foreign key on target otherwise.
func (e *Engine) findRelatedOne(ctx context.Context, conn connection.Connection, owner *object.Object, rel *schema.Relation, target *schema.Model) (*object.Object, error) {
	if rel.HasForeignKey() {
		where := value.NewMap()
		for i, f := range rel.Fields {
			v, ok := owner.Get(f)
			if !ok || v == (value.Null{}) {
				return nil, nil
			}
			where.Set(rel.References[i], v)
		}
		return conn.FindUnique(ctx, target, where, nil)
	}
	inv, ok := target.Relation(rel.Inverse)
	if !ok {
		return nil, keel.New(keel.KindInternalServerError, "engine: relation %q has no resolved inverse", rel.Name)
	}
	where := value.NewMap()
	for i, f := range inv.Fields {
		v, ok := owner.Get(inv.References[i])
		if !ok {
			return nil, nil
		}
		where.Set(f, v)
	}
	return conn.FindUnique(ctx, target, where, nil)
}

// findRelatedMany resolves a to-many relation's related rows, honoring
// clause's own where/orderBy/take/skip scoping in addition to the join
// condition. For a many-to-many relation only clause's where is applied
// (to each joined row's lookup); orderBy/take/skip are not.
func (e *Engine) findRelatedMany(ctx context.Context, conn connection.Connection, owner *object.Object, rel *schema.Relation, target *schema.Model, clause *decoder.IncludeClause) ([]*object.Object, error) {
	finder := finderFromInclude(clause)
	switch {
	case rel.IsManyToMany():
		through, ok := e.graph.Model(rel.Through)
		if !ok {
			return nil, keel.New(keel.KindInternalServerError, "engine: through model %q not found", rel.Through)
		}
		var ownerFK, targetFK *schema.Relation
		for _, tr := range through.Relations {
			if tr.Target == owner.Model().Name && tr.HasForeignKey() {
				ownerFK = tr
			}
			if tr.Target == target.Name && tr.HasForeignKey() {
				targetFK = tr
			}
		}
		if ownerFK == nil || targetFK == nil {
			return nil, keel.New(keel.KindInternalServerError, "engine: through model %q missing owning relations", rel.Through)
		}
		joinWhere := value.NewMap()
		for i, f := range ownerFK.Fields {
			v, _ := owner.Get(ownerFK.References[i])
			joinWhere.Set(f, v)
		}
		joins, err := conn.FindMany(ctx, through, &connection.Finder{Where: joinWhere})
		if err != nil {
			return nil, err
		}
		out := make([]*object.Object, 0, len(joins))
		for _, j := range joins {
			targetWhere := mergeWhere(finder.Where, nil)
			for i, f := range targetFK.References {
				v, _ := j.Get(targetFK.Fields[i])
				targetWhere.Set(f, v)
			}
			row, err := conn.FindUnique(ctx, target, targetWhere, nil)
			if err != nil {
				return nil, err
			}
			if row != nil {
				out = append(out, row)
			}
		}
		return out, nil
	default:
		inv, ok := target.Relation(rel.Inverse)
		if !ok {
			return nil, keel.New(keel.KindInternalServerError, "engine: relation %q has no resolved inverse", rel.Name)
		}
		where := mergeWhere(finder.Where, nil)
		for i, f := range inv.Fields {
			v, ok := owner.Get(inv.References[i])
			if !ok {
				return nil, nil
			}
			where.Set(f, v)
		}
		scoped := *finder
		scoped.Where = where
		return conn.FindMany(ctx, target, &scoped)
	}
}

// mergeWhere returns a fresh *value.Map seeded with every entry of base
// (when base is a *value.Map) so join-condition keys can be added without
// mutating the caller's decoded where clause. Non-map or nil bases are
// dropped, since the join condition alone is still a valid, if looser,
// filter.
func mergeWhere(base value.Value, _ *value.Map) *value.Map {
	out := value.NewMap()
	if m, ok := base.(*value.Map); ok {
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			out.Set(k, v)
		}
	}
	return out
}
