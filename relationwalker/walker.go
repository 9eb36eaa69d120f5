// Package relationwalker expands the nested-mutation verbs a create or
// update payload stages against a relation (create, connect,
// connectOrCreate, set, disconnect, update, upsert, delete, updateMany,
// deleteMany, createMany) into an ordered sequence of object saves,
// deletes, and connection lookups, honoring foreign-key direction and
// each relation's delete rule.
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

// Walker expands staged relation operations against a frozen schema graph
// through a single Connection.
type Walker struct {
	graph *schema.Graph
	conn  connection.Connection
}

// New returns a Walker bound to graph and conn. All calls in one Walk
// participate in whatever transaction conn itself is already scoped to —
// the walker opens no transaction of its own.
func New(graph *schema.Graph, conn connection.Connection) *Walker {
	return &Walker{graph: graph, conn: conn}
}

// Walk expands every relation owner has staged operations against. It
// first walks the relations whose foreign key lives on the target model,
// then the relations owner itself holds the foreign key for. Within each
// of those two groups relations are walked in the model's declaration
// order and, within one relation, operations run in the order they were
// staged.
func (w *Walker) Walk(ctx context.Context, owner *object.Object) error {
	model := owner.Model()
	var childFirst, selfFirst []*schema.Relation
	for _, r := range model.Relations {
		if len(owner.StagedRelationOps(r.Name)) == 0 {
			continue
		}
		if r.HasForeignKey() {
			selfFirst = append(selfFirst, r)
		} else {
			childFirst = append(childFirst, r)
		}
	}
	for _, r := range childFirst {
		if err := w.walkRelation(ctx, owner, r); err != nil {
			return err
		}
	}
	for _, r := range selfFirst {
		if err := w.walkRelation(ctx, owner, r); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkRelation(ctx context.Context, owner *object.Object, r *schema.Relation) error {
	target, ok := w.graph.Model(r.Target)
	if !ok {
		return keel.New(keel.KindInternalServerError, "relationwalker: unknown target model %q", r.Target)
	}
	for _, op := range owner.StagedRelationOps(r.Name) {
		var err error
		switch op.Verb {
		case object.RelationCreate:
			err = w.create(ctx, owner, r, target, op.Create)
		case object.RelationCreateMany:
			err = w.createMany(ctx, owner, r, target, op.Create)
		case object.RelationConnect:
			err = w.connect(ctx, owner, r, target, op.Where)
		case object.RelationConnectOrCreate:
			err = w.connectOrCreate(ctx, owner, r, target, op.Where, op.Create)
		case object.RelationSet:
			err = w.set(ctx, owner, r, target, op.Where)
		case object.RelationDisconnect:
			err = w.disconnect(ctx, owner, r, target, op.Where)
		case object.RelationUpdate:
			err = w.update(ctx, r, target, op.Where, op.Update)
		case object.RelationUpdateMany:
			err = w.updateMany(ctx, r, target, op.Where, op.Update)
		case object.RelationUpsert:
			err = w.upsert(ctx, owner, r, target, op.Where, op.Create, op.Update)
		case object.RelationDelete:
			err = w.delete(ctx, r, target, op.Where)
		case object.RelationDeleteMany:
			err = w.deleteMany(ctx, r, target, op.Where)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ApplyCreate assigns payload's scalar fields onto obj and recursively
// stages+walks any nested relation entries payload carries, so a create
// several levels deep (category -> products -> reviews) cascades in one
// call.
func (w *Walker) ApplyCreate(ctx context.Context, obj *object.Object, model *schema.Model, payload value.Value) error {
	m, ok := payload.(*value.Map)
	if !ok {
		return keel.New(keel.KindUnexpectedInputType, "relationwalker: create payload must be an object")
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
	return nil
}

// StageRelationValue converts a decoded relation verb map (produced by
// package decoder) into staged object.RelationOp entries.
func StageRelationValue(obj *object.Object, relation string, v value.Value) error {
	verbMap, ok := v.(*value.Map)
	if !ok {
		return keel.New(keel.KindUnexpectedInputType, "relationwalker: relation payload must be an object")
	}
	for _, verb := range verbMap.Keys() {
		payload, _ := verbMap.Get(verb)
		op, err := relationOpFor(verb, payload)
		if err != nil {
			return err
		}
		if err := obj.StageRelationOp(relation, op); err != nil {
			return err
		}
	}
	return nil
}

func relationOpFor(verb string, payload value.Value) (object.RelationOp, error) {
	switch verb {
	case "create":
		return object.RelationOp{Verb: object.RelationCreate, Create: payload}, nil
	case "createMany":
		return object.RelationOp{Verb: object.RelationCreateMany, Create: payload}, nil
	case "connect":
		return object.RelationOp{Verb: object.RelationConnect, Where: payload}, nil
	case "set":
		return object.RelationOp{Verb: object.RelationSet, Where: payload}, nil
	case "disconnect":
		return object.RelationOp{Verb: object.RelationDisconnect, Where: payload}, nil
	case "delete":
		return object.RelationOp{Verb: object.RelationDelete, Where: payload}, nil
	case "deleteMany":
		return object.RelationOp{Verb: object.RelationDeleteMany, Where: payload}, nil
	case "connectOrCreate":
		m := payload.(*value.Map)
		where, _ := m.Get("where")
		create, _ := m.Get("create")
		return object.RelationOp{Verb: object.RelationConnectOrCreate, Where: where, Create: create}, nil
	case "update":
		m := payload.(*value.Map)
		where, _ := m.Get("where")
		update, hasSplit := m.Get("update")
		if !hasSplit {
			return object.RelationOp{Verb: object.RelationUpdate, Update: payload}, nil
		}
		return object.RelationOp{Verb: object.RelationUpdate, Where: where, Update: update}, nil
	case "updateMany":
		m := payload.(*value.Map)
		where, _ := m.Get("where")
		update, _ := m.Get("update")
		return object.RelationOp{Verb: object.RelationUpdateMany, Where: where, Update: update}, nil
	case "upsert":
		m := payload.(*value.Map)
		where, _ := m.Get("where")
		create, _ := m.Get("create")
		update, _ := m.Get("update")
		return object.RelationOp{Verb: object.RelationUpsert, Where: where, Create: create, Update: update}, nil
	default:
		return object.RelationOp{}, keel.New(keel.KindUnexpectedInputKey, "relationwalker: unknown relation verb %q", verb)
	}
}
