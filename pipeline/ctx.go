// Package pipeline implements the engine's field- and action-level
// pipelines: a finite, restartable sequence of Items executed cooperatively
// over a Ctx. Pipelines drive onSet/onSave/onOutput field
// transforms, validators, identity checkers, and the custom-named
// transform/validate/callback/compare forms that schema authors register
// at startup.
//
// A pipeline is deterministic for a given ctx and schema; side effects
// (object mutation, I/O) happen only in explicit items (custom callbacks,
// queryRaw). This matches the engine's cooperative-suspension concurrency
// model: no Item holds a lock or blocks outside an explicit I/O item.
package pipeline

import (
	"context"

	"github.com/syssam/keel/value"
)

// ActionTag names the action an enclosing pipeline is running under, used
// by the `when(actions, pipeline)` conditional composer. It deliberately
// does not import package schema's Action type (which would create an
// import cycle, since schema.Field holds compiled Pipelines); schema
// converts its Action to this tag with Action.Tag().
type ActionTag string

const (
	ActionCreate     ActionTag = "create"
	ActionUpdate     ActionTag = "update"
	ActionUpsert     ActionTag = "upsert"
	ActionDelete     ActionTag = "delete"
	ActionFind       ActionTag = "find"
	ActionSignIn     ActionTag = "signIn"
	ActionIdentity   ActionTag = "identity"
	ActionCount      ActionTag = "count"
	ActionAggregate  ActionTag = "aggregate"
	ActionGroupBy    ActionTag = "groupBy"
)

// Position marks where in an object's lifecycle the enclosing pipeline is
// running. getPrevious, for instance, is only meaningful during an update:
// on create there is no previous value to compare against.
type Position uint8

const (
	// PositionCreate: the bound object is being newly created.
	PositionCreate Position = iota
	// PositionUpdate: the bound object already existed and is being modified.
	PositionUpdate
	// PositionOutput: the pipeline is running as part of onOutput serialization.
	PositionOutput
	// PositionIdentity: the pipeline is running as an auth-by identity checker.
	PositionIdentity
)

// RawQuerier is the minimal connection capability the queryRaw item needs.
// connection.Connection satisfies this without package pipeline importing
// package connection, avoiding an import cycle (connection depends on
// schema, which depends on pipeline).
type RawQuerier interface {
	QueryRaw(ctx context.Context, query string, args []value.Value) (value.Value, error)
}

// BoundObject is the minimal surface a pipeline needs from the object its
// ctx is bound to: reading its previous (pre-mutation) values for
// getPrevious, and its current field map for `is`/`isObjectOf`.
type BoundObject interface {
	value.ObjectHandle
	GetPreviousValue(field string) (value.Value, bool)
}

// Ctx is the per-item execution context threaded through a pipeline run.
// It is a small immutable value: items that want to change the current
// value or path return a new Ctx rather than mutating one in place, so a
// partially-run pipeline never leaks a torn intermediate state.
type Ctx struct {
	Context  context.Context
	Value    value.Value
	Object   BoundObject // nil when no object is bound (e.g. a bare where-filter pipeline)
	Path     value.Path
	Action   ActionTag
	Position Position
	Conn     RawQuerier
}

// WithValue returns a copy of ctx with Value replaced.
func (c Ctx) WithValue(v value.Value) Ctx {
	c.Value = v
	return c
}

// WithPath returns a copy of ctx with Path replaced.
func (c Ctx) WithPath(p value.Path) Ctx {
	c.Path = p
	return c
}
