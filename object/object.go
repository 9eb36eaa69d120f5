package object

import (
	"context"
	"fmt"

	"github.com/syssam/keel"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// RelationVerb is one of the nested-mutation verbs a request may stage
// against a relation, per the Relation Walker's expansion table.
type RelationVerb uint8

const (
	RelationCreate RelationVerb = iota
	RelationConnect
	RelationConnectOrCreate
	RelationSet
	RelationDisconnect
	RelationUpdate
	RelationUpsert
	RelationDelete
	RelationUpdateMany
	RelationDeleteMany
	RelationCreateMany
)

// RelationOp is one staged nested-mutation operation against a named
// relation. Where/Create/Update carry raw decoded input (value.Map for
// object-shaped payloads, value.Vec for *Many verbs); the relation
// walker interprets them once the walk order is computed.
type RelationOp struct {
	Verb   RelationVerb
	Where  value.Value
	Create value.Value
	Update value.Value
}

// Saver is the minimal capability Save needs from a connection, kept
// local to avoid object importing package connection (which itself
// depends on object).
type Saver interface {
	SaveObject(ctx context.Context, o *Object) error
}

// Deleter is the minimal capability Delete needs from a connection.
type Deleter interface {
	DeleteObject(ctx context.Context, o *Object) error
}

// Finder is the minimal capability Refreshed needs from a connection:
// re-reading this object's row by its primary key.
type Finder interface {
	FindUnique(ctx context.Context, model *schema.Model, where value.Value, proj *Projection) (*Object, error)
}

// Object is the per-request runtime handle the engine binds to one row
// of one model: a value map, its state-machine stage, dirty tracking,
// previous-value tracking for fields whose PreviousValueRule keeps
// them, staged nested-relation operations, and atomic updaters queued
// for connector pushdown.
type Object struct {
	model     *schema.Model
	initiator Initiator
	action    pipeline.ActionTag
	position  pipeline.Position
	state     State

	values   map[string]value.Value
	previous map[string]value.Value
	dirty    map[string]bool

	relationOps map[string][]RelationOp
	atomics     map[string][]AtomicUpdate

	conn pipeline.RawQuerier
}

// New returns an empty Object bound to model, in StateNew.
func New(model *schema.Model, initiator Initiator, action pipeline.ActionTag, conn pipeline.RawQuerier) *Object {
	return &Object{
		model:       model,
		initiator:   initiator,
		action:      action,
		position:    pipeline.PositionCreate,
		state:       StateNew,
		values:      make(map[string]value.Value),
		previous:    make(map[string]value.Value),
		dirty:       make(map[string]bool),
		relationOps: make(map[string][]RelationOp),
		atomics:     make(map[string][]AtomicUpdate),
		conn:        conn,
	}
}

// Hydrate returns an Object in StateInitialized, pre-populated from a
// connector's row read (find_unique/find_many results never run onSet,
// since they were not "set" by this request).
func Hydrate(model *schema.Model, initiator Initiator, conn pipeline.RawQuerier, row map[string]value.Value) *Object {
	o := New(model, initiator, pipeline.ActionFind, conn)
	o.state = StateInitialized
	o.position = pipeline.PositionUpdate
	for k, v := range row {
		o.values[k] = v
	}
	return o
}

// Model returns the bound schema model.
func (o *Object) Model() *schema.Model { return o.model }

// State returns the object's current lifecycle stage.
func (o *Object) State() State { return o.state }

// Initiator returns the caller that owns this object's engine call.
func (o *Object) Initiator() Initiator { return o.initiator }

// ModelName satisfies value.ObjectHandle so an Object can be wrapped in
// value.Object{Handle: o}.
func (o *Object) ModelName() string { return o.model.Name }

// Get satisfies value.ObjectHandle and pipeline.BoundObject: it reads a
// field's current value without regard to read rules (rule enforcement
// happens in ToJSON, not here — internal pipeline code needs the real
// value even for a no-read field).
func (o *Object) Get(key string) (value.Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// GetPreviousValue satisfies pipeline.BoundObject: it returns the
// pre-mutation value retained for a PreviousValueKeep field, or (nil,
// false) when the field was never dirtied this request or doesn't keep
// previous values.
func (o *Object) GetPreviousValue(key string) (value.Value, bool) {
	v, ok := o.previous[key]
	return v, ok
}

// IsDirty reports whether key was set since the object was hydrated or
// created.
func (o *Object) IsDirty(key string) bool { return o.dirty[key] }

// DirtyFields returns the names of every field set this request, in no
// particular order; save_object pushes exactly these columns.
func (o *Object) DirtyFields() []string {
	out := make([]string, 0, len(o.dirty))
	for k := range o.dirty {
		out = append(out, k)
	}
	return out
}

func (o *Object) ctxFor(path value.Path, v value.Value) pipeline.Ctx {
	return pipeline.Ctx{
		Context:  context.Background(),
		Value:    v,
		Object:   o,
		Path:     path,
		Action:   o.action,
		Position: o.position,
		Conn:     o.conn,
	}
}

// Set assigns v to the named field after running its onSet pipeline (if
// any), enforcing the field's WriteRule and retaining its pre-mutation
// value when the field's PreviousValueRule asks for it. An Initiator that
// Bypasses() (InitiatorInternal) is exempt from the WriteRule check.
func (o *Object) Set(ctx context.Context, key string, v value.Value) error {
	if o.state == StateDeleted {
		return keel.New(keel.KindObjectIsDeleted, "object: cannot set %q on a deleted object", key)
	}
	field, ok := o.model.Field(key)
	if !ok {
		return keel.New(keel.KindUnexpectedInputKey, "object: model %s has no field %q", o.model.Name, key)
	}
	if !o.initiator.Bypasses() {
		if field.Write == schema.WriteNever {
			return keel.ValidationError(key, "field is never writable")
		}
		if field.Write == schema.WriteOnce && o.state != StateNew {
			return keel.ValidationError(key, "field can only be set on create")
		}
	}

	pctx := o.ctxFor(value.Path{}.Key(key), v)
	if field.OnSet != nil {
		out, err := field.OnSet.Run(pctx)
		if err != nil {
			return err
		}
		v = out.Value
	}

	if field.Prev == schema.PreviousValueKeep {
		if !o.dirty[key] {
			if old, ok := o.values[key]; ok {
				o.previous[key] = old
			} else {
				o.previous[key] = value.Null{}
			}
		}
	}

	o.values[key] = v
	o.dirty[key] = true
	if o.state == StateInitialized {
		o.state = StateModified
	}
	return nil
}

// Atomic queues an atomic updater against field, applying it immediately
// to the in-memory value (so subsequent Get/ToJSON calls in the same
// request see the updated value) and recording it so a connector may
// instead push the operation down as a single UPDATE ... SET x = x + ?.
func (o *Object) Atomic(field string, u AtomicUpdate) error {
	if o.state == StateDeleted {
		return keel.New(keel.KindObjectIsDeleted, "object: cannot update %q on a deleted object", field)
	}
	f, ok := o.model.Field(field)
	if !ok {
		return keel.New(keel.KindUnexpectedInputKey, "object: model %s has no field %q", o.model.Name, field)
	}
	if f.Write == schema.WriteNever {
		return keel.ValidationError(field, "field is never writable")
	}
	cur, ok := o.values[field]
	if !ok {
		cur = value.Null{}
	}
	next, err := ApplyAtomicUpdate(cur, u)
	if err != nil {
		return keel.Wrap(keel.KindValidationError, err, "object: atomic update on %q", field)
	}
	if f.Prev == schema.PreviousValueKeep && !o.dirty[field] {
		o.previous[field] = cur
	}
	o.values[field] = next
	o.dirty[field] = true
	o.atomics[field] = append(o.atomics[field], u)
	if o.state == StateInitialized {
		o.state = StateModified
	}
	return nil
}

// StageRelationOp queues a nested-mutation verb against relation for the
// relation walker to expand once the dependency order is computed.
func (o *Object) StageRelationOp(relation string, op RelationOp) error {
	if _, ok := o.model.Relation(relation); !ok {
		return keel.New(keel.KindUnexpectedInputKey, "object: model %s has no relation %q", o.model.Name, relation)
	}
	o.relationOps[relation] = append(o.relationOps[relation], op)
	return nil
}

// StagedRelationOps returns the nested operations queued for relation.
func (o *Object) StagedRelationOps(relation string) []RelationOp {
	return o.relationOps[relation]
}

// PendingAtomics returns the atomic updates queued for field, in the
// order they were applied.
func (o *Object) PendingAtomics(field string) []AtomicUpdate {
	return o.atomics[field]
}

// Save persists the object through conn, running each dirty field's
// onSave pipeline first, then transitioning New/Modified -> Initialized
// and clearing dirty/atomic state on success.
func (o *Object) Save(ctx context.Context, conn Saver) error {
	if o.state == StateDeleted {
		return keel.New(keel.KindObjectIsDeleted, "object: cannot save a deleted object")
	}
	if o.state != StateNew && o.state != StateModified {
		return nil // already initialized and untouched: nothing to do
	}
	for _, key := range o.DirtyFields() {
		field, ok := o.model.Field(key)
		if !ok || field.OnSave == nil {
			continue
		}
		pctx := o.ctxFor(value.Path{}.Key(key), o.values[key])
		out, err := field.OnSave.Run(pctx)
		if err != nil {
			return err
		}
		o.values[key] = out.Value
	}
	if err := conn.SaveObject(ctx, o); err != nil {
		return err
	}
	o.state = StateInitialized
	o.dirty = make(map[string]bool)
	o.atomics = make(map[string][]AtomicUpdate)
	return nil
}

// Delete removes the object through conn and transitions to StateDeleted.
func (o *Object) Delete(ctx context.Context, conn Deleter) error {
	if o.state == StateDeleted {
		return keel.New(keel.KindObjectIsDeleted, "object: already deleted")
	}
	if err := conn.DeleteObject(ctx, o); err != nil {
		return err
	}
	o.state = StateDeleted
	return nil
}

// Refreshed re-reads this object's row from finder using the model's
// primary key, returning a fresh *Object honoring proj's projection.
func (o *Object) Refreshed(ctx context.Context, finder Finder, proj *Projection) (*Object, error) {
	pk := o.primaryKeyFilter()
	if pk == nil {
		return nil, keel.New(keel.KindInternalServerError, "object: cannot refresh %s without a primary key", o.model.Name)
	}
	return finder.FindUnique(ctx, o.model, pk, proj)
}

func (o *Object) primaryKeyFilter() value.Value {
	fields := o.model.PrimaryFields()
	if len(fields) == 0 {
		return nil
	}
	m := value.NewMap()
	for _, f := range fields {
		v, ok := o.values[f.Name]
		if !ok {
			return nil
		}
		m.Set(f.Name, v)
	}
	return m
}

// ToJSON serializes the object honoring each field's ReadRule and
// OutputOmissible flag, proj's select-mask, and each field's onOutput
// pipeline, in model field-declaration order. An Initiator that
// Bypasses() (InitiatorInternal) sees ReadNoRead fields too.
func (o *Object) ToJSON(ctx context.Context, path value.Path) (value.Value, error) {
	return o.toJSON(ctx, path, nil)
}

// ToJSONSelected is ToJSON with an explicit select/include projection.
func (o *Object) ToJSONSelected(ctx context.Context, path value.Path, proj *Projection) (value.Value, error) {
	return o.toJSON(ctx, path, proj)
}

func (o *Object) toJSON(_ context.Context, path value.Path, proj *Projection) (value.Value, error) {
	out := value.NewMap()
	for _, field := range o.model.Fields {
		if field.Read == schema.ReadNoRead && !o.initiator.Bypasses() {
			continue
		}
		if !proj.Selected(field.Name) {
			continue
		}
		v, ok := o.values[field.Name]
		if !ok {
			if field.OutputOmissible {
				continue
			}
			v = value.Null{}
		}
		if field.OnOutput != nil {
			fieldPath := path.Key(field.Name)
			pctx := pipeline.Ctx{
				Context:  context.Background(),
				Value:    v,
				Object:   o,
				Path:     fieldPath,
				Action:   o.action,
				Position: pipeline.PositionOutput,
				Conn:     o.conn,
			}
			result, err := field.OnOutput.Run(pctx)
			if err != nil {
				return nil, err
			}
			v = result.Value
		}
		out.Set(field.Name, v)
	}
	return out, nil
}

var _ value.ObjectHandle = (*Object)(nil)
var _ pipeline.BoundObject = (*Object)(nil)

func init() {
	// Guard against a silently-misordered RelationVerb iota list, which
	// would otherwise change wire behavior without a compiler error.
	if RelationCreate != 0 || RelationCreateMany != 10 {
		panic(fmt.Sprintf("object: RelationVerb iota order changed unexpectedly: create=%d createMany=%d", RelationCreate, RelationCreateMany))
	}
}
