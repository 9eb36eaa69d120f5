// Package schema holds the frozen, fully-resolved schema graph the engine
// executes against: models, fields, relations, enums, properties and
// indexes. Nothing in this package is mutable once Graph.Finalize has run
// — the engine depends on that immutability to read the graph from any
// request goroutine without synchronization (see the Concurrency &
// Resource Model: "the schema graph is read-only after startup").
//
// This package does not parse a schema DSL; it is the target shape that
// such a parser (out of scope for this repository, see spec.md §1)
// produces. Callers build a Graph with plain Go struct literals (or a
// small builder, for tests) and call Finalize once at process startup.
package schema

// ReadRule controls field visibility during output serialization.
type ReadRule uint8

const (
	// ReadAlways: the field is always visible to to_json, subject to
	// select-mask and output-omissible rules.
	ReadAlways ReadRule = iota
	// ReadNoRead: the field is never serialized, regardless of select.
	ReadNoRead
)

// WriteRule controls whether and when a field may be set.
type WriteRule uint8

const (
	// WriteAlways: the field may be set on create and on any later update.
	WriteAlways WriteRule = iota
	// WriteOnce: the field may be set on create only; any later Set call
	// fails with a validation_error at the field's path.
	WriteOnce
	// WriteNever: the field can never be set via the engine (e.g. a
	// fully-computed column); only the connector may populate it.
	WriteNever
)

// PreviousValueRule controls whether Object.Set preserves the field's
// pre-mutation value for getPrevious/diff-driven pipelines.
type PreviousValueRule uint8

const (
	// PreviousValueDontKeep: no previous value is retained (the default;
	// most fields don't need it and keeping it doubles their footprint).
	PreviousValueDontKeep PreviousValueRule = iota
	// PreviousValueKeep: the field's pre-mutation value is retained in the
	// object's previous-value map until the next successful save.
	PreviousValueKeep
)

// DeleteRule controls what happens to the "many" side of a relation when
// the referenced object is deleted.
type DeleteRule uint8

const (
	// DeleteRuleNoAction: the connector's own default (usually a raw
	// constraint violation) applies; the engine does not cascade.
	DeleteRuleNoAction DeleteRule = iota
	// DeleteRuleCascade: deleting the referenced object deletes this side too.
	DeleteRuleCascade
	// DeleteRuleRestrict: deleting the referenced object is refused while
	// this side still references it.
	DeleteRuleRestrict
	// DeleteRuleSetNull: deleting the referenced object nulls this side's
	// foreign key (only valid when the relation is optional).
	DeleteRuleSetNull
)
