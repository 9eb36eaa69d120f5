package schema

import (
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/value"
)

// FieldType describes a field's declared value kind, plus the extra
// information needed to decode/validate it: which enum it draws from, for
// KindString-backed enum fields.
type FieldType struct {
	Kind     value.Kind
	EnumName string // non-empty only when Kind names an enum-backed field
}

// Field is one column of a Model. It is immutable after Graph.Finalize.
type Field struct {
	Name     string
	Column   string // defaults to Name if empty at Finalize
	Type     FieldType
	Optional bool

	Read  ReadRule
	Write WriteRule
	Prev  PreviousValueRule

	InputOmissible  bool
	OutputOmissible bool

	Primary         bool
	Auto            bool
	AutoIncrement   bool
	ForeignKey      bool // derived during Graph.Finalize from owning relations
	Queryable       bool
	Sortable        bool
	IndexMember     bool

	// IdentityIdentifier marks the field used as the auth-identity key
	// (e.g. email) when this model is used as a sign-in identity.
	IdentityIdentifier bool
	// IdentityChecker runs as a PositionIdentity pipeline against the
	// submitted credential value during sign_in, for auth-by fields
	// (e.g. a password field whose checker bcrypt-compares a hash).
	IdentityChecker *pipeline.Pipeline

	// Default, when non-nil, supplies the field's value on create when
	// the input omits it. DefaultPipeline, when non-nil, takes priority
	// and computes the default by running a pipeline instead.
	Default         value.Value
	DefaultPipeline *pipeline.Pipeline

	OnSet    *pipeline.Pipeline
	OnSave   *pipeline.Pipeline
	OnOutput *pipeline.Pipeline

	// Migration carries connector-specific DDL hints (column type
	// overrides, etc); the engine never reads it, only connectors do.
	Migration map[string]string
}

// ColumnName returns Column, falling back to Name.
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// HasDefault reports whether create may omit this field and still get a value.
func (f *Field) HasDefault() bool {
	return f.Default != nil || f.DefaultPipeline != nil
}
