package schema

import "github.com/syssam/keel/pipeline"

// Property is a derived field: its value is computed from Dependencies by
// Getter rather than stored, and may optionally be written through
// Setter.
type Property struct {
	Name         string
	Dependencies []string // field names this property's getter reads
	Getter       *pipeline.Pipeline
	Setter       *pipeline.Pipeline // nil for a read-only property
}

// ReadOnly reports whether the property has no setter pipeline.
func (p *Property) ReadOnly() bool { return p.Setter == nil }
