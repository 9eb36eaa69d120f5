package object

// Projection is the parsed select/include shape an action request
// attaches to a read, controlling which fields ToJSON emits. Include
// holds nested projections by relation name; Refreshed loads no
// relations itself.
//
// A nil *Projection (or one with a nil Select map) means "every
// read-eligible field", matching a bare find request with no select
// clause.
type Projection struct {
	Select  map[string]bool
	Include map[string]*Projection
}

// Selected reports whether field belongs in the output. A nil
// Projection, or one whose Select map is nil, selects everything.
func (p *Projection) Selected(field string) bool {
	if p == nil || p.Select == nil {
		return true
	}
	return p.Select[field]
}

// IncludeFor returns the nested projection to use when eagerly loading
// relation, and whether that relation was requested at all.
func (p *Projection) IncludeFor(relation string) (*Projection, bool) {
	if p == nil || p.Include == nil {
		return nil, false
	}
	proj, ok := p.Include[relation]
	return proj, ok
}
