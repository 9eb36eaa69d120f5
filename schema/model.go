package schema

import "fmt"

// Model is one entity type in the schema graph. It is immutable after
// Graph.Finalize.
type Model struct {
	Name          string
	TableName     string // defaults to Name if empty at Finalize
	URLSegment    string // defaults to Name if empty at Finalize

	Fields     []*Field
	Properties []*Property
	Relations  []*Relation
	Indexes    []*Index

	// AuthIdentityKeys and AuthByKeys name this model's sign-in fields:
	// exactly one of each must be present in a sign_in request's
	// credentials. They must be disjoint sets (a field cannot serve both
	// roles).
	AuthIdentityKeys []string
	AuthByKeys       []string

	// Actions is the subset of the fixed handler taxonomy this model
	// exposes; an empty set means "all handlers", matching a schema
	// author who never restricted anything.
	Actions map[Handler]bool

	fieldByName    map[string]*Field
	fieldByColumn  map[string]*Field
	relationByName map[string]*Relation
	propertyByName map[string]*Property
}

// Field looks up a field by name.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.fieldByName[name]
	return f, ok
}

// FieldByColumn looks up a field by its storage column name.
func (m *Model) FieldByColumn(column string) (*Field, bool) {
	f, ok := m.fieldByColumn[column]
	return f, ok
}

// Relation looks up a relation by name.
func (m *Model) Relation(name string) (*Relation, bool) {
	r, ok := m.relationByName[name]
	return r, ok
}

// Property looks up a property by name.
func (m *Model) Property(name string) (*Property, bool) {
	p, ok := m.propertyByName[name]
	return p, ok
}

// HasAction reports whether h is enabled for this model. An empty
// Actions set enables every fixed handler.
func (m *Model) HasAction(h Handler) bool {
	if len(m.Actions) == 0 {
		return true
	}
	return m.Actions[h]
}

// PrimaryIndex returns the model's single primary index.
func (m *Model) PrimaryIndex() (*Index, bool) {
	for _, idx := range m.Indexes {
		if idx.Kind == IndexPrimary {
			return idx, true
		}
	}
	return nil, false
}

// PrimaryFields returns the Field pointers making up the primary index,
// in index-column order.
func (m *Model) PrimaryFields() []*Field {
	idx, ok := m.PrimaryIndex()
	if !ok {
		return nil
	}
	out := make([]*Field, 0, len(idx.Fields))
	for _, name := range idx.Fields {
		if f, ok := m.fieldByName[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

// index builds the lookup maps and resolves Column/TableName/URLSegment
// defaults. Called once by Graph.Finalize.
func (m *Model) index() error {
	if m.TableName == "" {
		m.TableName = m.Name
	}
	if m.URLSegment == "" {
		m.URLSegment = m.Name
	}
	m.fieldByName = make(map[string]*Field, len(m.Fields))
	m.fieldByColumn = make(map[string]*Field, len(m.Fields))
	for _, f := range m.Fields {
		if f.Column == "" {
			f.Column = f.Name
		}
		if _, dup := m.fieldByName[f.Name]; dup {
			return fmt.Errorf("schema: model %s: duplicate field %q", m.Name, f.Name)
		}
		m.fieldByName[f.Name] = f
		m.fieldByColumn[f.Column] = f
	}
	m.relationByName = make(map[string]*Relation, len(m.Relations))
	for _, r := range m.Relations {
		if _, dup := m.relationByName[r.Name]; dup {
			return fmt.Errorf("schema: model %s: duplicate relation %q", m.Name, r.Name)
		}
		m.relationByName[r.Name] = r
	}
	m.propertyByName = make(map[string]*Property, len(m.Properties))
	for _, p := range m.Properties {
		m.propertyByName[p.Name] = p
	}
	return nil
}

// validate checks the invariants listed in spec.md §3 that can be
// verified locally (relation field/reference pairing against the field
// lists of this model; disjointness of the auth key sets; exactly one
// primary index). Invariants that reach across models (relation pairing
// against the *target* model) are checked by Graph.Finalize once every
// model is indexed.
func (m *Model) validate() error {
	primaryCount := 0
	for _, idx := range m.Indexes {
		if idx.Kind == IndexPrimary {
			primaryCount++
		}
	}
	if primaryCount != 1 {
		return fmt.Errorf("schema: model %s: must have exactly one primary index, found %d", m.Name, primaryCount)
	}
	for _, r := range m.Relations {
		if len(r.Fields) != len(r.References) {
			return fmt.Errorf("schema: model %s: relation %s: len(fields)=%d != len(references)=%d",
				m.Name, r.Name, len(r.Fields), len(r.References))
		}
		if r.IsManyToMany() && len(r.Fields) > 0 {
			return fmt.Errorf("schema: model %s: relation %s: a many-to-many relation must not declare local fields", m.Name, r.Name)
		}
		for _, fname := range r.Fields {
			if _, ok := m.fieldByName[fname]; !ok {
				return fmt.Errorf("schema: model %s: relation %s: local field %q does not exist", m.Name, r.Name, fname)
			}
		}
	}
	identitySet := make(map[string]bool, len(m.AuthIdentityKeys))
	for _, k := range m.AuthIdentityKeys {
		identitySet[k] = true
	}
	for _, k := range m.AuthByKeys {
		if identitySet[k] {
			return fmt.Errorf("schema: model %s: field %q cannot be both an auth-identity and auth-by key", m.Name, k)
		}
	}
	return nil
}
