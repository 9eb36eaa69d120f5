package schema

import "fmt"

// Graph is the frozen, fully-resolved schema graph the engine, decoder
// and relation walker all read from. It is built once at process startup
// and never mutated again (see the package doc for why this matters to
// the concurrency model).
type Graph struct {
	modelsByName   map[string]*Model
	modelsBySeg    map[string]*Model
	enumsByName    map[string]*Enum
	order          []string // model names in declaration order, for deterministic iteration
	finalized      bool
}

// NewGraph returns an empty, unfinalized Graph.
func NewGraph() *Graph {
	return &Graph{
		modelsByName: make(map[string]*Model),
		modelsBySeg:  make(map[string]*Model),
		enumsByName:  make(map[string]*Enum),
	}
}

// AddModel registers a model. Must be called before Finalize.
func (g *Graph) AddModel(m *Model) {
	if g.finalized {
		panic("schema: cannot add a model after Finalize")
	}
	g.order = append(g.order, m.Name)
	g.modelsByName[m.Name] = m
}

// AddEnum registers an enum. Must be called before Finalize.
func (g *Graph) AddEnum(e *Enum) {
	if g.finalized {
		panic("schema: cannot add an enum after Finalize")
	}
	g.enumsByName[e.Name] = e
}

// Model looks up a model by name.
func (g *Graph) Model(name string) (*Model, bool) {
	m, ok := g.modelsByName[name]
	return m, ok
}

// ModelByURLSegment looks up a model by its HTTP path segment.
func (g *Graph) ModelByURLSegment(seg string) (*Model, bool) {
	m, ok := g.modelsBySeg[seg]
	return m, ok
}

// Enum looks up an enum by name.
func (g *Graph) Enum(name string) (*Enum, bool) {
	e, ok := g.enumsByName[name]
	return e, ok
}

// Models returns every model in declaration order.
func (g *Graph) Models() []*Model {
	out := make([]*Model, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.modelsByName[name])
	}
	return out
}

// Finalize indexes every model's lookup maps, validates each model's local
// invariants, resolves relation pairing/inverse edges across models, and
// freezes the graph against further AddModel/AddEnum calls. It must be
// called exactly once, before the first request is served.
func (g *Graph) Finalize() error {
	if g.finalized {
		return fmt.Errorf("schema: graph already finalized")
	}
	for _, m := range g.modelsByName {
		if err := m.index(); err != nil {
			return err
		}
	}
	for _, m := range g.modelsByName {
		if err := m.validate(); err != nil {
			return err
		}
	}
	if err := g.resolveRelations(); err != nil {
		return err
	}
	for _, m := range g.modelsByName {
		g.modelsBySeg[m.URLSegment] = m
	}
	g.finalized = true
	return nil
}

// resolveRelations checks the cross-model invariants from spec.md §3
// ("every relation's fields/references refer to existing fields of
// matching types") and wires each relation's Inverse name and each
// field's ForeignKey marker.
func (g *Graph) resolveRelations() error {
	for _, m := range g.modelsByName {
		for _, r := range m.Relations {
			target, ok := g.modelsByName[r.Target]
			if !ok {
				return fmt.Errorf("schema: model %s: relation %s: target model %q does not exist", m.Name, r.Name, r.Target)
			}
			if r.IsManyToMany() {
				if _, ok := g.modelsByName[r.Through]; !ok {
					return fmt.Errorf("schema: model %s: relation %s: through model %q does not exist", m.Name, r.Name, r.Through)
				}
			}
			for i, refName := range r.References {
				rf, ok := target.fieldByName[refName]
				if !ok {
					return fmt.Errorf("schema: model %s: relation %s: reference field %q does not exist on %s", m.Name, r.Name, refName, r.Target)
				}
				if i < len(r.Fields) {
					lf := m.fieldByName[r.Fields[i]]
					if lf.Type.Kind != rf.Type.Kind {
						return fmt.Errorf("schema: model %s: relation %s: field %q type %s does not match reference %q type %s",
							m.Name, r.Name, lf.Name, lf.Type.Kind, refName, rf.Type.Kind)
					}
					lf.ForeignKey = true
				}
			}
			// Resolve the inverse edge: the relation on target whose
			// Target is m.Name and whose Fields/References mirror r's, or,
			// for a one-side relation carrying no fields, the relation on
			// target that owns the foreign key (and vice versa).
			for _, tr := range target.Relations {
				if tr.Target != m.Name {
					continue
				}
				if r.IsManyToMany() && tr.IsManyToMany() && tr.Through == r.Through && tr.Name != r.Name {
					r.Inverse = tr.Name
					break
				}
				if !r.IsManyToMany() && sameFieldSet(tr.References, r.Fields) && sameFieldSet(tr.Fields, r.References) {
					r.Inverse = tr.Name
					break
				}
				if !r.IsManyToMany() && !tr.IsManyToMany() && r.HasForeignKey() != tr.HasForeignKey() {
					r.Inverse = tr.Name
					break
				}
			}
		}
	}
	return nil
}

func sameFieldSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
