package schema

// Relation describes an edge from the owning Model to another Model.
type Relation struct {
	Name   string
	Target string // target Model name
	IsVec  bool   // true for a to-many edge
	Optional bool

	// Fields are local column names; References are the target's column
	// names they point to, positionally paired (|Fields| == |References|).
	Fields     []string
	References []string

	// Through names a join Model for a many-to-many relation; empty for
	// direct relations.
	Through string

	Delete DeleteRule

	// Inverse is the name of the relation on Target that points back to
	// this model, if any. Populated by Graph.Finalize.
	Inverse string
}

// HasForeignKey reports whether this relation's local Fields are foreign
// keys on the owning model's own table/collection: true whenever Fields
// is non-empty and Through is unset. The owner side of a one-to-many (the
// "many" side) has this true; the non-owning "one" side does not.
func (r *Relation) HasForeignKey() bool {
	return len(r.Fields) > 0 && r.Through == ""
}

// IsManyToMany reports whether this relation is mediated by a join model.
func (r *Relation) IsManyToMany() bool {
	return r.Through != ""
}
