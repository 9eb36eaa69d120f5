package schema

// IndexKind distinguishes a model's primary index from secondary ones.
type IndexKind uint8

const (
	IndexSecondary IndexKind = iota
	IndexPrimary
	IndexUnique
)

// Index describes one index over a Model's fields.
type Index struct {
	Name   string
	Kind   IndexKind
	Fields []string // field names, in index-column order
}
