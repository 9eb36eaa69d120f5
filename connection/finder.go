package connection

import (
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/value"
)

// OrderTerm is one `orderBy` clause entry.
type OrderTerm struct {
	Field string
	Desc  bool
}

// Finder is the fully-decoded shape of a findMany/count/aggregate/groupBy
// request: the predicate tree plus paging, ordering, and projection.
// Where is left as an opaque value.Value (the decoder's predicate tree)
// rather than a typed filter struct, since the predicate grammar
// (equals/in/contains/relation-exists/...) belongs to the decoder, not to
// the connection abstraction — a connector only needs to walk it.
type Finder struct {
	Where    value.Value // decoder-produced predicate tree; connectors type-switch their own shape
	OrderBy  []OrderTerm
	Cursor   value.Value
	Take     int // 0 means unbounded
	Skip     int
	Distinct []string
	Select   *object.Projection
}

// NewFinder returns a Finder with no filtering, paging, or projection —
// equivalent to a bare findMany with no query parameters.
func NewFinder() *Finder {
	return &Finder{}
}

// WithTake returns a copy of f with Take set.
func (f *Finder) WithTake(n int) *Finder {
	cp := *f
	cp.Take = n
	return &cp
}

// WithSkip returns a copy of f with Skip set.
func (f *Finder) WithSkip(n int) *Finder {
	cp := *f
	cp.Skip = n
	return &cp
}
