package value

import (
	"strconv"
	"strings"
)

// Path is a structured key path locating a value (or error) inside a
// decoded Value tree, e.g. the path to `where.products.some.name` or to
// the third element of a `createMany` batch: `create[2].email`.
//
// It is built incrementally as the decoder and pipeline engine descend
// into nested structures, and rendered to a dotted string only when an
// error needs to report it — keeping the hot path allocation-free for the
// common case of no error.
type Path []Segment

// Segment is one step of a Path: either a map key or a list index.
type Segment struct {
	Key   string
	Index int
	IsKey bool
}

// Key returns a Path extended with a map-key segment.
func (p Path) Key(k string) Path {
	return append(append(Path(nil), p...), Segment{Key: k, IsKey: true})
}

// Index returns a Path extended with a list-index segment.
func (p Path) Index(i int) Path {
	return append(append(Path(nil), p...), Segment{Index: i})
}

// String renders the path as `a.b[2].c`, the form used in validation_error
// messages and in the HTTP error envelope's `fields` map.
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		if seg.IsKey {
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(seg.Key)
		} else {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(seg.Index))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// Last returns the final key segment's name, or "" if the path is empty or
// ends in an index. Used when an error needs only the immediate field
// name (e.g. writeOnce violations).
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	last := p[len(p)-1]
	if last.IsKey {
		return last.Key
	}
	return ""
}
