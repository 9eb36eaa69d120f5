package value

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Value is the tagged value tree every layer of the engine passes around:
// decoded JSON input, field defaults, pipeline intermediate values, and
// serialized output all flow through this type.
type Value interface {
	Kind() Kind
}

// Null is the value held by an absent or JSON-null field.
type Null struct{}

// Kind implements Value.
func (Null) Kind() Kind { return KindNull }

// IsNull reports whether v is nil or the Null value.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Bool wraps a boolean value.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// Int32 wraps a width-preserving 32-bit integer.
type Int32 int32

// Kind implements Value.
func (Int32) Kind() Kind { return KindInt32 }

// Int64 wraps a width-preserving 64-bit integer.
type Int64 int64

// Kind implements Value.
func (Int64) Kind() Kind { return KindInt64 }

// Float32 wraps a width-preserving 32-bit float.
type Float32 float32

// Kind implements Value.
func (Float32) Kind() Kind { return KindFloat32 }

// Float64 wraps a width-preserving 64-bit float.
type Float64 float64

// Kind implements Value.
func (Float64) Kind() Kind { return KindFloat64 }

// Decimal wraps an arbitrary-precision decimal, backed by shopspring/decimal
// so that monetary fields never lose precision round-tripping through the
// engine.
type Decimal struct {
	D decimal.Decimal
}

// Kind implements Value.
func (Decimal) Kind() Kind { return KindDecimal }

// NewDecimal wraps d as a Value.
func NewDecimal(d decimal.Decimal) Decimal { return Decimal{D: d} }

// String wraps a UTF-8 string value.
type String string

// Kind implements Value.
func (String) Kind() Kind { return KindString }

// Date is a civil date (no time-of-day, no timezone), distinct from
// DateTime per the data model's distinction between civil date and
// instant-with-UTC-semantics.
type Date struct {
	Year  int
	Month int // 1-12
	Day   int
}

// Kind implements Value.
func (Date) Kind() Kind { return KindDate }

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DateOf truncates t (interpreted in UTC) to a civil Date.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Time returns the date as a UTC midnight time.Time.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// DateTime is an instant with UTC semantics.
type DateTime struct {
	T time.Time
}

// Kind implements Value.
func (DateTime) Kind() Kind { return KindDateTime }

// NewDateTime normalizes t to UTC and wraps it.
func NewDateTime(t time.Time) DateTime { return DateTime{T: t.UTC()} }

// ObjectID is a 12-byte identifier, shaped like a Mongo ObjectID so the
// same field type works whether the backing connector is a document store
// or a relational store (which maps it to a fixed-width string/binary
// column).
type ObjectID [12]byte

// Kind implements Value.
func (ObjectID) Kind() Kind { return KindObjectID }

// String renders the ObjectID as lowercase hex.
func (o ObjectID) String() string {
	const hexdigits = "0123456789abcdef"
	buf := make([]byte, 24)
	for i, b := range o {
		buf[i*2] = hexdigits[b>>4]
		buf[i*2+1] = hexdigits[b&0xf]
	}
	return string(buf)
}

// Vec is an ordered, homogeneous-or-not list of values.
type Vec []Value

// Kind implements Value.
func (Vec) Kind() Kind { return KindVec }

// Tuple is a fixed-arity heterogeneous list.
type Tuple []Value

// Kind implements Value.
func (Tuple) Kind() Kind { return KindTuple }

// Range is an inclusive-or-exclusive bound pair, used by querying items
// such as range filters.
type Range struct {
	Start, End       Value
	StartInclusive   bool
	EndInclusive     bool
}

// Kind implements Value.
func (Range) Kind() Kind { return KindRange }

// Regexp wraps a compiled regular expression, as produced by the
// regexMatch pipeline validator and by regex-based where filters.
type Regexp struct {
	Re *regexp.Regexp
}

// Kind implements Value.
func (Regexp) Kind() Kind { return KindRegexp }

// Pipeline wraps an opaque compiled pipeline. The concrete representation
// lives in package pipeline; this package cannot import it without
// creating an import cycle (pipeline.Ctx carries a Value), so the
// representation is carried as an any and type-asserted by package
// pipeline itself.
type Pipeline struct {
	Repr any
}

// Kind implements Value.
func (Pipeline) Kind() Kind { return KindPipeline }

// ObjectHandle is the minimal surface package value needs from a live
// in-memory object, satisfied by object.Object. Keeping it as an interface
// here (rather than importing package object) avoids a value<->object
// import cycle, since object.Object's field map holds value.Value.
type ObjectHandle interface {
	ModelName() string
	Get(field string) (Value, bool)
}

// Object wraps a handle into the engine's in-memory object store.
type Object struct {
	Handle ObjectHandle
}

// Kind implements Value.
func (Object) Kind() Kind { return KindObject }

// Map is an ordered string-keyed map, preserving insertion order the way
// a JSON object's key order is preserved — required so that decoded
// `where`/`create`/`update` input and serialized output keep a
// deterministic, input-matching shape.
type Map struct {
	keys   []string
	values map[string]Value
}

// Kind implements Value.
func (*Map) Kind() Kind { return KindMap }

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set inserts or overwrites key. The key's position is preserved on
// overwrite; new keys are appended.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key, if present.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Range calls f for each entry in insertion order, stopping early if f
// returns false.
func (m *Map) Range(f func(key string, v Value) bool) {
	for _, k := range m.keys {
		if !f(k, m.values[k]) {
			return
		}
	}
}
