package connection

import "github.com/syssam/keel/value"

// AggregateOp names one of the aggregate handler's fixed reducer
// functions.
type AggregateOp uint8

const (
	AggregateCount AggregateOp = iota
	AggregateSum
	AggregateAvg
	AggregateMin
	AggregateMax
)

// Aggregate is one requested `_count`/`_sum`/`_avg`/`_min`/`_max` entry,
// naming the field to reduce over and the output key to report it under.
type Aggregate struct {
	Op    AggregateOp
	Field string
	As    string
}

// GroupResult is one partition of a groupBy call: the distinguishing key
// values plus the requested aggregates, both rendered as value.Maps so
// action.Response can serialize them the same way it serializes an
// object.
type GroupResult struct {
	Keys       map[string]value.Value
	Aggregates map[string]value.Value
}
