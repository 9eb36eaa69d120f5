// Package connection defines the storage-backend abstraction the engine
// executes every read and write through: Connection. Exactly one concrete
// implementation ships in this repository (package sqlconn, a
// database/sql-backed connector), but the interface itself is the
// pluggable seam described in the Component Design: a document-store
// connector could implement the same surface without the engine, object,
// or action packages changing at all.
package connection

import (
	"context"

	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// Connection is the full capability surface a storage backend offers the
// engine. It is deliberately flat (no separate reader/writer split): every
// connector in the pack (velox's own dialect.Driver) exposes exec/query as
// one interface, and the engine's own object/relation-walker code expects
// to call all of these on the same handle within one transaction.
type Connection interface {
	object.Saver
	object.Deleter
	object.Finder

	// FindMany returns every object matching finder's where/order/cursor
	// clauses, honoring finder.Take/Skip. sqlconn hydrates every column
	// regardless of finder.Select; ToJSON applies the projection.
	FindMany(ctx context.Context, model *schema.Model, finder *Finder) ([]*object.Object, error)
	// Count returns the number of rows finder.Where matches, ignoring
	// Take/Skip/Select.
	Count(ctx context.Context, model *schema.Model, finder *Finder) (int64, error)
	// Aggregate computes the requested aggregate functions over the rows
	// finder.Where matches.
	Aggregate(ctx context.Context, model *schema.Model, finder *Finder, aggs []Aggregate) (*value.Map, error)
	// GroupBy partitions the rows finder.Where matches by groupFields and
	// computes aggs within each partition.
	GroupBy(ctx context.Context, model *schema.Model, finder *Finder, groupFields []string, aggs []Aggregate) ([]*GroupResult, error)
	// QueryRaw executes a backend-native query string, used by the
	// queryRaw pipeline item. It satisfies pipeline.RawQuerier.
	QueryRaw(ctx context.Context, query string, args []value.Value) (value.Value, error)

	// Transaction runs fn against a connection bound to a single backend
	// transaction, committing on a nil return and rolling back otherwise.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Connection) error) error
	// Purge deletes every row of model, used by the test-mode reset hook
	// between test cases.
	Purge(ctx context.Context, model *schema.Model) error
	// Migrate applies the schema graph's DDL to the backend (create
	// missing tables; sqlconn adds no columns to an existing table, and
	// this repository never drops or alters
	// existing ones automatically, per the Non-goals on destructive
	// auto-migration).
	Migrate(ctx context.Context, graph *schema.Graph) error
	// Close releases the connection's resources (pool, prepared
	// statements).
	Close() error
}
