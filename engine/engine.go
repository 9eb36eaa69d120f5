// Package engine is the Graph Coordinator: the set of top-level routines
// (FindUnique, FindFirst, FindMany, Count, Aggregate, GroupBy, Create,
// CreateMany, Update, UpdateMany, Upsert, Delete, DeleteMany) the Action
// Dispatcher calls after decoding a request; sign-in and identity are
// handled in package action. Every mutating routine opens exactly
// one transaction per entry call, runs the relation walker for any
// mutation that staged nested operations, and returns bound
// *object.Object values for the dispatcher to serialize — it has no HTTP
// or JSON concern of its own.
package engine

import (
	"github.com/syssam/keel/schema"
)

// Engine binds the frozen schema graph every routine resolves models and
// relations against.
type Engine struct {
	graph *schema.Graph
}

// New returns an Engine bound to graph. graph must already be finalized.
func New(graph *schema.Graph) *Engine {
	return &Engine{graph: graph}
}

// Graph returns the bound schema graph.
func (e *Engine) Graph() *schema.Graph { return e.graph }
