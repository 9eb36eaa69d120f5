// Package testmode implements the optional after-each purge-and-reseed
// hook the Action Dispatcher binds in test environments: every model's
// rows are purged through the connection, then an optional seed function
// repopulates known fixture rows, so each test runs against a known-clean
// graph without needing its own schema/connector bootstrap.
package testmode

import (
	"context"

	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/schema"
)

// Seeder repopulates fixture rows after a purge. It is supplied by the
// host application, never by the engine itself.
type Seeder func(ctx context.Context, conn connection.Connection) error

// Resetter purges every model in graph and, when seed is non-nil, runs
// it afterward. It holds no state of its own beyond the graph and seed
// function, since the connection to reset against is supplied per call
// rather than bound once — matching how a test harness typically reuses
// one Resetter across many per-test connections (e.g. one sqlite file
// per test, or one shared connection reset between tests).
type Resetter struct {
	graph *schema.Graph
	seed  Seeder
}

// New returns a Resetter bound to graph, purging every model it lists.
// seed may be nil, in which case Reset only purges.
func New(graph *schema.Graph, seed Seeder) *Resetter {
	return &Resetter{graph: graph, seed: seed}
}

// Reset purges every model in dependency order (so a row with a foreign
// key referencing another model's row never briefly dangles mid-purge)
// and then runs the seed function, if one was supplied.
func (r *Resetter) Reset(ctx context.Context, conn connection.Connection) error {
	for _, model := range purgeOrder(r.graph) {
		if err := conn.Purge(ctx, model); err != nil {
			return err
		}
	}
	if r.seed != nil {
		return r.seed(ctx, conn)
	}
	return nil
}

// purgeOrder lists every model with models holding a foreign key before
// the models they reference, so purging in this order never leaves a
// referencing row pointing at an already-purged table. This is the
// reverse of relationwalker's own "FK-direction-first" dependency rule:
// creation must create the referenced row first; deletion must delete
// the referencing row first.
func purgeOrder(graph *schema.Graph) []*schema.Model {
	models := graph.Models()
	withFK := make([]*schema.Model, 0, len(models))
	withoutFK := make([]*schema.Model, 0, len(models))
	for _, m := range models {
		if modelHasForeignKey(m) {
			withFK = append(withFK, m)
		} else {
			withoutFK = append(withoutFK, m)
		}
	}
	return append(withFK, withoutFK...)
}

func modelHasForeignKey(m *schema.Model) bool {
	for _, r := range m.Relations {
		if r.HasForeignKey() {
			return true
		}
	}
	return false
}
