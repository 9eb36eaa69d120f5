// Package sqlconn implements connection.Connection over database/sql,
// the way the teacher's own dialect/sql package wraps database/sql
// behind a dialect.Driver: one Connector serves either SQLite (via
// modernc.org/sqlite, pure Go, no cgo) or Postgres (via lib/pq),
// switching SQL dialect and placeholder style on a string tag rather
// than a type hierarchy.
package sqlconn

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
	"golang.org/x/sync/semaphore"

	"github.com/syssam/keel"
	"github.com/syssam/keel/schema"
)

// Dialect names the two backends this connector drives.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Connector implements connection.Connection over a *sql.DB, bounding
// concurrent connection acquisition with a semaphore so a burst of
// engine calls never exhausts the pool size the host configured —
// the connection pool stays entirely owned by this package, per the
// concurrency model's "connection pools are connector-owned" rule.
type Connector struct {
	db      *sql.DB
	dialect Dialect
	graph   *schema.Graph
	sem     *semaphore.Weighted

	// tx is non-nil only on the Connector handle Transaction hands its
	// callback: every CRUD method runs against tx instead of db so that
	// all of it commits or rolls back together.
	tx *sql.Tx
}

// Open opens a database/sql.DB for dialect against dsn and wraps it as a
// Connector bound to graph, admitting at most maxConns concurrent
// operations. graph is used by Migrate and by every CRUD method to
// resolve table/column names and field types.
func Open(dialect Dialect, dsn string, graph *schema.Graph, maxConns int64) (*Connector, error) {
	driverName := "sqlite"
	if dialect == Postgres {
		driverName = "postgres"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, keel.Wrap(keel.KindInternalServerError, err, "sqlconn: opening %s connection", dialect)
	}
	return New(db, dialect, graph, maxConns), nil
}

// New wraps an already-opened *sql.DB as a Connector, used by hosts that
// configure database/sql themselves (connection lifetime, TLS, etc.) and
// by tests driving go-sqlmock's *sql.DB.
func New(db *sql.DB, dialect Dialect, graph *schema.Graph, maxConns int64) *Connector {
	if maxConns <= 0 {
		maxConns = 1
	}
	return &Connector{db: db, dialect: dialect, graph: graph, sem: semaphore.NewWeighted(maxConns)}
}

// acquire blocks until a connection slot is free or ctx is done.
func (c *Connector) acquire(ctx context.Context) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return keel.Wrap(keel.KindInternalServerError, err, "sqlconn: acquiring connection slot")
	}
	return nil
}

func (c *Connector) release() { c.sem.Release(1) }

// querier is satisfied by both *sql.DB and *sql.Tx, letting every CRUD
// method run unchanged whether or not it is inside a Transaction call.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// exec returns the querier this Connector currently runs against: the
// bare *sql.DB outside a transaction, or a bound *sql.Tx inside one.
func (c *Connector) exec() querier {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// Close releases the underlying *sql.DB's resources.
func (c *Connector) Close() error {
	if err := c.db.Close(); err != nil {
		return keel.Wrap(keel.KindInternalServerError, err, "sqlconn: closing connection")
	}
	return nil
}
