package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

const rootAlias = "r"

// SaveObject inserts a new row (o in StateNew) or updates the dirty
// columns of an existing one (o in StateModified), matching the
// teacher's own "only push dirty fields" save semantics.
func (c *Connector) SaveObject(ctx context.Context, o *object.Object) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	model := o.Model()
	if isNewObject(o) {
		return c.insert(ctx, model, o)
	}
	return c.update(ctx, model, o)
}

func isNewObject(o *object.Object) bool {
	for _, f := range o.Model().PrimaryFields() {
		if _, ok := o.Get(f.Name); !ok {
			return true
		}
	}
	return o.State() == object.StateNew
}

func (c *Connector) insert(ctx context.Context, model *schema.Model, o *object.Object) error {
	var cols []string
	var placeholders []string
	var args []any
	for _, f := range model.Fields {
		v, ok := o.Get(f.Name)
		if !ok {
			continue
		}
		dv, err := driverValue(v)
		if err != nil {
			return err
		}
		cols = append(cols, c.quote(f.ColumnName()))
		placeholders = append(placeholders, "?")
		args = append(args, dv)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", c.quote(model.TableName), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	stmt = c.rewritePlaceholders(stmt)
	res, err := c.exec().ExecContext(ctx, stmt, args...)
	if err != nil {
		return wrapWriteErr(err)
	}
	if pk := model.PrimaryFields(); len(pk) == 1 && pk[0].Auto && pk[0].AutoIncrement {
		if _, ok := o.Get(pk[0].Name); !ok {
			id, err := res.LastInsertId()
			if err == nil {
				_ = o.Set(ctx, pk[0].Name, value.Int64(id))
			}
		}
	}
	return nil
}

func (c *Connector) update(ctx context.Context, model *schema.Model, o *object.Object) error {
	dirty := o.DirtyFields()
	if len(dirty) == 0 {
		return nil
	}
	var sets []string
	var args []any
	for _, name := range dirty {
		f, ok := model.Field(name)
		if !ok {
			continue
		}
		v, _ := o.Get(name)
		dv, err := driverValue(v)
		if err != nil {
			return err
		}
		sets = append(sets, c.quote(f.ColumnName())+" = ?")
		args = append(args, dv)
	}
	where, whereArgs, err := c.primaryKeyWhere(model, o)
	if err != nil {
		return err
	}
	args = append(args, whereArgs...)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", c.quote(model.TableName), strings.Join(sets, ", "), where)
	stmt = c.rewritePlaceholders(stmt)
	if _, err := c.exec().ExecContext(ctx, stmt, args...); err != nil {
		return wrapWriteErr(err)
	}
	return nil
}

func (c *Connector) primaryKeyWhere(model *schema.Model, o *object.Object) (string, []any, error) {
	pk := model.PrimaryFields()
	if len(pk) == 0 {
		return "", nil, keel.New(keel.KindInternalServerError, "sqlconn: model %s has no primary key", model.Name)
	}
	var parts []string
	var args []any
	for _, f := range pk {
		v, ok := o.Get(f.Name)
		if !ok {
			return "", nil, keel.New(keel.KindInternalServerError, "sqlconn: object missing primary key field %q", f.Name)
		}
		dv, err := driverValue(v)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, c.quote(f.ColumnName())+" = ?")
		args = append(args, dv)
	}
	return strings.Join(parts, " AND "), args, nil
}

func wrapWriteErr(err error) error {
	if isUniqueViolation(err) {
		return keel.Wrap(keel.KindUniqueValueDuplicated, err, "sqlconn: unique constraint violated")
	}
	return keel.Wrap(keel.KindUnknownDatabaseWriteError, err, "sqlconn: write failed")
}

// isUniqueViolation recognizes the two drivers' distinct unique-violation
// error text, since database/sql exposes no portable error type for it.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // modernc.org/sqlite
		strings.Contains(msg, "duplicate key value violates unique constraint") // lib/pq
}

// DeleteObject removes o's row by primary key.
func (c *Connector) DeleteObject(ctx context.Context, o *object.Object) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	model := o.Model()
	where, args, err := c.primaryKeyWhere(model, o)
	if err != nil {
		return err
	}
	stmt := c.rewritePlaceholders(fmt.Sprintf("DELETE FROM %s WHERE %s", c.quote(model.TableName), where))
	if _, err := c.exec().ExecContext(ctx, stmt, args...); err != nil {
		return keel.Wrap(keel.KindUnknownDatabaseDeleteError, err, "sqlconn: delete failed")
	}
	return nil
}

// FindUnique returns the single row matching where, or (nil, nil) if none.
func (c *Connector) FindUnique(ctx context.Context, model *schema.Model, where value.Value, proj *object.Projection) (*object.Object, error) {
	rows, err := c.FindMany(ctx, model, &connection.Finder{Where: where, Take: 1, Select: proj})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// FindMany returns every row matching finder. A negative finder.Take asks
// for the last |Take| rows in the requested order rather than the first:
// buildSelect runs the query in reversed order so LIMIT keeps the right
// end of the set, and FindMany flips the scanned rows back before
// returning so callers still see them in the order they asked for.
func (c *Connector) FindMany(ctx context.Context, model *schema.Model, finder *connection.Finder) ([]*object.Object, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	stmt, args, reversed, err := c.buildSelect(model, finder, selectAllColumns(model))
	if err != nil {
		return nil, err
	}
	rows, err := c.exec().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: find failed")
	}
	defer rows.Close()

	var out []*object.Object
	for rows.Next() {
		row, err := c.scanRow(rows, model)
		if err != nil {
			return nil, err
		}
		out = append(out, object.Hydrate(model, object.Internal(), c, row))
	}
	if err := rows.Err(); err != nil {
		return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: reading rows")
	}
	if reversed {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func selectAllColumns(model *schema.Model) []*schema.Field { return model.Fields }

// buildSelect assembles the SELECT for finder against model. It reports
// whether it ran the query in reversed order (a negative Take), so
// FindMany knows to flip the scanned rows back.
func (c *Connector) buildSelect(model *schema.Model, finder *connection.Finder, fields []*schema.Field) (string, []any, bool, error) {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = c.quote(f.ColumnName())
	}
	cl, err := c.whereClause(model, finder.Where, rootAlias)
	if err != nil {
		return "", nil, false, err
	}
	if finder.Cursor != nil && !value.IsNull(finder.Cursor) {
		cursor, ok := finder.Cursor.(*value.Map)
		if !ok {
			return "", nil, false, keel.New(keel.KindInternalServerError, "sqlconn: cursor must decode to a map")
		}
		cursorCl, err := c.cursorClause(model, cursor, finder.OrderBy, rootAlias)
		if err != nil {
			return "", nil, false, err
		}
		cl = clause{
			sql:  "(" + cl.sql + " AND " + cursorCl.sql + ")",
			args: append(append([]any{}, cl.args...), cursorCl.args...),
		}
	}

	reverse := finder.Take < 0
	order := finder.OrderBy
	if reverse {
		order = reverseOrderTerms(effectiveOrder(model, order))
	}

	qualified := make([]string, len(cols))
	for i, col := range cols {
		qualified[i] = rootAlias + "." + col
	}

	var stmt string
	if len(finder.Distinct) > 0 {
		distinctCols := make([]string, len(finder.Distinct))
		for i, name := range finder.Distinct {
			distinctCols[i] = c.columnRef(model, name)
		}
		partition := "PARTITION BY " + strings.Join(distinctCols, ", ")
		if terms := c.orderByTerms(model, order, rootAlias); len(terms) > 0 {
			partition += " ORDER BY " + strings.Join(terms, ", ")
		}
		inner := fmt.Sprintf("SELECT %s, ROW_NUMBER() OVER (%s) AS %s FROM %s AS %s WHERE %s",
			strings.Join(qualified, ", "), partition, c.quote("__rn"), c.quote(model.TableName), rootAlias, cl.sql)
		stmt = fmt.Sprintf("SELECT %s FROM (%s) AS %s WHERE %s.%s = 1",
			strings.Join(qualified, ", "), inner, rootAlias, rootAlias, c.quote("__rn"))
	} else {
		stmt = fmt.Sprintf("SELECT %s FROM %s AS %s WHERE %s", strings.Join(qualified, ", "), c.quote(model.TableName), rootAlias, cl.sql)
	}

	if terms := c.orderByTerms(model, order, rootAlias); len(terms) > 0 {
		stmt += " ORDER BY " + strings.Join(terms, ", ")
	}
	take := finder.Take
	if take < 0 {
		take = -take
	}
	if take > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", take)
	}
	if finder.Skip > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", finder.Skip)
	}
	return c.rewritePlaceholders(stmt), cl.args, reverse, nil
}

// orderByTerms renders order as quoted, aliased "col DIR" fragments,
// silently dropping any term naming a field the model doesn't have.
func (c *Connector) orderByTerms(model *schema.Model, order []connection.OrderTerm, alias string) []string {
	terms := make([]string, 0, len(order))
	for _, t := range order {
		f, ok := model.Field(t.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		terms = append(terms, alias+"."+c.quote(f.ColumnName())+" "+dir)
	}
	return terms
}

// effectiveOrder falls back to the model's first primary field ascending
// when no orderBy was given, so a negative Take always has a well-defined
// order to reverse.
func effectiveOrder(model *schema.Model, order []connection.OrderTerm) []connection.OrderTerm {
	if len(order) > 0 {
		return order
	}
	pk := model.PrimaryFields()
	if len(pk) == 0 {
		return order
	}
	return []connection.OrderTerm{{Field: pk[0].Name, Desc: false}}
}

func reverseOrderTerms(order []connection.OrderTerm) []connection.OrderTerm {
	out := make([]connection.OrderTerm, len(order))
	for i, t := range order {
		out[i] = connection.OrderTerm{Field: t.Field, Desc: !t.Desc}
	}
	return out
}

func (c *Connector) scanRow(rows *sql.Rows, model *schema.Model) (map[string]value.Value, error) {
	dests := make([]any, len(model.Fields))
	converters := make([]func() value.Value, len(model.Fields))
	for i, f := range model.Fields {
		d, conv := scanDest(f)
		dests[i] = d
		converters[i] = conv
	}
	if err := rows.Scan(dests...); err != nil {
		return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: scanning row")
	}
	out := make(map[string]value.Value, len(model.Fields))
	for i, f := range model.Fields {
		out[f.Name] = converters[i]()
	}
	return out, nil
}

// Count returns the number of rows finder.Where matches.
func (c *Connector) Count(ctx context.Context, model *schema.Model, finder *connection.Finder) (int64, error) {
	if err := c.acquire(ctx); err != nil {
		return 0, err
	}
	defer c.release()

	cl, err := c.whereClause(model, finder.Where, rootAlias)
	if err != nil {
		return 0, err
	}
	stmt := c.rewritePlaceholders(fmt.Sprintf("SELECT COUNT(*) FROM %s AS %s WHERE %s", c.quote(model.TableName), rootAlias, cl.sql))
	var n int64
	if err := c.exec().QueryRowContext(ctx, stmt, cl.args...).Scan(&n); err != nil {
		return 0, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: count failed")
	}
	return n, nil
}

// Aggregate computes aggs over the rows finder.Where matches.
func (c *Connector) Aggregate(ctx context.Context, model *schema.Model, finder *connection.Finder, aggs []connection.Aggregate) (*value.Map, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	cl, err := c.whereClause(model, finder.Where, rootAlias)
	if err != nil {
		return nil, err
	}
	selects := make([]string, len(aggs))
	for i, agg := range aggs {
		selects[i] = c.aggregateSQL(model, agg)
	}
	stmt := c.rewritePlaceholders(fmt.Sprintf("SELECT %s FROM %s AS %s WHERE %s", strings.Join(selects, ", "), c.quote(model.TableName), rootAlias, cl.sql))
	dests := make([]any, len(aggs))
	vals := make([]sql.NullFloat64, len(aggs))
	for i := range dests {
		dests[i] = &vals[i]
	}
	if err := c.exec().QueryRowContext(ctx, stmt, cl.args...).Scan(dests...); err != nil {
		return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: aggregate failed")
	}
	out := value.NewMap()
	for i, agg := range aggs {
		if agg.Op == connection.AggregateCount {
			out.Set(agg.As, value.Int64(int64(vals[i].Float64)))
		} else {
			out.Set(agg.As, value.Float64(vals[i].Float64))
		}
	}
	return out, nil
}

func (c *Connector) aggregateSQL(model *schema.Model, agg connection.Aggregate) string {
	switch agg.Op {
	case connection.AggregateCount:
		return "COUNT(*)"
	case connection.AggregateSum:
		return "SUM(" + c.columnRef(model, agg.Field) + ")"
	case connection.AggregateAvg:
		return "AVG(" + c.columnRef(model, agg.Field) + ")"
	case connection.AggregateMin:
		return "MIN(" + c.columnRef(model, agg.Field) + ")"
	default: // AggregateMax
		return "MAX(" + c.columnRef(model, agg.Field) + ")"
	}
}

func (c *Connector) columnRef(model *schema.Model, fieldName string) string {
	name := fieldName
	if f, ok := model.Field(fieldName); ok {
		name = f.ColumnName()
	}
	return rootAlias + "." + c.quote(name)
}

// GroupBy partitions finder.Where's matching rows by groupFields.
func (c *Connector) GroupBy(ctx context.Context, model *schema.Model, finder *connection.Finder, groupFields []string, aggs []connection.Aggregate) ([]*connection.GroupResult, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	cl, err := c.whereClause(model, finder.Where, rootAlias)
	if err != nil {
		return nil, err
	}
	groupCols := make([]string, len(groupFields))
	for i, name := range groupFields {
		groupCols[i] = c.columnRef(model, name)
	}
	selects := append(append([]string{}, groupCols...), c.selectList(model, aggs)...)
	stmt := fmt.Sprintf("SELECT %s FROM %s AS %s WHERE %s GROUP BY %s",
		strings.Join(selects, ", "), c.quote(model.TableName), rootAlias, cl.sql, strings.Join(groupCols, ", "))
	stmt = c.rewritePlaceholders(stmt)

	rows, err := c.exec().QueryContext(ctx, stmt, cl.args...)
	if err != nil {
		return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: groupBy failed")
	}
	defer rows.Close()

	var out []*connection.GroupResult
	for rows.Next() {
		groupDests := make([]any, len(groupFields))
		groupConv := make([]func() value.Value, len(groupFields))
		for i, name := range groupFields {
			f, _ := model.Field(name)
			d, conv := scanDest(f)
			groupDests[i] = d
			groupConv[i] = conv
		}
		aggDests := make([]sql.NullFloat64, len(aggs))
		dests := append(groupDests, toAnySlice(aggDests)...)
		if err := rows.Scan(dests...); err != nil {
			return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: scanning groupBy row")
		}
		keys := make(map[string]value.Value, len(groupFields))
		for i, name := range groupFields {
			keys[name] = groupConv[i]()
		}
		aggregates := make(map[string]value.Value, len(aggs))
		for i, agg := range aggs {
			if agg.Op == connection.AggregateCount {
				aggregates[agg.As] = value.Int64(int64(aggDests[i].Float64))
			} else {
				aggregates[agg.As] = value.Float64(aggDests[i].Float64)
			}
		}
		out = append(out, &connection.GroupResult{Keys: keys, Aggregates: aggregates})
	}
	return out, rows.Err()
}

func (c *Connector) selectList(model *schema.Model, aggs []connection.Aggregate) []string {
	out := make([]string, len(aggs))
	for i, agg := range aggs {
		out[i] = c.aggregateSQL(model, agg)
	}
	return out
}

func toAnySlice(dests []sql.NullFloat64) []any {
	out := make([]any, len(dests))
	for i := range dests {
		out[i] = &dests[i]
	}
	return out
}

// QueryRaw executes a backend-native query string with positional args,
// satisfying pipeline.RawQuerier for the queryRaw pipeline item.
func (c *Connector) QueryRaw(ctx context.Context, query string, args []value.Value) (value.Value, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	driverArgs := make([]any, len(args))
	for i, a := range args {
		dv, err := driverValue(a)
		if err != nil {
			return nil, err
		}
		driverArgs[i] = dv
	}
	rows, err := c.exec().QueryContext(ctx, query, driverArgs...)
	if err != nil {
		return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: raw query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: reading raw query columns")
	}
	var out value.Vec
	for rows.Next() {
		dests := make([]any, len(cols))
		raw := make([]sql.NullString, len(cols))
		for i := range raw {
			dests[i] = &raw[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, keel.Wrap(keel.KindUnknownDatabaseFindError, err, "sqlconn: scanning raw query row")
		}
		m := value.NewMap()
		for i, col := range cols {
			if raw[i].Valid {
				m.Set(col, value.String(raw[i].String))
			} else {
				m.Set(col, value.Null{})
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Purge deletes every row of model.
func (c *Connector) Purge(ctx context.Context, model *schema.Model) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	stmt := fmt.Sprintf("DELETE FROM %s", c.quote(model.TableName))
	if _, err := c.exec().ExecContext(ctx, stmt); err != nil {
		return keel.Wrap(keel.KindUnknownDatabaseDeleteError, err, "sqlconn: purge failed")
	}
	return nil
}

// Transaction runs fn against a Connector bound to a single *sql.Tx,
// committing on a nil return and rolling back otherwise.
func (c *Connector) Transaction(ctx context.Context, fn func(ctx context.Context, tx connection.Connection) error) error {
	if c.tx != nil {
		return fn(ctx, c) // already inside a transaction; nest flat
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return keel.Wrap(keel.KindInternalServerError, err, "sqlconn: beginning transaction")
	}
	txConn := &Connector{db: c.db, dialect: c.dialect, graph: c.graph, sem: c.sem, tx: tx}
	if err := fn(ctx, txConn); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return keel.Wrap(keel.KindInternalServerError, err, "sqlconn: committing transaction")
	}
	return nil
}

var _ connection.Connection = (*Connector)(nil)
