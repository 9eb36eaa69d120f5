package sqlconn

import (
	"fmt"
	"strings"

	"github.com/syssam/keel"
	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// clause is a SQL boolean fragment plus its positional bind arguments,
// built bottom-up the way the teacher's own sqlgraph predicate evaluator
// composes EXISTS-subquery fragments for relation filters.
type clause struct {
	sql  string
	args []any
}

func trueClause() clause { return clause{sql: "1=1"} }

// whereClause translates a decoder-produced predicate tree into a SQL
// fragment scoped to table alias, which must already be quoted.
func (c *Connector) whereClause(model *schema.Model, where value.Value, alias string) (clause, error) {
	if where == nil || value.IsNull(where) {
		return trueClause(), nil
	}
	switch w := where.(type) {
	case *value.Map:
		return c.whereFromMap(model, w, alias)
	case value.Vec:
		return c.whereFromOrList(model, w, alias)
	default:
		return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: unsupported where shape %T", where)
	}
}

func (c *Connector) whereFromOrList(model *schema.Model, list value.Vec, alias string) (clause, error) {
	if len(list) == 0 {
		return trueClause(), nil
	}
	parts := make([]string, 0, len(list))
	var args []any
	for _, elem := range list {
		cl, err := c.whereClause(model, elem, alias)
		if err != nil {
			return clause{}, err
		}
		parts = append(parts, cl.sql)
		args = append(args, cl.args...)
	}
	return clause{sql: "(" + strings.Join(parts, " OR ") + ")", args: args}, nil
}

func (c *Connector) whereFromMap(model *schema.Model, m *value.Map, alias string) (clause, error) {
	parts := make([]string, 0, m.Len())
	var args []any
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		if field, ok := model.Field(key); ok {
			cl, err := c.fieldClause(field, v, alias)
			if err != nil {
				return clause{}, err
			}
			parts = append(parts, cl.sql)
			args = append(args, cl.args...)
			continue
		}
		if rel, ok := model.Relation(key); ok {
			cl, err := c.relationClause(model, rel, v, alias)
			if err != nil {
				return clause{}, err
			}
			parts = append(parts, cl.sql)
			args = append(args, cl.args...)
			continue
		}
		return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: where references unknown field or relation %q on %s", key, model.Name)
	}
	if len(parts) == 0 {
		return trueClause(), nil
	}
	return clause{sql: "(" + strings.Join(parts, " AND ") + ")", args: args}, nil
}

// fieldClause builds a scalar comparison against column, applying every
// operator key v carries (an operator-shaped filter AND-composes its
// operators, e.g. {"gte": 1, "lt": 10}); a v that is not a *value.Map is
// the bare "equals" shorthand and is compared for equality.
func (c *Connector) fieldClause(field *schema.Field, v value.Value, alias string) (clause, error) {
	col := alias + "." + c.quote(field.ColumnName())
	opMap, ok := v.(*value.Map)
	if !ok {
		dv, err := driverValue(v)
		if err != nil {
			return clause{}, err
		}
		return clause{sql: col + " = " + c.placeholder(1), args: []any{dv}}, nil
	}
	var parts []string
	var args []any
	for _, op := range opMap.Keys() {
		ov, _ := opMap.Get(op)
		switch op {
		case "equals":
			dv, err := driverValue(ov)
			if err != nil {
				return clause{}, err
			}
			parts = append(parts, col+" = "+c.placeholder(len(args)+1))
			args = append(args, dv)
		case "not":
			dv, err := driverValue(ov)
			if err != nil {
				return clause{}, err
			}
			parts = append(parts, col+" <> "+c.placeholder(len(args)+1))
			args = append(args, dv)
		case "lt", "lte", "gt", "gte":
			dv, err := driverValue(ov)
			if err != nil {
				return clause{}, err
			}
			parts = append(parts, col+" "+comparisonOperator(op)+" "+c.placeholder(len(args)+1))
			args = append(args, dv)
		case "in", "notIn":
			list, ok := ov.(value.Vec)
			if !ok {
				return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: %s filter expects a list", op)
			}
			placeholders := make([]string, 0, len(list))
			for _, elem := range list {
				dv, err := driverValue(elem)
				if err != nil {
					return clause{}, err
				}
				args = append(args, dv)
				placeholders = append(placeholders, c.placeholder(len(args)))
			}
			verb := "IN"
			if op == "notIn" {
				verb = "NOT IN"
			}
			parts = append(parts, fmt.Sprintf("%s %s (%s)", col, verb, strings.Join(placeholders, ", ")))
		case "contains", "startsWith", "endsWith":
			s, ok := ov.(value.String)
			if !ok {
				return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: %s filter expects a string", op)
			}
			pattern := likePattern(op, string(s))
			parts = append(parts, col+" LIKE "+c.placeholder(len(args)+1))
			args = append(args, pattern)
		default:
			return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: unsupported filter operator %q", op)
		}
	}
	return clause{sql: "(" + strings.Join(parts, " AND ") + ")", args: args}, nil
}

func comparisonOperator(op string) string {
	switch op {
	case "lt":
		return "<"
	case "lte":
		return "<="
	case "gt":
		return ">"
	default: // gte
		return ">="
	}
}

func likePattern(op, s string) string {
	switch op {
	case "startsWith":
		return s + "%"
	case "endsWith":
		return "%" + s
	default: // contains
		return "%" + s + "%"
	}
}

// relationClause builds an EXISTS/NOT EXISTS subquery against rel,
// grounded on the teacher's own sqlgraph EXISTS-subquery translation of
// has-edge predicates: `some`/`is` existence, `none`/`isNot` negate it,
// `every` negates existence of a counter-example.
func (c *Connector) relationClause(model *schema.Model, rel *schema.Relation, v value.Value, alias string) (clause, error) {
	targetModel, ok := c.graph.Model(rel.Target)
	if !ok {
		return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: relation target %q not found", rel.Target)
	}
	localCols, targetCols, err := foreignKeyColumns(model, rel, targetModel)
	if err != nil {
		return clause{}, err
	}
	verbMap, ok := v.(*value.Map)
	if !ok {
		return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: relation filter must decode to a map")
	}
	const targetAlias = "t"
	linkParts := make([]string, len(localCols))
	for i := range localCols {
		linkParts[i] = fmt.Sprintf("%s.%s = %s.%s", alias, c.quote(localCols[i]), targetAlias, c.quote(targetCols[i]))
	}
	link := strings.Join(linkParts, " AND ")

	var parts []string
	var args []any
	for _, verb := range verbMap.Keys() {
		nested, _ := verbMap.Get(verb)
		nestedClause, err := c.whereClause(targetModel, nested, targetAlias)
		if err != nil {
			return clause{}, err
		}
		subquery := fmt.Sprintf("SELECT 1 FROM %s AS %s WHERE %s AND %s",
			c.quote(targetModel.TableName), targetAlias, link, nestedClause.sql)
		switch verb {
		case "some", "is":
			parts = append(parts, "EXISTS ("+subquery+")")
		case "none", "isNot":
			parts = append(parts, "NOT EXISTS ("+subquery+")")
		case "every":
			everySubquery := fmt.Sprintf("SELECT 1 FROM %s AS %s WHERE %s AND NOT (%s)",
				c.quote(targetModel.TableName), targetAlias, link, nestedClause.sql)
			parts = append(parts, "NOT EXISTS ("+everySubquery+")")
		default:
			return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: unsupported relation filter verb %q", verb)
		}
		args = append(args, nestedClause.args...)
	}
	return clause{sql: "(" + strings.Join(parts, " AND ") + ")", args: args}, nil
}

// foreignKeyColumns returns the paired (local, target) column names for
// rel, resolving through rel.Inverse when this model is the non-owning
// side (rel.Fields empty): the owning side's Fields/References pair is
// read off the inverse relation declared on target instead.
func foreignKeyColumns(model *schema.Model, rel *schema.Relation, target *schema.Model) (local, remote []string, err error) {
	if len(rel.Fields) > 0 {
		local = make([]string, len(rel.Fields))
		remote = make([]string, len(rel.References))
		for i, fname := range rel.Fields {
			f, ok := model.Field(fname)
			if !ok {
				return nil, nil, keel.New(keel.KindInternalServerError, "sqlconn: relation %s: local field %q missing", rel.Name, fname)
			}
			local[i] = f.ColumnName()
		}
		for i, fname := range rel.References {
			f, ok := target.Field(fname)
			if !ok {
				return nil, nil, keel.New(keel.KindInternalServerError, "sqlconn: relation %s: target field %q missing", rel.Name, fname)
			}
			remote[i] = f.ColumnName()
		}
		return local, remote, nil
	}
	inverse, ok := target.Relation(rel.Inverse)
	if !ok {
		return nil, nil, keel.New(keel.KindInternalServerError, "sqlconn: relation %s has no resolvable foreign key", rel.Name)
	}
	local = make([]string, len(inverse.References))
	remote = make([]string, len(inverse.Fields))
	for i, fname := range inverse.References {
		f, ok := model.Field(fname)
		if !ok {
			return nil, nil, keel.New(keel.KindInternalServerError, "sqlconn: relation %s: local field %q missing", rel.Name, fname)
		}
		local[i] = f.ColumnName()
	}
	for i, fname := range inverse.Fields {
		f, ok := target.Field(fname)
		if !ok {
			return nil, nil, keel.New(keel.KindInternalServerError, "sqlconn: relation %s: target field %q missing", rel.Name, fname)
		}
		remote[i] = f.ColumnName()
	}
	return local, remote, nil
}

// cursorClause builds a seek-pagination predicate for a `cursor`: an
// inclusive comparison (col >= ? ascending, col <= ? descending) on
// whichever field the paging order is keyed on. Scoped to a single
// column; a composite seek key would need a row-value tuple comparison,
// which nothing in this codebase's finders currently asks for.
func (c *Connector) cursorClause(model *schema.Model, cursor *value.Map, orderBy []connection.OrderTerm, alias string) (clause, error) {
	field, desc := cursorSeekField(model, orderBy)
	if field == nil {
		return clause{}, keel.New(keel.KindInternalServerError, "sqlconn: model %s has no field to seek a cursor on", model.Name)
	}
	v, ok := cursor.Get(field.Name)
	if !ok {
		return clause{}, keel.New(keel.KindMissingRequiredInput, "cursor must include field %q", field.Name).AtPath("cursor")
	}
	dv, err := driverValue(v)
	if err != nil {
		return clause{}, err
	}
	op := ">="
	if desc {
		op = "<="
	}
	col := alias + "." + c.quote(field.ColumnName())
	return clause{sql: col + " " + op + " " + c.placeholder(1), args: []any{dv}}, nil
}

// cursorSeekField picks the column seek-pagination keys off: the first
// orderBy term if one was given, else the model's first primary field
// ascending.
func cursorSeekField(model *schema.Model, orderBy []connection.OrderTerm) (*schema.Field, bool) {
	if len(orderBy) > 0 {
		if f, ok := model.Field(orderBy[0].Field); ok {
			return f, orderBy[0].Desc
		}
	}
	pk := model.PrimaryFields()
	if len(pk) == 0 {
		return nil, false
	}
	return pk[0], false
}

// placeholder always emits a bare "?" while a clause tree is being built.
// Composing clause fragments bottom-up makes it impossible to know a
// given bind argument's final position in the whole statement's
// argument list until every fragment is assembled, so Postgres's
// positional $N markers are produced in one pass over the finished SQL
// text by rewritePlaceholders instead, right before the Connector
// executes it.
func (c *Connector) placeholder(n int) string { return "?" }

// rewritePlaceholders rewrites every "?" in sql into sequential $1, $2, …
// markers when the Connector's dialect is Postgres; sqlite keeps "?" as
// database/sql's driver expects it unchanged.
func (c *Connector) rewritePlaceholders(sqlText string) string {
	if c.dialect != Postgres {
		return sqlText
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(sqlText); i++ {
		if sqlText[i] == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteByte(sqlText[i])
	}
	return b.String()
}
