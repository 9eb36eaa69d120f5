package sqlconn

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/keel"
	"github.com/syssam/keel/schema"
)

// Migrate creates any table graph's models need that the backend doesn't
// already have, via CREATE TABLE IF NOT EXISTS. Per the Non-goals on
// destructive auto-migration, it never drops or alters an existing
// table/column — a schema change beyond adding a brand-new model is a
// hand-written migration the host runs itself.
func (c *Connector) Migrate(ctx context.Context, graph *schema.Graph) error {
	for _, model := range graph.Models() {
		ddl := c.createTableDDL(model)
		if _, err := c.exec().ExecContext(ctx, ddl); err != nil {
			return keel.Wrap(keel.KindInternalServerError, err, "sqlconn: migrating table %s", model.TableName)
		}
	}
	return nil
}

func (c *Connector) createTableDDL(model *schema.Model) string {
	var cols []string
	var primary []string
	for _, f := range model.Fields {
		cols = append(cols, c.columnDDL(model, f))
		if f.Primary {
			primary = append(primary, c.quote(f.ColumnName()))
		}
	}
	if len(primary) > 0 && !singleAutoIncrementPrimary(model) {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primary, ", ")))
	}
	for _, idx := range model.Indexes {
		if idx.Kind != schema.IndexUnique {
			continue
		}
		colNames := make([]string, 0, len(idx.Fields))
		for _, fname := range idx.Fields {
			if f, ok := model.Field(fname); ok {
				colNames = append(colNames, c.quote(f.ColumnName()))
			}
		}
		cols = append(cols, fmt.Sprintf("UNIQUE (%s)", strings.Join(colNames, ", ")))
	}
	for _, rel := range model.Relations {
		if !rel.HasForeignKey() {
			continue
		}
		targetModel, ok := c.graph.Model(rel.Target)
		if !ok {
			continue
		}
		localCols := make([]string, len(rel.Fields))
		refCols := make([]string, len(rel.References))
		for i, fname := range rel.Fields {
			if f, ok := model.Field(fname); ok {
				localCols[i] = c.quote(f.ColumnName())
			}
		}
		for i, fname := range rel.References {
			if f, ok := targetModel.Field(fname); ok {
				refCols[i] = c.quote(f.ColumnName())
			}
		}
		cols = append(cols, fmt.Sprintf(
			"FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			strings.Join(localCols, ", "), c.quote(targetModel.TableName), strings.Join(refCols, ", "),
			deleteRuleSQL(rel.Delete),
		))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", c.quote(model.TableName), strings.Join(cols, ", "))
}

// singleAutoIncrementPrimary reports whether model's primary key is one
// Auto+AutoIncrement field, in which case the column definition itself
// carries "PRIMARY KEY" (required for SQLite's rowid aliasing) instead of
// a separate table-level PRIMARY KEY constraint.
func singleAutoIncrementPrimary(model *schema.Model) bool {
	pk := model.PrimaryFields()
	return len(pk) == 1 && pk[0].Auto && pk[0].AutoIncrement
}

func (c *Connector) columnDDL(model *schema.Model, f *schema.Field) string {
	def := c.quote(f.ColumnName()) + " " + columnType(f, c.dialect)
	if singleAutoIncrementPrimary(model) && f.Primary {
		if c.dialect == Postgres {
			return c.quote(f.ColumnName()) + " BIGSERIAL PRIMARY KEY"
		}
		return c.quote(f.ColumnName()) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	if !f.Optional {
		def += " NOT NULL"
	}
	return def
}

func deleteRuleSQL(rule schema.DeleteRule) string {
	switch rule {
	case schema.DeleteRuleCascade:
		return "CASCADE"
	case schema.DeleteRuleSetNull:
		return "SET NULL"
	case schema.DeleteRuleRestrict:
		return "RESTRICT"
	default:
		return "NO ACTION"
	}
}

// quote wraps an identifier in the dialect's quoting character.
func (c *Connector) quote(ident string) string {
	if c.dialect == Postgres {
		return `"` + ident + `"`
	}
	return "`" + ident + "`"
}
