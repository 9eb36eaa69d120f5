package sqlconn_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel/connection"
	"github.com/syssam/keel/object"
	"github.com/syssam/keel/pipeline"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/sqlconn"
	"github.com/syssam/keel/value"
)

func categoryGraph(t *testing.T) *schema.Graph {
	t.Helper()
	g := schema.NewGraph()
	g.AddModel(&schema.Model{
		Name: "Category",
		Fields: []*schema.Field{
			{Name: "id", Type: schema.FieldType{Kind: value.KindInt64}, Primary: true, Auto: true, AutoIncrement: true},
			{Name: "name", Type: schema.FieldType{Kind: value.KindString}},
		},
		Indexes: []*schema.Index{
			{Kind: schema.IndexPrimary, Fields: []string{"id"}},
			{Kind: schema.IndexUnique, Fields: []string{"name"}},
		},
	})
	require.NoError(t, g.Finalize())
	return g
}

func TestSaveObjectInsertsNewRowAndSetsAutoID(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	mock.ExpectExec("INSERT INTO `Category`").
		WithArgs("Cosmetics").
		WillReturnResult(sqlmock.NewResult(1, 1))

	o := object.New(model, object.ProgramCode(), pipeline.ActionCreate, conn)
	require.NoError(t, o.Set(context.Background(), "name", value.String("Cosmetics")))
	require.NoError(t, conn.SaveObject(context.Background(), o))

	id, ok := o.Get("id")
	require.True(t, ok)
	assert.Equal(t, value.Int64(1), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindManyHydratesRows(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(1, "Cosmetics").
		AddRow(2, "Skincares")
	mock.ExpectQuery("SELECT .* FROM `Category`").WillReturnRows(rows)

	found, err := conn.FindMany(context.Background(), model, connection.NewFinder())
	require.NoError(t, err)
	require.Len(t, found, 2)
	name, _ := found[0].Get("name")
	assert.Equal(t, value.String("Cosmetics"), name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountReturnsRowCount(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := conn.Count(context.Background(), model, connection.NewFinder())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteObjectDeletesByPrimaryKey(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	mock.ExpectExec("DELETE FROM `Category` WHERE `id` = \\?").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	o := object.Hydrate(model, object.Internal(), conn, map[string]value.Value{"id": value.Int64(1), "name": value.String("Cosmetics")})
	require.NoError(t, o.Delete(context.Background(), conn))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionCommitsOnSuccessAndRollsBackOnError(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `Category`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	err = conn.Transaction(context.Background(), func(ctx context.Context, tx connection.Connection) error {
		o := object.New(model, object.ProgramCode(), pipeline.ActionCreate, nil)
		if setErr := o.Set(ctx, "name", value.String("Cosmetics")); setErr != nil {
			return setErr
		}
		return tx.SaveObject(ctx, o)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `Category`").WillReturnError(assertErr{"boom"})
	mock.ExpectRollback()
	err = conn.Transaction(context.Background(), func(ctx context.Context, tx connection.Connection) error {
		o := object.New(model, object.ProgramCode(), pipeline.ActionCreate, nil)
		if setErr := o.Set(ctx, "name", value.String("Skincares")); setErr != nil {
			return setErr
		}
		return tx.SaveObject(ctx, o)
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestPurgeDeletesEveryRow(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	mock.ExpectExec("DELETE FROM `Category`").WillReturnResult(sqlmock.NewResult(0, 5))
	require.NoError(t, conn.Purge(context.Background(), model))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindManySeeksFromCursor(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	cursor := value.NewMap()
	cursor.Set("id", value.Int64(5))

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(6, "Skincares")
	mock.ExpectQuery("SELECT .* FROM `Category`.*`id` >= \\?").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	found, err := conn.FindMany(context.Background(), model, &connection.Finder{Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindManyWithNegativeTakeReversesOrderThenResult(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	// The requested order is name ASC; a negative Take reverses it to
	// DESC for the query so LIMIT keeps the highest-named rows, then
	// FindMany flips the scanned rows back to ascending order.
	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(2, "Skincares").
		AddRow(1, "Cosmetics")
	mock.ExpectQuery("SELECT .* FROM `Category`.*ORDER BY .*`name`.* DESC LIMIT 2").WillReturnRows(rows)

	finder := &connection.Finder{OrderBy: []connection.OrderTerm{{Field: "name"}}, Take: -2}
	found, err := conn.FindMany(context.Background(), model, finder)
	require.NoError(t, err)
	require.Len(t, found, 2)
	first, _ := found[0].Get("name")
	second, _ := found[1].Get("name")
	assert.Equal(t, value.String("Cosmetics"), first)
	assert.Equal(t, value.String("Skincares"), second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindManyWithDistinctUsesRowNumberWindow(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)
	model, _ := g.Model("Category")

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Cosmetics")
	mock.ExpectQuery("SELECT .* ROW_NUMBER\\(\\) OVER \\(PARTITION BY .*`name`.*").WillReturnRows(rows)

	finder := &connection.Finder{Distinct: []string{"name"}}
	found, err := conn.FindMany(context.Background(), model, finder)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateCreatesTable(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := categoryGraph(t)
	conn := sqlconn.New(db, sqlconn.SQLite, g, 1)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `Category`").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, conn.Migrate(context.Background(), g))
	require.NoError(t, mock.ExpectationsWereMet())
}
