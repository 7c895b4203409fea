package singlemodel

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func openTestSqlite(t *testing.T, path string) *SQLBackend {
	t.Helper()

	db, err := ConnectSqlite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSQLBackend(db, SQLite)
}

func countRows(t *testing.T, db *sqlx.DB, table, field string) int {
	t.Helper()

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table+" WHERE field = ?", field))
	return n
}

func TestSQLBackendMissingTableLoadsEmpty(t *testing.T) {
	backend := openTestSqlite(t, filepath.Join(t.TempDir(), "test.db"))

	fields, err := backend.Load(context.Background(), NewTableDef("settings"))
	require.NoError(t, err)
	require.Empty(t, fields)
}

func TestSQLBackendUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := openTestSqlite(t, filepath.Join(t.TempDir(), "test.db"))
	td := NewTableDef("settings")
	require.NoError(t, backend.CreateTable(ctx, td))
	// Creating an existing table is fine.
	require.NoError(t, backend.CreateTable(ctx, td))

	require.NoError(t, backend.Upsert(ctx, td, "title", null.StringFrom("Hello")))
	require.NoError(t, backend.Upsert(ctx, td, "title", null.StringFrom("Hello")))
	require.Equal(t, 1, countRows(t, backend.DB(), "settings", "title"))

	require.NoError(t, backend.Upsert(ctx, td, "title", null.StringFrom("World")))
	require.NoError(t, backend.Upsert(ctx, td, "note", null.String{}))
	require.Equal(t, 1, countRows(t, backend.DB(), "settings", "title"))

	fields, err := backend.Load(ctx, td)
	require.NoError(t, err)
	require.Equal(t, map[string]null.String{
		"title": null.StringFrom("World"),
		"note":  {},
	}, fields)
}

func TestSQLBackendCustomColumns(t *testing.T) {
	ctx := context.Background()
	backend := openTestSqlite(t, filepath.Join(t.TempDir(), "test.db"))
	td := TableDef{Name: "prefs", KeyField: "name", ValueField: "data"}
	require.NoError(t, backend.CreateTable(ctx, td))

	require.NoError(t, backend.Upsert(ctx, td, "lang", null.StringFrom("de")))

	fields, err := backend.Load(ctx, td)
	require.NoError(t, err)
	require.Equal(t, map[string]null.String{"lang": null.StringFrom("de")}, fields)
}

func TestSQLBackendRejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	backend := openTestSqlite(t, filepath.Join(t.TempDir(), "test.db"))

	bad := TableDef{Name: "settings", KeyField: "field) --", ValueField: "value"}
	_, err := backend.Load(ctx, bad)
	require.True(t, errors.Is(err, ErrInvalidIdentifier))
	require.True(t, errors.Is(backend.Upsert(ctx, bad, "x", null.StringFrom("y")), ErrInvalidIdentifier))
	require.True(t, errors.Is(backend.CreateTable(ctx, bad), ErrInvalidIdentifier))

	td := NewTableDef("settings")
	require.NoError(t, backend.CreateTable(ctx, td))
	long := strings.Repeat("x", MaxFieldLength+1)
	require.True(t, errors.Is(backend.Upsert(ctx, td, long, null.StringFrom("y")), ErrInvalidIdentifier))

	// The limit counts characters, not bytes.
	wide := strings.Repeat("設", MaxFieldLength)
	require.NoError(t, backend.Upsert(ctx, td, wide, null.StringFrom("y")))
	require.True(t, errors.Is(backend.Upsert(ctx, td, wide+"定", null.StringFrom("y")), ErrInvalidIdentifier))

	// Field names are bound, so quotes are stored verbatim.
	require.NoError(t, backend.Upsert(ctx, td, "it's; DROP TABLE settings", null.StringFrom("y")))
	fields, err := backend.Load(ctx, td)
	require.NoError(t, err)
	require.Contains(t, fields, "it's; DROP TABLE settings")
}

func TestSQLBackendConstraintViolation(t *testing.T) {
	ctx := context.Background()
	backend := openTestSqlite(t, filepath.Join(t.TempDir(), "test.db"))
	_, err := backend.DB().Exec("CREATE TABLE limited (field VARCHAR(128) NOT NULL PRIMARY KEY, value TEXT CHECK (length(value) <= 4))")
	require.NoError(t, err)

	reg := NewRegistry(backend)
	rec, err := reg.Instance(ctx, "limited")
	require.NoError(t, err)

	rec.SetString("a", "ok").SetString("b", "too long")
	err = rec.Commit(ctx)
	require.True(t, errors.Is(err, ErrConstraint))
	require.Equal(t, []string{"b"}, rec.Dirty())

	rec.SetString("b", "fits")
	require.NoError(t, rec.Commit(ctx))
	require.Empty(t, rec.Dirty())
}

func TestSQLBackendClosedDatabaseIsUnavailable(t *testing.T) {
	backend := openTestSqlite(t, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, backend.DB().Close())

	_, err := backend.Load(context.Background(), NewTableDef("settings"))
	require.True(t, errors.Is(err, ErrStoreUnavailable))

	err = backend.Upsert(context.Background(), NewTableDef("settings"), "a", null.StringFrom("b"))
	require.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestSQLBackendCommitInTransaction(t *testing.T) {
	ctx := context.Background()
	backend := openTestSqlite(t, filepath.Join(t.TempDir(), "test.db"))
	td := NewTableDef("settings")
	require.NoError(t, backend.CreateTable(ctx, td))

	rec, err := NewRegistry(backend).Instance(ctx, "settings")
	require.NoError(t, err)

	tx, err := backend.Begin(ctx)
	require.NoError(t, err)
	rec.SetString("title", "Draft")
	require.NoError(t, rec.Commit(ctx, WithTransaction(tx)))
	require.Empty(t, rec.Dirty())
	require.NoError(t, tx.Rollback(ctx))

	fields, err := backend.Load(ctx, td)
	require.NoError(t, err)
	require.Empty(t, fields)

	// A transaction opened by the host works the same way.
	hostTx, err := backend.DB().Beginx()
	require.NoError(t, err)
	rec.SetString("title", "Final")
	require.NoError(t, rec.Commit(ctx, WithTransaction(NewSQLTransaction(hostTx))))
	require.NoError(t, hostTx.Commit())

	fields, err = backend.Load(ctx, td)
	require.NoError(t, err)
	require.Equal(t, map[string]null.String{"title": null.StringFrom("Final")}, fields)
}

func TestEndToEndRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	reg := NewRegistry(openTestSqlite(t, path), WithAutoCreate())
	rec, err := reg.Instance(ctx, "settings")
	require.NoError(t, err)
	require.Zero(t, rec.Len())

	rec.SetString("title", "Hello")
	require.NoError(t, rec.Commit(ctx))

	// A new registry over a new connection stands in for a process restart.
	restarted := NewRegistry(openTestSqlite(t, path))
	rec, err = restarted.Instance(ctx, "settings")
	require.NoError(t, err)
	require.Equal(t, null.StringFrom("Hello"), rec.Get("title"))
	require.Empty(t, rec.Dirty())
}

func TestDialectFor(t *testing.T) {
	cases := map[string]string{
		"pgx":      "postgres",
		"postgres": "postgres",
		"sqlite3":  "sqlite3",
		"mysql":    "mysql",
		"godror":   "oracle",
	}
	for driver, name := range cases {
		d, err := DialectFor(driver)
		require.NoError(t, err)
		require.Equal(t, name, d.Name)
	}

	_, err := DialectFor("mssql")
	require.Error(t, err)
}

func TestDialectStatements(t *testing.T) {
	td := TableDef{Schema: "app", Name: "settings", KeyField: "field", ValueField: "value"}

	require.Equal(t,
		"INSERT INTO app.settings (field, value) VALUES (?, ?) ON CONFLICT (field) DO UPDATE SET value = EXCLUDED.value",
		Postgres.upsertSQL(td))
	require.Equal(t,
		"INSERT INTO app.settings (field, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		MySQL.upsertSQL(td))
	require.Equal(t,
		"MERGE INTO app.settings d USING (SELECT ? AS k, ? AS v FROM dual) s ON (d.field = s.k) "+
			"WHEN MATCHED THEN UPDATE SET d.value = s.v "+
			"WHEN NOT MATCHED THEN INSERT (field, value) VALUES (s.k, s.v)",
		Oracle.upsertSQL(td))

	// Rebinding follows the driver's placeholder style.
	require.Equal(t,
		"INSERT INTO app.settings (field, value) VALUES ($1, $2) ON CONFLICT (field) DO UPDATE SET value = EXCLUDED.value",
		sqlx.Rebind(sqlx.BindType("pgx"), Postgres.upsertSQL(td)))

	require.Equal(t,
		"CREATE TABLE IF NOT EXISTS app.settings (field VARCHAR(128) NOT NULL DEFAULT '' PRIMARY KEY, value TEXT NULL)",
		Postgres.createTableSQL(td))
}

func TestDialectErrorClassification(t *testing.T) {
	require.True(t, MySQL.missingTable(errors.New("Error 1146 (42S02): Table 'db.settings' doesn't exist")))
	require.True(t, MySQL.constraint(errors.New("Error 1406 (22001): Data too long for column 'value'")))
	require.False(t, MySQL.constraint(errors.New("driver: bad connection")))

	require.True(t, Oracle.missingTable(errors.New("ORA-00942: table or view does not exist")))
	require.True(t, Oracle.alreadyExists(errors.New("ORA-00955: name is already used by an existing object")))
	require.True(t, errors.Is(Oracle.wrapError(errors.New("ORA-12899: value too large")), ErrConstraint))
	require.True(t, errors.Is(Oracle.wrapError(errors.New("ORA-12541: TNS:no listener")), ErrStoreUnavailable))

	require.True(t, SQLite.missingTable(errors.New("no such table: settings")))
}
