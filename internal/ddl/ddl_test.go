package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streetsDef() TableDef {
	return TableDef{
		Name: "streets",
		Columns: []ColumnDef{
			{Name: "id", Type: "bigserial", PrimaryKey: true},
			{Name: "usrn", Type: "bigint"},
			{Name: "name", Type: "varchar(40)", Nullable: true},
		},
		Indexes: []IndexDef{
			{Name: "ix_streets_usrn", Columns: []string{"usrn"}},
		},
	}
}

func TestDialectString(t *testing.T) {
	assert.Equal(t, "postgres", Postgres.String())
	assert.Equal(t, "sqlserver", SQLServer.String())
	assert.Equal(t, "mysql", MySQL.String())
	assert.Equal(t, "sqlite", SQLite.String())
	assert.Equal(t, "dialect(9)", Dialect(9).String())
}

func TestMapType(t *testing.T) {
	cases := []struct {
		d       Dialect
		logical string
		want    string
	}{
		{Postgres, "bigserial", "BIGSERIAL"},
		{SQLServer, "bigserial", "BIGINT IDENTITY(1,1)"},
		{MySQL, "bigserial", "BIGINT AUTO_INCREMENT"},
		{SQLite, "bigserial", "INTEGER"},
		{Postgres, "bigint", "BIGINT"},
		{SQLite, "bigint", "INTEGER"},
		{Postgres, "integer", "INTEGER"},
		{SQLServer, "integer", "INT"},
		{Postgres, "char(3)", "CHAR(3)"},
		{SQLServer, "char(3)", "NCHAR(3)"},
		{SQLite, "char(3)", "TEXT"},
		{MySQL, "varchar(40)", "VARCHAR(40)"},
		{SQLServer, "varchar(40)", "NVARCHAR(40)"},
		{Postgres, "decimal(9,7)", "NUMERIC(9,7)"},
		{MySQL, "decimal(9,7)", "DECIMAL(9,7)"},
		{SQLite, "decimal(9,7)", "REAL"},
		{Postgres, "date", "DATE"},
		{SQLite, "date", "TEXT"},
		{Postgres, "timestamp", "TIMESTAMPTZ"},
		{SQLServer, "timestamp", "DATETIME2"},
		{MySQL, "timestamp", "DATETIME(6)"},
		{SQLite, "timestamp", "TEXT"},
		{Postgres, "text", "TEXT"},
		{SQLServer, "text", "NVARCHAR(MAX)"},
		{Postgres, "blob", "TEXT"},
		{SQLServer, "blob", "NVARCHAR(MAX)"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapType(tc.d, tc.logical), "%s %s", tc.d, tc.logical)
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"files"`, QuoteIdent(Postgres, "files"))
	assert.Equal(t, `"fi""les"`, QuoteIdent(Postgres, `fi"les`))
	assert.Equal(t, "[files]", QuoteIdent(SQLServer, "files"))
	assert.Equal(t, "[fi]]les]", QuoteIdent(SQLServer, "fi]les"))
	assert.Equal(t, "`files`", QuoteIdent(MySQL, "files"))
	assert.Equal(t, "`fi``les`", QuoteIdent(MySQL, "fi`les"))
}

func TestCreateTableSQLPostgres(t *testing.T) {
	stmts, err := CreateTableSQL(Postgres, streetsDef(), CreateOptions{})
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	want := strings.Join([]string{
		`CREATE TABLE IF NOT EXISTS "streets" (`,
		`  "id" BIGSERIAL NOT NULL,`,
		`  "usrn" BIGINT NOT NULL,`,
		`  "name" VARCHAR(40),`,
		`  PRIMARY KEY ("id")`,
		`);`,
	}, "\n")
	assert.Equal(t, want, stmts[0])
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "ix_streets_usrn" ON "streets" ("usrn");`, stmts[1])
}

func TestCreateTableSQLPostgresUnlogged(t *testing.T) {
	stmts, err := CreateTableSQL(Postgres, streetsDef(), CreateOptions{Unlogged: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stmts[0], `CREATE UNLOGGED TABLE IF NOT EXISTS "streets"`))

	// Unlogged is a Postgres notion only.
	stmts, err = CreateTableSQL(SQLite, streetsDef(), CreateOptions{Unlogged: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stmts[0], `CREATE TABLE IF NOT EXISTS "streets"`))
}

func TestCreateTableSQLMySQL(t *testing.T) {
	stmts, err := CreateTableSQL(MySQL, streetsDef(), CreateOptions{})
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	want := strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS `streets` (",
		"  `id` BIGINT AUTO_INCREMENT NOT NULL,",
		"  `usrn` BIGINT NOT NULL,",
		"  `name` VARCHAR(40),",
		"  PRIMARY KEY (`id`),",
		"  INDEX `ix_streets_usrn` (`usrn`)",
		");",
	}, "\n")
	assert.Equal(t, want, stmts[0])
}

func TestCreateTableSQLSQLServer(t *testing.T) {
	stmts, err := CreateTableSQL(SQLServer, streetsDef(), CreateOptions{})
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	want := strings.Join([]string{
		"IF OBJECT_ID(N'[streets]', N'U') IS NULL",
		"BEGIN",
		"  CREATE TABLE [streets] (",
		"    [id] BIGINT IDENTITY(1,1) NOT NULL,",
		"    [usrn] BIGINT NOT NULL,",
		"    [name] NVARCHAR(40),",
		"    PRIMARY KEY ([id])",
		"  );",
		"  CREATE INDEX [ix_streets_usrn] ON [streets] ([usrn]);",
		"END;",
	}, "\n")
	assert.Equal(t, want, stmts[0])
}

func TestCreateTableSQLSQLite(t *testing.T) {
	stmts, err := CreateTableSQL(SQLite, streetsDef(), CreateOptions{})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `"id" INTEGER NOT NULL`)
	assert.Contains(t, stmts[0], `"name" TEXT,`)
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "ix_streets_usrn" ON "streets" ("usrn");`, stmts[1])
}

func TestCreateTableSQLDefault(t *testing.T) {
	def := TableDef{
		Name: "files",
		Columns: []ColumnDef{
			{Name: "id", Type: "bigserial", PrimaryKey: true},
			{Name: "errors", Type: "integer", Nullable: true, Default: "0"},
		},
	}
	stmts, err := CreateTableSQL(Postgres, def, CreateOptions{})
	require.NoError(t, err)
	assert.Contains(t, stmts[0], `"errors" INTEGER DEFAULT 0`)
}

func TestCreateTableSQLErrors(t *testing.T) {
	cases := []struct {
		name string
		def  TableDef
		want string
	}{
		{
			name: "empty table name",
			def:  TableDef{Columns: []ColumnDef{{Name: "id", Type: "bigint"}}},
			want: "table name must not be empty",
		},
		{
			name: "no columns",
			def:  TableDef{Name: "streets"},
			want: "has no columns",
		},
		{
			name: "empty column name",
			def:  TableDef{Name: "streets", Columns: []ColumnDef{{Type: "bigint"}}},
			want: "column with empty name",
		},
		{
			name: "missing type",
			def:  TableDef{Name: "streets", Columns: []ColumnDef{{Name: "id"}}},
			want: "missing type",
		},
		{
			name: "incomplete index",
			def: TableDef{
				Name:    "streets",
				Columns: []ColumnDef{{Name: "id", Type: "bigint"}},
				Indexes: []IndexDef{{Name: "ix_streets_usrn"}},
			},
			want: "incomplete index",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateTableSQL(Postgres, tc.def, CreateOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDropTableSQL(t *testing.T) {
	assert.Equal(t, `DROP TABLE IF EXISTS "streets";`, DropTableSQL(Postgres, "streets"))
	assert.Equal(t, "DROP TABLE IF EXISTS [streets];", DropTableSQL(SQLServer, "streets"))
	assert.Equal(t, "DROP TABLE IF EXISTS `streets`;", DropTableSQL(MySQL, "streets"))
}
