// Package ddl defines a small backend-agnostic model for the loader's
// tables and renders dialect-correct CREATE and DROP statements from it.
//
// Column types in the model are logical ("bigint", "char(8)",
// "decimal(9,7)", "varchar(40)", "date", "timestamp", "bigserial", "text");
// MapType translates them per dialect. Identifier quoting and existence
// guards also vary per dialect: Postgres and SQLite use CREATE ... IF NOT
// EXISTS, SQL Server wraps creation in an IF OBJECT_ID guard, and MySQL
// folds index definitions into the CREATE TABLE body since it has no
// idempotent CREATE INDEX.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavor statements are rendered for.
type Dialect int

const (
	Postgres Dialect = iota
	SQLServer
	MySQL
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLServer:
		return "sqlserver"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ColumnDef describes a single column.
//
//   - Name: unquoted column name; quoting happens at render time.
//   - Type: logical type, translated by MapType.
//   - Nullable: whether NULL is allowed.
//   - PrimaryKey: collected into a PRIMARY KEY clause at render time.
//   - Default: raw default expression, emitted as-is.
type ColumnDef struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// IndexDef describes one non-unique index over a table.
type IndexDef struct {
	Name    string
	Columns []string
}

// TableDef holds a table name with its ordered columns and indexes.
type TableDef struct {
	Name    string
	Columns []ColumnDef
	Indexes []IndexDef
}

// CreateOptions adjusts rendering. Unlogged applies to Postgres only and
// trades crash safety for bulk-load speed.
type CreateOptions struct {
	Unlogged bool
}

// MapType translates a logical column type into the dialect's SQL type.
// Unknown types fall back to a flexible string type.
func MapType(d Dialect, logical string) string {
	base, args := splitType(logical)
	switch base {
	case "bigserial":
		switch d {
		case Postgres:
			return "BIGSERIAL"
		case SQLServer:
			return "BIGINT IDENTITY(1,1)"
		case MySQL:
			return "BIGINT AUTO_INCREMENT"
		case SQLite:
			// INTEGER primary keys alias the rowid and self-assign.
			return "INTEGER"
		}
	case "bigint":
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case "int", "integer":
		switch d {
		case Postgres:
			return "INTEGER"
		case SQLite:
			return "INTEGER"
		default:
			return "INT"
		}
	case "char":
		switch d {
		case SQLServer:
			return "NCHAR(" + args + ")"
		case SQLite:
			return "TEXT"
		default:
			return "CHAR(" + args + ")"
		}
	case "varchar":
		switch d {
		case SQLServer:
			return "NVARCHAR(" + args + ")"
		case SQLite:
			return "TEXT"
		default:
			return "VARCHAR(" + args + ")"
		}
	case "decimal", "numeric":
		switch d {
		case Postgres:
			return "NUMERIC(" + args + ")"
		case SQLite:
			return "REAL"
		default:
			return "DECIMAL(" + args + ")"
		}
	case "date":
		if d == SQLite {
			return "TEXT"
		}
		return "DATE"
	case "timestamp", "timestamptz":
		switch d {
		case Postgres:
			return "TIMESTAMPTZ"
		case SQLServer:
			return "DATETIME2"
		case MySQL:
			return "DATETIME(6)"
		case SQLite:
			return "TEXT"
		}
	case "text":
		if d == SQLServer {
			return "NVARCHAR(MAX)"
		}
		return "TEXT"
	}
	if d == SQLServer {
		return "NVARCHAR(MAX)"
	}
	return "TEXT"
}

func splitType(logical string) (base, args string) {
	s := strings.ToLower(strings.TrimSpace(logical))
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, ""
	}
	close := strings.LastIndexByte(s, ')')
	if close < open {
		return s, ""
	}
	return strings.TrimSpace(s[:open]), strings.TrimSpace(s[open+1 : close])
}

// QuoteIdent quotes a single identifier for the dialect.
func QuoteIdent(d Dialect, id string) string {
	switch d {
	case SQLServer:
		return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
	case MySQL:
		return "`" + strings.ReplaceAll(id, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
	}
}

// CreateTableSQL renders the statements that bring a table and its indexes
// into existence, idempotently, in execution order.
//
// Postgres and SQLite return one CREATE TABLE IF NOT EXISTS plus one
// CREATE INDEX IF NOT EXISTS per index. MySQL returns a single CREATE
// TABLE IF NOT EXISTS with inline INDEX clauses. SQL Server returns a
// single IF OBJECT_ID guarded batch creating the table and its indexes
// together.
func CreateTableSQL(d Dialect, t TableDef, opts CreateOptions) ([]string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return nil, fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("ddl: table %s has no columns", name)
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.Indexes))
	pks := make([]string, 0, 1)
	for _, c := range t.Columns {
		cn := strings.TrimSpace(c.Name)
		if cn == "" {
			return nil, fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ := strings.TrimSpace(c.Type)
		if typ == "" {
			return nil, fmt.Errorf("ddl: column %s.%s missing type", name, cn)
		}

		var sb strings.Builder
		sb.WriteString(QuoteIdent(d, cn))
		sb.WriteByte(' ')
		sb.WriteString(MapType(d, typ))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, QuoteIdent(d, cn))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	for _, ix := range t.Indexes {
		if ix.Name == "" || len(ix.Columns) == 0 {
			return nil, fmt.Errorf("ddl: table %s has an incomplete index definition", name)
		}
	}

	qt := QuoteIdent(d, name)
	switch d {
	case MySQL:
		for _, ix := range t.Indexes {
			cols = append(cols, fmt.Sprintf("INDEX %s (%s)", QuoteIdent(d, ix.Name), quoteAll(d, ix.Columns)))
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", qt, strings.Join(cols, ",\n  "))
		return []string{stmt}, nil

	case SQLServer:
		var sb strings.Builder
		fmt.Fprintf(&sb, "IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n", qt)
		fmt.Fprintf(&sb, "  CREATE TABLE %s (\n    %s\n  );\n", qt, strings.Join(cols, ",\n    "))
		for _, ix := range t.Indexes {
			fmt.Fprintf(&sb, "  CREATE INDEX %s ON %s (%s);\n", QuoteIdent(d, ix.Name), qt, quoteAll(d, ix.Columns))
		}
		sb.WriteString("END;")
		return []string{sb.String()}, nil

	default: // Postgres, SQLite
		table := "CREATE TABLE IF NOT EXISTS "
		if opts.Unlogged && d == Postgres {
			table = "CREATE UNLOGGED TABLE IF NOT EXISTS "
		}
		stmts := make([]string, 0, 1+len(t.Indexes))
		stmts = append(stmts, fmt.Sprintf("%s%s (\n  %s\n);", table, qt, strings.Join(cols, ",\n  ")))
		for _, ix := range t.Indexes {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s);",
				QuoteIdent(d, ix.Name), qt, quoteAll(d, ix.Columns)))
		}
		return stmts, nil
	}
}

// DropTableSQL renders an idempotent drop for the named table.
func DropTableSQL(d Dialect, table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", QuoteIdent(d, table))
}

func quoteAll(d Dialect, ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = QuoteIdent(d, id)
	}
	return strings.Join(out, ", ")
}
