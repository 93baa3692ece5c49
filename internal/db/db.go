// Package db provides the loader's narrow database boundary: execute DDL,
// run point queries against the load tracking table, and bulk-insert typed
// rows inside a per-file transaction.
//
// Two adapter families implement the boundary: a Postgres adapter wrapping
// pgx.Conn, and a portable database/sql adapter used for SQL Server, MySQL
// and SQLite. Both stay testable through small interface seams, so unit
// tests never need a live server.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/TimGJ/AddressBasePremium/internal/ddl"
)

// DB is a connection capable of executing statements, running queries and
// starting transactions.
type DB interface {
	Dialect() ddl.Dialect
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	BeginTx(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Tx supports Exec, queries, bulk inserts, and lifecycle. One transaction
// scopes one source file: every batch plus the tracker insert commit
// together or not at all.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows is the result cursor shared by both adapter families. pgx rows
// satisfy it directly; database/sql rows are wrapped.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// DBFactory mints a new DB connection per worker, so parallel file ingests
// never share a connection.
type DBFactory func(ctx context.Context) (DB, error)

// ParseConnector maps a connector name from configuration to its dialect.
// Common aliases are accepted.
func ParseConnector(name string) (ddl.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return ddl.Postgres, nil
	case "sqlserver", "mssql":
		return ddl.SQLServer, nil
	case "mysql":
		return ddl.MySQL, nil
	case "sqlite", "sqlite3":
		return ddl.SQLite, nil
	default:
		return 0, fmt.Errorf("unknown connector %q (want postgres, sqlserver, mysql or sqlite)", name)
	}
}

// Open connects using the adapter for the dialect. Postgres uses a native
// pgx connection; the rest go through database/sql.
func Open(ctx context.Context, d ddl.Dialect, dsn string) (DB, error) {
	switch d {
	case ddl.Postgres:
		return NewPgDB(ctx, dsn)
	case ddl.SQLServer:
		return NewSQLDB(ctx, d, "sqlserver", dsn)
	case ddl.MySQL:
		return NewSQLDB(ctx, d, "mysql", dsn)
	case ddl.SQLite:
		return NewSQLiteDB(ctx, dsn)
	default:
		return nil, fmt.Errorf("no adapter for dialect %s", d)
	}
}

// Factory returns a DBFactory bound to one dialect and DSN.
func Factory(d ddl.Dialect, dsn string) DBFactory {
	return func(ctx context.Context) (DB, error) { return Open(ctx, d, dsn) }
}

// Rebind rewrites ? placeholders into the dialect's positional style:
// $1..$n for Postgres, @p1..@pn for SQL Server. MySQL and SQLite take ?
// natively. The rewrite is textual; queries must not carry ? inside string
// literals.
func Rebind(d ddl.Dialect, query string) string {
	switch d {
	case ddl.MySQL, ddl.SQLite:
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			sb.WriteByte(query[i])
			continue
		}
		n++
		switch d {
		case ddl.SQLServer:
			fmt.Fprintf(&sb, "@p%d", n)
		default:
			fmt.Fprintf(&sb, "$%d", n)
		}
	}
	return sb.String()
}
