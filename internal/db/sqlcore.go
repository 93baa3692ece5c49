// Portable database/sql adapter used for every engine without a native
// bulk path: SQL Server, MySQL and SQLite. CopyInto falls back to a
// prepared INSERT executed per row inside the file transaction. Slower
// than engine-native COPY, but identical semantics across drivers.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/TimGJ/AddressBasePremium/internal/ddl"
)

// stmtCore is the minimal subset of *sql.Stmt the adapter uses.
type stmtCore interface {
	ExecContext(ctx context.Context, args ...any) (sql.Result, error)
	Close() error
}

// rowsCore matches *sql.Rows closely enough that real rows satisfy it
// directly and fakes stay small.
type rowsCore interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// sqlTxCore is the subset of a transaction that sqlTx uses. PrepareContext
// returns a stmtCore so unit tests can hand back light fakes.
type sqlTxCore interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (rowsCore, error)
	PrepareContext(ctx context.Context, query string) (stmtCore, error)
	Commit() error
	Rollback() error
}

// sqlDBCore is the minimal subset of *sql.DB we use.
type sqlDBCore interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (rowsCore, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

// Real wrappers adapting *sql.DB / *sql.Tx / *sql.Stmt to the seams.

type realStmt struct{ s *sql.Stmt }

func (r realStmt) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	return r.s.ExecContext(ctx, args...)
}
func (r realStmt) Close() error { return r.s.Close() }

type realSQLTx struct{ tx *sql.Tx }

func (r realSQLTx) ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return r.tx.ExecContext(ctx, q, args...)
}
func (r realSQLTx) QueryContext(ctx context.Context, q string, args ...any) (rowsCore, error) {
	return r.tx.QueryContext(ctx, q, args...)
}
func (r realSQLTx) PrepareContext(ctx context.Context, q string) (stmtCore, error) {
	st, err := r.tx.PrepareContext(ctx, q)
	if err != nil {
		return nil, err
	}
	return realStmt{st}, nil
}
func (r realSQLTx) Commit() error   { return r.tx.Commit() }
func (r realSQLTx) Rollback() error { return r.tx.Rollback() }

type realSQLDB struct{ db *sql.DB }

func (r realSQLDB) ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, q, args...)
}
func (r realSQLDB) QueryContext(ctx context.Context, q string, args ...any) (rowsCore, error) {
	return r.db.QueryContext(ctx, q, args...)
}
func (r realSQLDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, opts)
}
func (r realSQLDB) Close() error { return r.db.Close() }

// RawDB exposes the underlying *sql.DB for AsSQLDB.
func (r realSQLDB) RawDB() *sql.DB { return r.db }

// sqlDB is the portable DB adapter for engines behind database/sql.
type sqlDB struct {
	db      sqlDBCore
	dialect ddl.Dialect
}

// NewSQLDB opens a database/sql connection for the named driver and pings
// it to confirm connectivity before any ingestion starts.
func NewSQLDB(ctx context.Context, dialect ddl.Dialect, driver, dsn string) (DB, error) {
	d, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.PingContext(pingCtx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &sqlDB{db: realSQLDB{db: d}, dialect: dialect}, nil
}

// NewSQLiteDB opens a SQLite database via the pure-Go driver and switches
// on foreign key enforcement, matching the other engines' defaults.
func NewSQLiteDB(ctx context.Context, dsn string) (DB, error) {
	dbh, err := NewSQLDB(ctx, ddl.SQLite, "sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := dbh.Exec(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = dbh.Close(ctx)
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return dbh, nil
}

func (s *sqlDB) Dialect() ddl.Dialect { return s.dialect }

func (s *sqlDB) Exec(ctx context.Context, q string, args ...any) error {
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *sqlDB) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (s *sqlDB) BeginTx(ctx context.Context) (Tx, error) {
	raw, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: realSQLTx{tx: raw}, dialect: s.dialect}, nil
}

func (s *sqlDB) Close(ctx context.Context) error { return s.db.Close() }

// sqlRows adapts rowsCore to the Rows interface shared with pgx.
type sqlRows struct{ rows rowsCore }

func (r sqlRows) Next() bool             { return r.rows.Next() }
func (r sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRows) Err() error             { return r.rows.Err() }
func (r sqlRows) Close()                 { _ = r.rows.Close() }

// sqlTx wraps sqlTxCore to implement the portable Tx interface.
type sqlTx struct {
	tx      sqlTxCore
	dialect ddl.Dialect
}

func (t *sqlTx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, q, args...)
	return err
}

func (t *sqlTx) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

// CopyInto emulates bulk insert by preparing one INSERT and executing it
// per row. Placeholder style follows the dialect: @pN for SQL Server,
// ? for MySQL and SQLite.
func (t *sqlTx) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = ddl.QuoteIdent(t.dialect, c)
		if t.dialect == ddl.SQLServer {
			placeholders[i] = fmt.Sprintf("@p%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	stmtText := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteIdent(t.dialect, table),
		strings.Join(quoted, ","),
		strings.Join(placeholders, ","),
	)

	stmt, err := t.tx.PrepareContext(ctx, stmtText)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (t *sqlTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *sqlTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }

// AsSQLDB exposes the underlying *sql.DB for callers that need raw access.
func AsSQLDB(d DB) (*sql.DB, bool) {
	s, ok := d.(*sqlDB)
	if !ok {
		return nil, false
	}
	if core, ok := s.db.(realSQLDB); ok {
		return core.RawDB(), true
	}
	return nil, false
}

// Test-only constructors for injecting fakes.

func newSQLTxForTest(core sqlTxCore, d ddl.Dialect) *sqlTx { return &sqlTx{tx: core, dialect: d} }
func newSQLDBForTest(core sqlDBCore, d ddl.Dialect) *sqlDB { return &sqlDB{db: core, dialect: d} }
