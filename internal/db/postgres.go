// Postgres adapter wrapping pgx.Conn/pgx.Tx behind the DB and Tx
// interfaces. The pgConnLike seam keeps the adapter testable without a
// live server, and CopyInto rides the native COPY FROM protocol.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/TimGJ/AddressBasePremium/internal/ddl"
)

// pgConnLike is the minimal subset of *pgx.Conn the adapter uses. A test
// double implementing it gives hermetic unit tests.
type pgConnLike interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

type pgDB struct{ conn pgConnLike }

// NewPgDB connects with pgx.Connect and wraps the connection. Callers own
// the connection and must Close it.
func NewPgDB(ctx context.Context, dsn string) (DB, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &pgDB{conn: c}, nil
}

func (p *pgDB) Dialect() ddl.Dialect { return ddl.Postgres }

func (p *pgDB) Exec(ctx context.Context, q string, args ...any) error {
	_, err := p.conn.Exec(ctx, q, args...)
	return err
}

func (p *pgDB) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	rows, err := p.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *pgDB) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (p *pgDB) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}

// pgTx wraps pgx.Tx to implement Tx.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, q string, args ...any) error {
	_, err := t.tx.Exec(ctx, q, args...)
	return err
}

func (t *pgTx) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CopyInto bulk-inserts through Postgres COPY FROM, the fast path for
// multi-million-row extracts. Server-side errors are annotated with the
// Postgres detail text, which names the offending value.
func (t *pgTx) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	n, err := t.tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, describePgErr(err)
	}
	return n, nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// describePgErr appends the server's detail and code to a pg error, which
// otherwise hides which value COPY choked on.
func describePgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Detail != "" || pgErr.Code != "") {
		return fmt.Errorf("%w (code %s, detail %q)", err, pgErr.Code, pgErr.Detail)
	}
	return err
}

// AsPgConn extracts the underlying *pgx.Conn when available, for callers
// needing native pgx features directly.
func AsPgConn(d DB) (*pgx.Conn, bool) {
	p, ok := d.(*pgDB)
	if !ok {
		return nil, false
	}
	if real, ok := p.conn.(*pgx.Conn); ok {
		return real, true
	}
	return nil, false
}

// newPgDBFromConn constructs a pgDB from a pgConnLike fake. Test-only.
func newPgDBFromConn(c pgConnLike) *pgDB { return &pgDB{conn: c} }
