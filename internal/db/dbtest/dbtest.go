// Package dbtest provides in-memory fakes for the db seams so storage
// behaviour can be exercised without a server. The fakes record every
// statement and let tests script query results and failures.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/ddl"
)

// Call is one recorded Exec or Query.
type Call struct {
	SQL  string
	Args []any
}

// Copy is one recorded CopyInto.
type Copy struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// DB is a scriptable db.DB. The zero value works; set the hooks to force
// results or failures. Safe for concurrent use.
type DB struct {
	mu sync.Mutex

	DialectValue ddl.Dialect

	// QueryFn, when set, answers Query calls (on the DB and on its
	// transactions). Return rows as slices of column values.
	QueryFn func(sql string, args []any) ([][]any, error)
	// ExecErr, when set, can fail Exec calls by SQL fragment.
	ExecErr func(sql string) error
	// BeginErr fails BeginTx.
	BeginErr error
	// TxCopyErr seeds CopyErr on every transaction this DB begins.
	TxCopyErr func(table string) error

	Execs   []Call
	Queries []Call
	Txs     []*Tx
	Closed  bool
}

var _ db.DB = (*DB)(nil)

func (f *DB) Dialect() ddl.Dialect { return f.DialectValue }

func (f *DB) Exec(ctx context.Context, sql string, args ...any) error {
	f.mu.Lock()
	f.Execs = append(f.Execs, Call{SQL: sql, Args: args})
	fn := f.ExecErr
	f.mu.Unlock()
	if fn != nil {
		return fn(sql)
	}
	return nil
}

func (f *DB) Query(ctx context.Context, sql string, args ...any) (db.Rows, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, Call{SQL: sql, Args: args})
	fn := f.QueryFn
	f.mu.Unlock()
	if fn == nil {
		return &Rows{}, nil
	}
	rows, err := fn(sql, args)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (f *DB) BeginTx(ctx context.Context) (db.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BeginErr != nil {
		return nil, f.BeginErr
	}
	tx := &Tx{db: f, CopyErr: f.TxCopyErr}
	f.Txs = append(f.Txs, tx)
	return tx, nil
}

func (f *DB) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// ExecsMatching returns recorded DB-level Execs containing the fragment.
func (f *DB) ExecsMatching(fragment string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Execs {
		if strings.Contains(c.SQL, fragment) {
			out = append(out, c)
		}
	}
	return out
}

// Tx is the transaction handed out by DB.BeginTx.
type Tx struct {
	mu sync.Mutex
	db *DB

	// CopyErr, when set, can fail CopyInto by table name.
	CopyErr func(table string) error
	// ExecErr, when set, can fail Exec calls by SQL fragment.
	ExecErr func(sql string) error

	Execs      []Call
	Queries    []Call
	Copies     []Copy
	Committed  bool
	RolledBack bool
}

var _ db.Tx = (*Tx)(nil)

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) error {
	t.mu.Lock()
	t.Execs = append(t.Execs, Call{SQL: sql, Args: args})
	fn := t.ExecErr
	t.mu.Unlock()
	if fn != nil {
		return fn(sql)
	}
	return nil
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (db.Rows, error) {
	t.mu.Lock()
	t.Queries = append(t.Queries, Call{SQL: sql, Args: args})
	var fn func(string, []any) ([][]any, error)
	if t.db != nil {
		fn = t.db.QueryFn
	}
	t.mu.Unlock()
	if fn == nil {
		return &Rows{}, nil
	}
	rows, err := fn(sql, args)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (t *Tx) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t.mu.Lock()
	t.Copies = append(t.Copies, Copy{Table: table, Columns: columns, Rows: rows})
	fn := t.CopyErr
	t.mu.Unlock()
	if fn != nil {
		if err := fn(table); err != nil {
			return 0, err
		}
	}
	return int64(len(rows)), nil
}

func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Committed = true
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.RolledBack = true
	return nil
}

// CopiedRows returns all rows copied into the named table, in order.
func (t *Tx) CopiedRows(table string) [][]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out [][]any
	for _, c := range t.Copies {
		if c.Table == table {
			out = append(out, c.Rows...)
		}
	}
	return out
}

// Rows replays scripted result rows.
type Rows struct {
	rows [][]any
	i    int
	err  error
}

var _ db.Rows = (*Rows)(nil)

func (r *Rows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	row := r.rows[r.i-1]
	if len(dest) != len(row) {
		return fmt.Errorf("dbtest: scan wants %d values, row has %d", len(dest), len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("dbtest: column %d: %w", i, err)
		}
	}
	return nil
}

func (r *Rows) Err() error { return r.err }
func (r *Rows) Close()     {}

func assign(dest, v any) error {
	switch d := dest.(type) {
	case *any:
		*d = v
	case *int64:
		switch x := v.(type) {
		case int64:
			*d = x
		case int:
			*d = int64(x)
		default:
			return fmt.Errorf("cannot scan %T into *int64", v)
		}
	case *string:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("cannot scan %T into *string", v)
		}
		*d = s
	case *bool:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot scan %T into *bool", v)
		}
		*d = b
	default:
		return fmt.Errorf("unsupported scan destination %T", dest)
	}
	return nil
}

// Factory returns a db.DBFactory that hands every caller the same fake, so
// a test sees all recorded statements in one place regardless of how many
// connections the code under test opens.
func Factory(fake *DB) db.DBFactory {
	return func(ctx context.Context) (db.DB, error) {
		return fake, nil
	}
}
