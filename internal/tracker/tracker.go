// Package tracker persists which source files have been fully loaded, so
// re-runs skip completed work. One row lands in the files table per
// committed file, inside the same transaction as the file's final batches.
// A re-load of the same file name marks the older rows superseded instead
// of deleting them, which keeps load history and makes racing runs resolve
// to last-committed-wins.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/ddl"
)

// TableName is the load-history table. It sits beside the record tables
// and is dropped and recreated with them under overwrite.
const TableName = "files"

// LoadedFile is one row of the files table.
type LoadedFile struct {
	ID           int64
	FileName     string
	RunID        string
	Checksum     string // xxh3 of the raw file bytes, hex
	CreateStart  time.Time
	CreateEnd    time.Time
	SupersededBy int64 // 0 while the row is the active one for its file
	Errors       int64 // rows rejected at row level
	RowsTotal    int64 // rows inserted across all kinds
	PerKind      map[string]int64
}

// Active reports whether this row is the current load for its file name.
func (f *LoadedFile) Active() bool { return f.SupersededBy == 0 }

// Tracker issues the SQL for the files table against one dialect.
type Tracker struct {
	catalog *abp.Catalog
	dialect ddl.Dialect
}

func New(catalog *abp.Catalog, dialect ddl.Dialect) *Tracker {
	return &Tracker{catalog: catalog, dialect: dialect}
}

// TableDef describes the files table: fixed bookkeeping columns plus one
// rows-inserted counter per record kind, in catalog order.
func (t *Tracker) TableDef() ddl.TableDef {
	cols := []ddl.ColumnDef{
		{Name: "id", Type: "bigserial", PrimaryKey: true},
		{Name: "file_name", Type: "varchar(80)", Nullable: false},
		{Name: "run_id", Type: "char(36)", Nullable: true},
		{Name: "checksum", Type: "char(16)", Nullable: true},
		{Name: "create_start", Type: "timestamp", Nullable: true},
		{Name: "create_end", Type: "timestamp", Nullable: true},
		{Name: "superseded_by", Type: "bigint", Nullable: true},
		{Name: "errors", Type: "bigint", Nullable: true},
		{Name: "rows_total", Type: "bigint", Nullable: true},
	}
	for _, col := range t.countColumns() {
		cols = append(cols, ddl.ColumnDef{Name: col, Type: "bigint", Nullable: true})
	}
	return ddl.TableDef{
		Name:    TableName,
		Columns: cols,
		Indexes: []ddl.IndexDef{
			{Name: "ix_files_file_name", Columns: []string{"file_name"}},
		},
	}
}

// countColumns returns the per-kind counter column names in catalog order.
func (t *Tracker) countColumns() []string {
	kinds := t.catalog.Kinds()
	cols := make([]string, len(kinds))
	for i, k := range kinds {
		cols[i] = "n_" + k.Table
	}
	return cols
}

// IsLoaded reports whether an active files row exists for the base name.
func (t *Tracker) IsLoaded(ctx context.Context, d db.DB, fileName string) (bool, error) {
	q := db.Rebind(t.dialect, "SELECT COUNT(*) FROM files WHERE file_name = ? AND superseded_by IS NULL")
	rows, err := d.Query(ctx, q, fileName)
	if err != nil {
		return false, fmt.Errorf("tracker: query %q: %w", fileName, err)
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, fmt.Errorf("tracker: scan count for %q: %w", fileName, err)
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("tracker: query %q: %w", fileName, err)
	}
	return n > 0, nil
}

// Loaded returns every files row, superseded ones included, ordered by
// file name then insertion.
func (t *Tracker) Loaded(ctx context.Context, d db.DB) ([]LoadedFile, error) {
	counts := t.countColumns()
	cols := append([]string{
		"id", "file_name", "run_id", "checksum", "create_start",
		"create_end", "superseded_by", "errors", "rows_total",
	}, counts...)
	q := "SELECT " + strings.Join(cols, ", ") + " FROM files ORDER BY file_name, id"
	rows, err := d.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tracker: list files: %w", err)
	}
	defer rows.Close()

	var out []LoadedFile
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("tracker: scan files row: %w", err)
		}
		f := LoadedFile{
			ID:           asInt64(raw[0]),
			FileName:     asString(raw[1]),
			RunID:        strings.TrimSpace(asString(raw[2])),
			Checksum:     strings.TrimSpace(asString(raw[3])),
			CreateStart:  asTime(raw[4]),
			CreateEnd:    asTime(raw[5]),
			SupersededBy: asInt64(raw[6]),
			Errors:       asInt64(raw[7]),
			RowsTotal:    asInt64(raw[8]),
			PerKind:      make(map[string]int64, len(counts)),
		}
		for i, k := range t.catalog.Kinds() {
			f.PerKind[k.Table] = asInt64(raw[9+i])
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracker: list files: %w", err)
	}
	return out, nil
}

// MarkLoaded inserts the files row for a completed file and supersedes any
// older active rows with the same name. It runs on the caller's transaction
// so the marker commits or rolls back with the file's data.
func (t *Tracker) MarkLoaded(ctx context.Context, tx db.Tx, rec *LoadedFile) (int64, error) {
	counts := t.countColumns()
	cols := append([]string{
		"file_name", "run_id", "checksum", "create_start",
		"create_end", "errors", "rows_total",
	}, counts...)
	args := []any{
		rec.FileName, rec.RunID, rec.Checksum, rec.CreateStart,
		rec.CreateEnd, rec.Errors, rec.RowsTotal,
	}
	for _, k := range t.catalog.Kinds() {
		args = append(args, rec.PerKind[k.Table])
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	id, err := t.insertReturningID(ctx, tx, cols, marks, args)
	if err != nil {
		return 0, fmt.Errorf("tracker: record %q: %w", rec.FileName, err)
	}

	q := db.Rebind(t.dialect, "UPDATE files SET superseded_by = ? WHERE file_name = ? AND id <> ? AND superseded_by IS NULL")
	if err := tx.Exec(ctx, q, id, rec.FileName, id); err != nil {
		return 0, fmt.Errorf("tracker: supersede older loads of %q: %w", rec.FileName, err)
	}
	rec.ID = id
	return id, nil
}

// insertReturningID performs the dialect-specific insert that also yields
// the new surrogate id.
func (t *Tracker) insertReturningID(ctx context.Context, tx db.Tx, cols []string, marks string, args []any) (int64, error) {
	colList := strings.Join(cols, ", ")
	switch t.dialect {
	case ddl.Postgres, ddl.SQLite:
		q := fmt.Sprintf("INSERT INTO files (%s) VALUES (%s) RETURNING id", colList, marks)
		return queryID(ctx, tx, db.Rebind(t.dialect, q), args)
	case ddl.SQLServer:
		q := fmt.Sprintf("INSERT INTO files (%s) OUTPUT INSERTED.id VALUES (%s)", colList, marks)
		return queryID(ctx, tx, db.Rebind(t.dialect, q), args)
	case ddl.MySQL:
		q := fmt.Sprintf("INSERT INTO files (%s) VALUES (%s)", colList, marks)
		if err := tx.Exec(ctx, q, args...); err != nil {
			return 0, err
		}
		return queryID(ctx, tx, "SELECT LAST_INSERT_ID()", nil)
	}
	return 0, fmt.Errorf("no insert rule for dialect %s", t.dialect)
}

func queryID(ctx context.Context, tx db.Tx, q string, args []any) (int64, error) {
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("insert returned no id")
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

// Forget deletes every files row for the base name, active and superseded,
// so the next run re-ingests the file. Returns how many rows went.
func (t *Tracker) Forget(ctx context.Context, d db.DB, fileName string) (int64, error) {
	count := db.Rebind(t.dialect, "SELECT COUNT(*) FROM files WHERE file_name = ?")
	rows, err := d.Query(ctx, count, fileName)
	if err != nil {
		return 0, fmt.Errorf("tracker: forget %q: %w", fileName, err)
	}
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return 0, fmt.Errorf("tracker: forget %q: %w", fileName, err)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("tracker: forget %q: %w", fileName, err)
	}
	if n == 0 {
		return 0, nil
	}
	q := db.Rebind(t.dialect, "DELETE FROM files WHERE file_name = ?")
	if err := d.Exec(ctx, q, fileName); err != nil {
		return 0, fmt.Errorf("tracker: forget %q: %w", fileName, err)
	}
	return n, nil
}

// Drivers disagree on how they hand back integers, text and timestamps, so
// scans for the status listing go through these coercions.

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case []byte:
		var n int64
		fmt.Sscanf(string(x), "%d", &n)
		return n
	case string:
		var n int64
		fmt.Sscanf(x, "%d", &n)
		return n
	}
	return 0
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func asTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
