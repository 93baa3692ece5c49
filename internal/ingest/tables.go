package ingest

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/ddl"
	"github.com/TimGJ/AddressBasePremium/internal/tracker"
)

// EnsureSchema brings the database up to the catalog's shape before any
// file streams.
//
// With overwrite set it drops every record table plus the files table and
// recreates the lot, forgetting all load history. Otherwise it creates
// only what is missing and then verifies that each existing table's
// columns match the catalog; a mismatch is fatal, never migrated.
func EnsureSchema(ctx context.Context, d db.DB, catalog *abp.Catalog, tr *tracker.Tracker, overwrite, unlogged bool, log *zap.SugaredLogger) error {
	defs := make([]ddl.TableDef, 0, len(catalog.Kinds())+1)
	for _, k := range catalog.Kinds() {
		defs = append(defs, k.TableDef())
	}
	defs = append(defs, tr.TableDef())

	if overwrite {
		// Drop in reverse creation order. No table references another by
		// constraint, but the files table goes first so a failure partway
		// cannot leave history pointing at vanished record tables.
		for i := len(defs) - 1; i >= 0; i-- {
			stmt := ddl.DropTableSQL(d.Dialect(), defs[i].Name)
			if err := d.Exec(ctx, stmt); err != nil {
				return storageErr("drop "+defs[i].Name, err)
			}
		}
		log.Infow("dropped all tables", "tables", len(defs))
	}

	opts := ddl.CreateOptions{Unlogged: unlogged}
	for _, def := range defs {
		stmts, err := ddl.CreateTableSQL(d.Dialect(), def, opts)
		if err != nil {
			return err
		}
		for _, stmt := range stmts {
			if err := d.Exec(ctx, stmt); err != nil {
				return storageErr("create "+def.Name, err)
			}
		}
	}
	log.Infow("schema ready", "tables", len(defs), "overwrite", overwrite)

	for _, def := range defs {
		if err := verifyTable(ctx, d, def); err != nil {
			return err
		}
	}
	return nil
}

// verifyTable compares the live column list against the catalog's. Extra,
// missing or reordered columns all fail; drift is never migrated.
func verifyTable(ctx context.Context, d db.DB, def ddl.TableDef) error {
	got, err := tableColumns(ctx, d, def.Name)
	if err != nil {
		return storageErr("inspect "+def.Name, err)
	}
	want := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		want[i] = c.Name
	}
	if len(got) == 0 {
		return schemaErrorf("table %s missing after create", def.Name)
	}
	if !equalFoldSlices(got, want) {
		return schemaErrorf("table %s has columns (%s), catalog wants (%s)",
			def.Name, strings.Join(got, ", "), strings.Join(want, ", "))
	}
	return nil
}

// tableColumns lists a table's column names in declared order.
func tableColumns(ctx context.Context, d db.DB, table string) ([]string, error) {
	var q string
	switch d.Dialect() {
	case ddl.SQLite:
		q = "SELECT name FROM pragma_table_info(?) ORDER BY cid"
	case ddl.MySQL:
		q = "SELECT column_name FROM information_schema.columns WHERE table_name = ? AND table_schema = DATABASE() ORDER BY ordinal_position"
	case ddl.SQLServer:
		q = "SELECT column_name FROM information_schema.columns WHERE table_name = ? AND table_schema = SCHEMA_NAME() ORDER BY ordinal_position"
	default:
		q = "SELECT column_name FROM information_schema.columns WHERE table_name = ? AND table_schema = current_schema() ORDER BY ordinal_position"
	}
	rows, err := d.Query(ctx, db.Rebind(d.Dialect(), q), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func equalFoldSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
