package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db/dbtest"
)

func testCatalog(t *testing.T) *abp.Catalog {
	t.Helper()
	c, err := abp.NewCatalog()
	require.NoError(t, err)
	return c
}

// Fixture lines from a sample extract, one per kind used in tests.

func headerLine() []string {
	return []string{"10", "NAG Hub - GeoPlace", "9999", "2017-02-25", "1", "2017-02-24", "16:00:07", "2.3", "F"}
}

func blpuLine() []string {
	return []string{
		"21", "I", "272650", "100023336956", "1", "2", "2007-10-10", "",
		"292906.00", "92337.00", "50.7245041", "-3.5199573", "1", "1110",
		"E", "2007-10-10", "", "2009-07-28", "2007-10-10", "D", "EX4 3LS", "0",
	}
}

func trailerLine() []string {
	return []string{"99", "2", "328337", "2017-02-25", "16:00:07"}
}

func mapLine(t *testing.T, c *abp.Catalog, fields []string) abp.Row {
	t.Helper()
	kind, err := c.Route(fields)
	require.NoError(t, err)
	row, rerr := kind.Map(fields)
	require.Nil(t, rerr)
	return row
}

func TestWriterFlushesAtBatchSize(t *testing.T) {
	c := testCatalog(t)
	tx := &dbtest.Tx{}
	w := newBatchWriter(tx, 2)
	ctx := context.Background()

	require.NoError(t, w.Add(ctx, mapLine(t, c, blpuLine())))
	assert.Empty(t, tx.Copies)

	require.NoError(t, w.Add(ctx, mapLine(t, c, blpuLine())))
	require.Len(t, tx.Copies, 1)
	assert.Equal(t, "blpus", tx.Copies[0].Table)
	assert.Len(t, tx.Copies[0].Rows, 2)

	require.NoError(t, w.Add(ctx, mapLine(t, c, blpuLine())))
	assert.Len(t, tx.Copies, 1)

	require.NoError(t, w.Flush(ctx))
	require.Len(t, tx.Copies, 2)
	assert.Len(t, tx.Copies[1].Rows, 1)

	assert.Equal(t, int64(3), w.Inserted())
	assert.Equal(t, map[string]int64{"blpus": 3}, w.PerKind())
}

func TestWriterFlushesKindsInFirstSeenOrder(t *testing.T) {
	c := testCatalog(t)
	tx := &dbtest.Tx{}
	w := newBatchWriter(tx, 100)
	ctx := context.Background()

	require.NoError(t, w.Add(ctx, mapLine(t, c, blpuLine())))
	require.NoError(t, w.Add(ctx, mapLine(t, c, trailerLine())))
	require.NoError(t, w.Add(ctx, mapLine(t, c, blpuLine())))
	require.NoError(t, w.Flush(ctx))

	require.Len(t, tx.Copies, 2)
	assert.Equal(t, "blpus", tx.Copies[0].Table)
	assert.Len(t, tx.Copies[0].Rows, 2)
	assert.Equal(t, "trailers", tx.Copies[1].Table)
	assert.Len(t, tx.Copies[1].Rows, 1)
}

func TestWriterSendsKindColumns(t *testing.T) {
	c := testCatalog(t)
	tx := &dbtest.Tx{}
	w := newBatchWriter(tx, 1)
	ctx := context.Background()

	row := mapLine(t, c, blpuLine())
	require.NoError(t, w.Add(ctx, row))

	require.Len(t, tx.Copies, 1)
	assert.Equal(t, row.Kind.Columns(), tx.Copies[0].Columns)
	rows := tx.CopiedRows("blpus")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100023336956), rows[0][2])
}

func TestWriterWrapsCopyFailure(t *testing.T) {
	c := testCatalog(t)
	tx := &dbtest.Tx{CopyErr: func(table string) error {
		return assert.AnError
	}}
	w := newBatchWriter(tx, 1)

	err := w.Add(context.Background(), mapLine(t, c, blpuLine()))
	require.Error(t, err)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "insert into blpus", se.Op)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, w.Inserted())
}

func TestWriterFlushEmpty(t *testing.T) {
	tx := &dbtest.Tx{}
	w := newBatchWriter(tx, 10)
	require.NoError(t, w.Flush(context.Background()))
	assert.Empty(t, tx.Copies)
}
