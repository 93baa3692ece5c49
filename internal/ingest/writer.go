package ingest

import (
	"context"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db"
)

// batchWriter buffers typed rows per record kind and flushes each buffer
// as one bulk insert when it reaches the batch size, amortizing per-row
// round trips. All writes go through a single transaction, so a file's
// rows land atomically with its tracker entry. Within one kind, rows are
// inserted in input order; across kinds no order is promised.
type batchWriter struct {
	tx    db.Tx
	size  int
	bufs  map[string]*kindBuffer // keyed by kind code
	order []*kindBuffer          // first-seen order, for deterministic flushes

	inserted int64
	perKind  map[string]int64 // rows inserted, keyed by table name
}

type kindBuffer struct {
	kind *abp.Kind
	rows [][]any
}

func newBatchWriter(tx db.Tx, size int) *batchWriter {
	return &batchWriter{
		tx:      tx,
		size:    size,
		bufs:    make(map[string]*kindBuffer),
		perKind: make(map[string]int64),
	}
}

// Add buffers one typed row and flushes its kind when the buffer fills.
func (w *batchWriter) Add(ctx context.Context, row abp.Row) error {
	buf, ok := w.bufs[row.Kind.Code]
	if !ok {
		buf = &kindBuffer{kind: row.Kind, rows: make([][]any, 0, w.size)}
		w.bufs[row.Kind.Code] = buf
		w.order = append(w.order, buf)
	}
	buf.rows = append(buf.rows, row.Values)
	if len(buf.rows) >= w.size {
		return w.flushBuffer(ctx, buf)
	}
	return nil
}

// Flush drains every buffer. Called unconditionally at end of file.
func (w *batchWriter) Flush(ctx context.Context) error {
	for _, buf := range w.order {
		if err := w.flushBuffer(ctx, buf); err != nil {
			return err
		}
	}
	return nil
}

func (w *batchWriter) flushBuffer(ctx context.Context, buf *kindBuffer) error {
	if len(buf.rows) == 0 {
		return nil
	}
	n, err := w.tx.CopyInto(ctx, buf.kind.Table, buf.kind.Columns(), buf.rows)
	if err != nil {
		return storageErr("insert into "+buf.kind.Table, err)
	}
	w.inserted += n
	w.perKind[buf.kind.Table] += n
	// The driver may retain the flushed slice; hand it off and start fresh.
	buf.rows = make([][]any, 0, w.size)
	return nil
}

func (w *batchWriter) Inserted() int64 { return w.inserted }

func (w *batchWriter) PerKind() map[string]int64 { return w.perKind }
