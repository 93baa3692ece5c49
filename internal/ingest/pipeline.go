// Package ingest drives AddressBase Premium extracts into the database:
// schema setup, a bounded pool of per-file workers, and the per-file
// stream through routing, typing and batched inserts. Each file is
// atomic: one transaction spans its inserts and its tracker row, so a
// file is either fully loaded and marked, or absent.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/ddl"
	"github.com/TimGJ/AddressBasePremium/internal/tracker"
)

const heartbeatLines = 100_000

// Options configures one run.
type Options struct {
	Paths              []string // concrete input files, already expanded
	Overwrite          bool
	BatchSize          int
	Workers            int
	MaxStorageFailures int    // consecutive storage-failed files before the run aborts
	SkippedDir         string // "" disables skipped-row logs
	Unlogged           bool
	RunID              string
	ErrorSample        int // row failure messages kept verbatim per file
}

// Pipeline runs files through ingestion. Files are independent units:
// the pool processes up to Workers of them at once, each on its own
// connection, while lines within a file stay strictly sequential.
type Pipeline struct {
	opts    Options
	catalog *abp.Catalog
	tracker *tracker.Tracker
	factory db.DBFactory
	log     *zap.SugaredLogger

	// Storage-failed files in a row, across all workers. Only a file
	// that completes against the store resets it.
	storageStreak atomic.Int64
}

func New(opts Options, catalog *abp.Catalog, dialect ddl.Dialect, factory db.DBFactory, log *zap.SugaredLogger) *Pipeline {
	if opts.BatchSize < 1 {
		opts.BatchSize = 10000
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.MaxStorageFailures < 1 {
		opts.MaxStorageFailures = 3
	}
	if opts.ErrorSample < 1 {
		opts.ErrorSample = 10
	}
	return &Pipeline{
		opts:    opts,
		catalog: catalog,
		tracker: tracker.New(catalog, dialect),
		factory: factory,
		log:     log,
	}
}

// Run prepares the schema and ingests every file. The returned error is
// non-nil only when the run could not start (connection or schema
// trouble) or aborted early on repeated storage failures; per-file
// outcomes, good and bad, live in the Summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	sum := newSummary(p.opts.RunID)

	setup, err := p.factory(ctx)
	if err != nil {
		return nil, storageErr("connect", err)
	}
	err = EnsureSchema(ctx, setup, p.catalog, p.tracker, p.opts.Overwrite, p.opts.Unlogged, p.log)
	_ = setup.Close(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, path := range p.opts.Paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				sum.record(FileResult{Name: filepath.Base(path), Path: path, State: StatePending})
				return nil
			}
			res := p.processFile(gctx, path)
			sum.record(res)

			switch {
			case res.State == StateFailed && res.Storage:
				p.log.Errorw("file failed", "file", res.Name, "error", res.Err)
				if streak := p.storageStreak.Add(1); streak >= int64(p.opts.MaxStorageFailures) {
					return fmt.Errorf("%d consecutive storage failures, stopping the run", streak)
				}
			case res.State == StateFailed:
				// The store was not implicated, so the streak stands.
				p.log.Errorw("file failed", "file", res.Name, "error", res.Err)
			default:
				p.storageStreak.Store(0)
			}
			return nil
		})
	}
	runErr := g.Wait()
	if runErr != nil {
		p.log.Errorw("run aborted", "error", runErr)
	}
	sum.Log(p.log)
	return sum, runErr
}

// processFile takes one file through the state machine. Row-level
// problems are counted and logged, never fatal; anything unrecoverable
// rolls the whole file back.
func (p *Pipeline) processFile(ctx context.Context, path string) (res FileResult) {
	start := time.Now()
	res = FileResult{Name: filepath.Base(path), Path: path, State: StatePending}
	defer func() { res.Duration = time.Since(start) }()

	log := p.log.With("file", res.Name)

	conn, err := p.factory(ctx)
	if err != nil {
		res.fail(storageErr("connect", err))
		return
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if !p.opts.Overwrite {
		loaded, err := p.tracker.IsLoaded(ctx, conn, res.Name)
		if err != nil {
			res.fail(storageErr("check load state", err))
			return
		}
		if loaded {
			log.Infow("already loaded, skipping")
			res.State = StateSkipped
			return
		}
	}

	src, err := openSource(path)
	if err != nil {
		res.fail(fmt.Errorf("open: %w", err))
		return
	}
	defer src.Close()

	tx, err := conn.BeginTx(ctx)
	if err != nil {
		res.fail(storageErr("begin", err))
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	skips := newSkipLog(p.opts.SkippedDir, res.Name)
	defer func() {
		if err := skips.Close(); err != nil {
			log.Warnw("skip log", "error", err)
		}
		res.SkipLog = skips.Path()
	}()

	agg := newErrAgg(p.opts.ErrorSample)
	reject := func(line int, field, reason, raw string) {
		agg.add(reason)
		skips.Add(reason, line, field, raw)
	}
	w := newBatchWriter(tx, p.opts.BatchSize)

	log.Infow("streaming")
	res.State = StateStreaming
	for {
		if err := ctx.Err(); err != nil {
			res.fail(err)
			return
		}
		rec, line, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// One broken line must not sink a multi-million-row file.
				res.Lines++
				reject(line, "", fmt.Sprintf("csv: %v", err), "")
				continue
			}
			res.fail(fmt.Errorf("read: %w", err))
			return
		}
		res.Lines++

		kind, err := p.catalog.Route(rec)
		if err != nil {
			reject(line, "", err.Error(), strings.Join(rec, ","))
			continue
		}
		row, rowErr := kind.Map(rec)
		if rowErr != nil {
			reject(line, rowErr.Field, rowErr.Reason, strings.Join(rec, ","))
			continue
		}
		if row.Wide {
			res.Wide++
		}
		if err := w.Add(ctx, row); err != nil {
			res.fail(err)
			return
		}
		if res.Lines%heartbeatLines == 0 {
			log.Infow("progress", "lines", res.Lines, "inserted", w.Inserted())
		}
	}

	res.State = StateCommitting
	if err := w.Flush(ctx); err != nil {
		res.fail(err)
		return
	}
	res.Checksum = src.Checksum()
	res.Inserted = w.Inserted()
	res.PerKind = w.PerKind()
	res.Rejected = agg.total()

	loadRec := &tracker.LoadedFile{
		FileName:    res.Name,
		RunID:       p.opts.RunID,
		Checksum:    res.Checksum,
		CreateStart: start,
		CreateEnd:   time.Now(),
		Errors:      res.Rejected,
		RowsTotal:   res.Inserted,
		PerKind:     res.PerKind,
	}
	if _, err := p.tracker.MarkLoaded(ctx, tx, loadRec); err != nil {
		res.fail(storageErr("mark loaded", err))
		return
	}
	if err := tx.Commit(ctx); err != nil {
		res.fail(storageErr("commit", err))
		return
	}
	committed = true
	res.State = StateDone

	if res.Rejected > 0 {
		log.Warnw("rows rejected", "count", res.Rejected, "sample", agg.sample())
	}
	if res.Wide > 0 {
		log.Warnw("lines carried extra fields", "count", res.Wide)
	}
	return
}

func (r *FileResult) fail(err error) {
	r.State = StateFailed
	r.Err = err
	var se *StorageError
	r.Storage = errors.As(err, &se)
}
