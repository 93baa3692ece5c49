package ingest

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileState tracks one input file through the run.
type FileState int

const (
	StatePending FileState = iota
	StateStreaming
	StateCommitting
	StateDone
	StateFailed
	StateSkipped // already loaded, not re-read
)

func (s FileState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	}
	return "unknown"
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Name     string // base name, the tracker key
	Path     string
	State    FileState
	Lines    int64 // lines read from the file
	Inserted int64 // rows committed across all kinds
	Rejected int64 // rows skipped at row level
	Wide     int64 // lines with extra trailing fields, loaded anyway
	PerKind  map[string]int64
	Checksum string
	SkipLog  string // path of the rejects file, if one was written
	Err      error
	Storage  bool // the failure came from the store, not the input
	Duration time.Duration
}

// Summary accumulates per-file outcomes across the worker pool.
type Summary struct {
	mu      sync.Mutex
	RunID   string
	files   []FileResult
	started time.Time
}

func newSummary(runID string) *Summary {
	return &Summary{RunID: runID, started: time.Now()}
}

func (s *Summary) record(r FileResult) {
	s.mu.Lock()
	s.files = append(s.files, r)
	s.mu.Unlock()
}

// Files returns the recorded outcomes in completion order.
func (s *Summary) Files() []FileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileResult, len(s.files))
	copy(out, s.files)
	return out
}

func (s *Summary) count(state FileState) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.files {
		if f.State == state {
			n++
		}
	}
	return n
}

func (s *Summary) Loaded() int    { return s.count(StateDone) }
func (s *Summary) Skipped() int   { return s.count(StateSkipped) }
func (s *Summary) Failed() int    { return s.count(StateFailed) }
func (s *Summary) Unstarted() int { return s.count(StatePending) }

func (s *Summary) RowsInserted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.files {
		n += f.Inserted
	}
	return n
}

func (s *Summary) RowsRejected() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.files {
		n += f.Rejected
	}
	return n
}

// ExitCode is 0 when every file loaded or was already loaded, 1 when any
// file failed or the run aborted before reaching it.
func (s *Summary) ExitCode() int {
	if s.Failed() > 0 || s.Unstarted() > 0 {
		return 1
	}
	return 0
}

// Log writes the per-run report: one line per file, then totals. Each
// streamed file is cross-checked: every line read must have been inserted
// or rejected.
func (s *Summary) Log(log *zap.SugaredLogger) {
	for _, f := range s.Files() {
		switch f.State {
		case StateDone:
			log.Infow("file loaded",
				"file", f.Name,
				"rows", f.Inserted,
				"rejected", f.Rejected,
				"checksum", f.Checksum,
				"took", f.Duration.Round(time.Millisecond))
		case StateSkipped:
			log.Infow("file already loaded, skipped", "file", f.Name)
		case StateFailed:
			log.Errorw("file failed",
				"file", f.Name,
				"error", f.Err,
				"storage", f.Storage,
				"took", f.Duration.Round(time.Millisecond))
		case StatePending:
			log.Warnw("file not processed, run aborted first", "file", f.Name)
		}
		if f.SkipLog != "" {
			log.Infow("rejected rows written", "file", f.Name, "to", f.SkipLog)
		}
		if f.State == StateDone && f.Lines != f.Inserted+f.Rejected {
			log.Warnw("accounting mismatch",
				"file", f.Name,
				"lines", f.Lines,
				"inserted", f.Inserted,
				"rejected", f.Rejected)
		}
	}
	log.Infow("run complete",
		"run_id", s.RunID,
		"loaded", s.Loaded(),
		"skipped", s.Skipped(),
		"failed", s.Failed(),
		"not_processed", s.Unstarted(),
		"rows_inserted", s.RowsInserted(),
		"rows_rejected", s.RowsRejected(),
		"took", time.Since(s.started).Round(time.Millisecond))
}
