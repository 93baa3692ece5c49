package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// skipLog writes one CSV row per rejected input line, so the rejects can
// be inspected or re-fed after a fix. The file is created lazily on the
// first reject; clean inputs leave nothing behind. An empty dir disables
// logging entirely.
type skipLog struct {
	dir  string
	name string // source file base name
	f    *os.File
	w    *csv.Writer
	err  error // first failure, reported by Close
	rows int
}

func newSkipLog(dir, name string) *skipLog {
	return &skipLog{dir: dir, name: name}
}

func (s *skipLog) Add(reason string, line int, field, raw string) {
	if s.dir == "" || s.err != nil {
		return
	}
	if s.w == nil {
		if err := s.create(); err != nil {
			s.err = err
			return
		}
	}
	if err := s.w.Write([]string{reason, strconv.Itoa(line), field, raw}); err != nil {
		s.err = err
		return
	}
	s.rows++
}

func (s *skipLog) create() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, s.name+".skipped.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	s.f = f
	s.w = csv.NewWriter(f)
	return s.w.Write([]string{"reason", "line_number", "field", "raw_line"})
}

// Path returns where the rejects went, or "" if nothing was written.
func (s *skipLog) Path() string {
	if s.f == nil {
		return ""
	}
	return s.f.Name()
}

func (s *skipLog) Rows() int { return s.rows }

func (s *skipLog) Close() error {
	if s.w != nil {
		s.w.Flush()
		if err := s.w.Error(); err != nil && s.err == nil {
			s.err = err
		}
	}
	if s.f != nil {
		if err := s.f.Close(); err != nil && s.err == nil {
			s.err = err
		}
	}
	return s.err
}
