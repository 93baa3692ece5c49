package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/encoding/charmap"
)

const readBufSize = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// source streams one AddressBase extract: buffered reads with a kernel
// readahead hint, a running xxh3 over the content, ISO 8859-1 decoding
// (the extracts are Latin-1 per the Ordnance Survey spec) and CSV
// splitting. Records are reused between calls; callers must not retain
// them across Read calls.
type source struct {
	f    *os.File
	hash *xxh3.Hasher
	cr   *csv.Reader
	line int
}

func openSource(path string) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	advise(f)

	br := bufio.NewReaderSize(f, readBufSize)
	if b, _ := br.Peek(3); bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(3)
	}

	h := xxh3.New()
	dec := charmap.ISO8859_1.NewDecoder().Reader(io.TeeReader(br, h))

	cr := csv.NewReader(dec)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1 // field counts vary per record kind

	return &source{f: f, hash: h, cr: cr}, nil
}

// Read returns the next record and its one-based line number. io.EOF
// signals a clean end of file.
func (s *source) Read() ([]string, int, error) {
	s.line++
	rec, err := s.cr.Read()
	return rec, s.line, err
}

// Line returns the number of the most recently read line.
func (s *source) Line() int { return s.line }

// Checksum returns the xxh3 of the bytes consumed so far as fixed-width
// hex. Call it after EOF for the whole-file value.
func (s *source) Checksum() string {
	return fmt.Sprintf("%016x", s.hash.Sum64())
}

func (s *source) Close() error { return s.f.Close() }
