// Package csvio reads and writes CSV for the table adapters.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/plusplusco/rows/internal/adapter"
)

// ReaderOptions configure CSV input.
type ReaderOptions struct {
	// Comma is the field delimiter. Zero sniffs it from the first line.
	Comma rune

	// Comment, when non-zero, marks lines to ignore.
	Comment rune

	// CleanCells applies CleanCell to every value.
	CleanCells bool

	// SkipBlankRows drops rows whose cells are all blank.
	SkipBlankRows bool
}

// Reader reads a header record followed by data records.
type Reader struct {
	csv      *csv.Reader
	counter  *CountingReader
	opts     ReaderOptions
	header   []string
	started  bool
	firstErr error
}

var _ adapter.Reader = (*Reader)(nil)

// NewReader wraps r. Input is sanitized (BOM, invalid UTF-8) before parsing.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	counter := NewCountingReader(r)
	br := bufio.NewReader(Sanitize(counter))

	if opts.Comma == 0 {
		// Peek returns what it has alongside the error on short input.
		sample, _ := br.Peek(4096)
		opts.Comma = DetectComma(sample)
	}

	cr := csv.NewReader(br)
	cr.Comma = opts.Comma
	cr.Comment = opts.Comment
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return &Reader{csv: cr, counter: counter, opts: opts}
}

// Comma returns the delimiter in use.
func (r *Reader) Comma() rune { return r.opts.Comma }

// BytesRead returns the raw bytes consumed from the source.
func (r *Reader) BytesRead() int64 { return r.counter.BytesRead() }

// Header returns the first record. It returns io.EOF for empty input.
func (r *Reader) Header() ([]string, error) {
	if r.started {
		return r.header, r.firstErr
	}
	r.started = true

	rec, err := r.next()
	if err != nil {
		r.firstErr = err
		return nil, err
	}
	for i, name := range rec {
		rec[i] = strings.TrimSpace(name)
	}
	r.header = rec
	return rec, nil
}

// Read returns the next data record, or io.EOF.
func (r *Reader) Read() ([]string, error) {
	if !r.started {
		if _, err := r.Header(); err != nil {
			return nil, err
		}
	}
	for {
		rec, err := r.next()
		if err != nil {
			return nil, err
		}
		if r.opts.SkipBlankRows && isBlankRow(rec) {
			continue
		}
		return rec, nil
	}
}

func (r *Reader) next() ([]string, error) {
	rec, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if r.opts.CleanCells {
		for i, v := range rec {
			rec[i] = CleanCell(v)
		}
	}
	return rec, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriterOptions configure CSV output.
type WriterOptions struct {
	Comma   rune // default ','
	UseCRLF bool
	BOM     bool // prefix a UTF-8 byte order mark for spreadsheet programs
}

// Writer writes serialized table rows as CSV.
type Writer struct {
	w    io.Writer
	csv  *csv.Writer
	opts WriterOptions
}

var _ adapter.Writer = (*Writer)(nil)

// NewWriter wraps w. Close flushes but does not close w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}
	cw.UseCRLF = opts.UseCRLF
	return &Writer{w: w, csv: cw, opts: opts}
}

// WriteHeader writes the column names.
func (w *Writer) WriteHeader(cols []adapter.Column) error {
	if w.opts.BOM {
		if _, err := io.WriteString(w.w, "\uFEFF"); err != nil {
			return err
		}
	}
	return w.csv.Write(adapter.Names(cols))
}

// Write writes one record.
func (w *Writer) Write(row []string) error {
	return w.csv.Write(row)
}

// Close flushes buffered output.
func (w *Writer) Close() error {
	w.csv.Flush()
	return w.csv.Error()
}
