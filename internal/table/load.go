package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/logging"
)

// ContextCheckInterval is how often loading checks for cancellation.
var ContextCheckInterval = 100

// FailedRow is a source row that could not be stored.
type FailedRow struct {
	Line   int // 1-based record number; the header is line 1
	Reason string
	Data   []string
}

// Report summarizes a load.
type Report struct {
	TotalRows  int // data rows read from the source
	Loaded     int
	Skipped    int
	FailedRows []FailedRow
	Widened    []string
	Duration   time.Duration
}

func (r *Report) fail(line int, err error, data []string) {
	r.FailedRows = append(r.FailedRows, FailedRow{Line: line, Reason: err.Error(), Data: data})
	r.Skipped++
}

// Load reads a header and rows from r into a new table.
//
// The first SampleSize rows (all rows when zero) are buffered for
// detection and then stored like every other row. Rows that fail are
// recorded in the report and do not stop the load; read errors and
// schema errors do.
func Load(ctx context.Context, r adapter.Reader, opts Options) (*Table, *Report, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "policy", opts.Policy.String())

	catalog, err := opts.ResolveCatalog()
	if err != nil {
		return nil, nil, err
	}

	header, err := r.Header()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &SchemaError{Reason: ErrEmptyHeader}
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	l, err := newLayout(header, opts, catalog)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	read := func() ([]string, error) {
		if opts.MaxRows > 0 && report.TotalRows >= opts.MaxRows {
			return nil, io.EOF
		}
		if report.TotalRows%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read line %d: %w", report.TotalRows+2, err)
		}
		report.TotalRows++
		return row, nil
	}

	var sample [][]string
	eof := false
	for opts.SampleSize <= 0 || len(sample) < opts.SampleSize {
		row, err := read()
		if errors.Is(err, io.EOF) {
			eof = true
			break
		}
		if err != nil {
			return nil, nil, err
		}
		sample = append(sample, row)
	}

	nulls := opts.nulls()
	t := newTable(l.detectFields(sample, opts, catalog, nulls), opts, catalog)

	store := func(line int, row []string) {
		raw, err := project(l, row)
		if err == nil {
			err = t.Append(raw)
		}
		if err != nil {
			logger.Debug("row rejected", "line", line, "error", err)
			report.fail(line, err, row)
			return
		}
		report.Loaded++
	}

	for i, row := range sample {
		store(i+2, row)
	}
	for !eof {
		row, err := read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		store(report.TotalRows+1, row)
	}

	report.Widened = t.Widened()
	report.Duration = time.Since(start)
	logger.Info("table loaded",
		"fields", len(t.fields),
		"rows", report.Loaded,
		"failed", report.Skipped,
		"widened", report.Widened,
		"duration", report.Duration,
	)
	return t, report, nil
}

// LoadTyped reads a source that declares its column types. Declared types
// are used as-is (ForceTypes still override them); columns without a type
// are text. Rows are numbered from 1.
func LoadTyped(ctx context.Context, r adapter.TypedReader, opts Options) (*Table, *Report, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "source", "typed", "policy", opts.Policy.String())

	cols, err := r.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	catalog, err := opts.ResolveCatalog()
	if err != nil {
		return nil, nil, err
	}
	l, err := newLayout(adapter.Names(cols), opts, catalog)
	if err != nil {
		return nil, nil, err
	}

	flds := make([]Field, len(l.pick))
	for k, i := range l.pick {
		typ, ok := l.forced[i]
		if !ok {
			typ = cols[i].Type
		}
		if typ == nil {
			typ = catalog.Text()
		}
		flds[k] = Field{Name: l.header[i], Type: typ, Nullable: cols[i].Nullable}
	}
	t := newTable(flds, opts, catalog)

	report := &Report{}
	for opts.MaxRows <= 0 || report.TotalRows < opts.MaxRows {
		if report.TotalRows%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		values, err := r.ReadValues()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", report.TotalRows+1, err)
		}
		report.TotalRows++

		raw, err := project(l, values)
		if err == nil {
			err = t.Append(raw)
		}
		if err != nil {
			logger.Debug("row rejected", "row", report.TotalRows, "error", err)
			report.fail(report.TotalRows, err, describeValues(values))
			continue
		}
		report.Loaded++
	}

	report.Widened = t.Widened()
	report.Duration = time.Since(start)
	logger.Info("typed table loaded",
		"fields", len(t.fields),
		"rows", report.Loaded,
		"failed", report.Skipped,
		"duration", report.Duration,
	)
	return t, report, nil
}

func describeValues(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
