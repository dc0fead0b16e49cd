// Package jsonio writes typed rows as JSON documents.
//
// Values keep their types: integers, floats and bools become JSON scalars,
// decimals and percentages are exact JSON numbers, JSON columns are
// embedded as-is and everything else is written as its canonical string.
package jsonio

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/fields"
)

// Format selects the document layout.
type Format int

const (
	// FormatArray writes a single JSON array of objects.
	FormatArray Format = iota

	// FormatNDJSON writes one object per line.
	FormatNDJSON
)

// ParseFormat maps "json" and "ndjson" to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "array":
		return FormatArray, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	default:
		return FormatArray, fmt.Errorf("unknown json format %q", s)
	}
}

// Writer is an adapter.ValueWriter producing JSON.
type Writer struct {
	w      *bufio.Writer
	format Format
	cols   []adapter.Column
	keys   [][]byte
	rows   int
}

var _ adapter.ValueWriter = (*Writer)(nil)

// NewWriter wraps w. Close flushes but does not close w.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{w: bufio.NewWriter(w), format: format}
}

// WriteHeader records the columns; object keys follow their order.
func (w *Writer) WriteHeader(cols []adapter.Column) error {
	w.cols = cols
	w.keys = make([][]byte, len(cols))
	for i, c := range cols {
		key, err := json.Marshal(c.Name)
		if err != nil {
			return fmt.Errorf("column %q: %w", c.Name, err)
		}
		w.keys[i] = key
	}
	if w.format == FormatArray {
		return w.w.WriteByte('[')
	}
	return nil
}

// WriteValues writes one row as an object.
func (w *Writer) WriteValues(row []any) error {
	if len(row) != len(w.cols) {
		return fmt.Errorf("row has %d values, expected %d", len(row), len(w.cols))
	}

	if w.format == FormatArray && w.rows > 0 {
		if err := w.w.WriteByte(','); err != nil {
			return err
		}
	}

	w.w.WriteByte('{')
	for i, v := range row {
		if i > 0 {
			w.w.WriteByte(',')
		}
		w.w.Write(w.keys[i])
		w.w.WriteByte(':')

		b, err := json.Marshal(jsonValue(w.cols[i], v))
		if err != nil {
			return fmt.Errorf("column %q: %w", w.cols[i].Name, err)
		}
		w.w.Write(b)
	}
	w.w.WriteByte('}')
	if w.format == FormatNDJSON {
		w.w.WriteByte('\n')
	}

	w.rows++
	return nil
}

// Close terminates the document and flushes.
func (w *Writer) Close() error {
	if w.format == FormatArray {
		if w.cols == nil {
			w.w.WriteByte('[')
		}
		w.w.WriteString("]\n")
	}
	return w.w.Flush()
}

func jsonValue(col adapter.Column, v any) any {
	if v == nil {
		return nil
	}
	switch x := v.(type) {
	case decimal.Decimal:
		return json.Number(x.String())
	case time.Time:
		if col.Type != nil && col.Type.Kind() == fields.KindDate {
			return x.Format(fields.CanonicalDateLayout)
		}
		return x.UTC().Format(fields.CanonicalDateTimeLayout)
	}
	return v
}
