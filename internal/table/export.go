package table

import (
	"fmt"
	"iter"
	"slices"

	"github.com/plusplusco/rows/internal/adapter"
)

// ExportRows returns the rows serialized to strings.
//
// The sequence is a snapshot of the fields and rows at the time of the
// call: rows appended or columns widened afterwards are not seen. It can be
// ranged over any number of times. Iteration stops at the first value that
// fails to serialize, yielding that error.
func (t *Table) ExportRows() iter.Seq2[[]string, error] {
	flds := t.Fields()
	rows := t.rows[:len(t.rows):len(t.rows)]

	return func(yield func([]string, error) bool) {
		for _, row := range rows {
			out := make([]string, len(row))
			for i, v := range row {
				s, err := flds[i].Type.Serialize(v)
				if err != nil {
					yield(nil, withField(err, flds[i], v))
					return
				}
				out[i] = s
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Export writes the header and every serialized row to w, then closes it.
func (t *Table) Export(w adapter.Writer) error {
	if err := w.WriteHeader(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := 0
	for row, err := range t.ExportRows() {
		line++
		if err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", line, err)
		}
	}
	return w.Close()
}

// ExportValues writes the header and every row of native values to w,
// then closes it.
func (t *Table) ExportValues(w adapter.ValueWriter) error {
	if err := w.WriteHeader(t.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rows := t.rows[:len(t.rows):len(t.rows)]
	for i, row := range rows {
		if err := w.WriteValues(slices.Clone(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return w.Close()
}

func (t *Table) derive(flds []Field, rows [][]any) *Table {
	d := newTable(flds, Options{Policy: t.policy}, t.catalog)
	d.nulls = t.nulls
	d.rows = rows
	for _, name := range t.widened {
		if _, ok := d.index[name]; ok {
			d.widened = append(d.widened, name)
		}
	}
	return d
}

// Slice returns a copy holding rows [start, stop) with the same fields.
func (t *Table) Slice(start, stop int) (*Table, error) {
	if start < 0 || stop > len(t.rows) || start > stop {
		return nil, fmt.Errorf("slice [%d:%d] of %d rows: %w", start, stop, len(t.rows), ErrOutOfRange)
	}
	rows := slices.Clone(t.rows[start:stop])
	return t.derive(t.Fields(), rows), nil
}

// Project returns a copy with only the named fields, in the given order.
func (t *Table) Project(names ...string) (*Table, error) {
	if len(names) == 0 {
		return nil, &SchemaError{Reason: ErrEmptyHeader}
	}

	var unknown, dups []string
	pick := make([]int, 0, len(names))
	seen := make(map[int]bool, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		switch {
		case !ok:
			unknown = append(unknown, name)
		case seen[i]:
			dups = append(dups, name)
		default:
			seen[i] = true
			pick = append(pick, i)
		}
	}
	if len(unknown) > 0 {
		return nil, &SchemaError{Reason: ErrUnknownField, Names: unknown}
	}
	if len(dups) > 0 {
		return nil, &SchemaError{Reason: ErrDuplicateName, Names: dups}
	}

	flds := make([]Field, len(pick))
	for k, i := range pick {
		flds[k] = t.fields[i]
	}
	rows := make([][]any, len(t.rows))
	for j, row := range t.rows {
		nr := make([]any, len(pick))
		for k, i := range pick {
			nr[k] = row[i]
		}
		rows[j] = nr
	}
	return t.derive(flds, rows), nil
}
