// Package table holds typed rows behind a fixed set of detected fields.
//
// A Table is built once from a header and a sample (New, Load) or from
// known fields (NewWithFields, LoadTyped). Every appended value is converted
// with its column's type; export serializes values back to strings.
//
// Tables are not safe for concurrent use. Callers serialize Append; export
// works on a snapshot taken when ExportRows, Slice or Project is called.
package table

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/detect"
	"github.com/plusplusco/rows/internal/fields"
)

// Field is one resolved column. Nullable becomes true once a null is stored.
type Field struct {
	Name     string
	Type     fields.Type
	Nullable bool
}

// Table is an ordered set of fields and rows.
type Table struct {
	catalog *fields.Catalog
	nulls   fields.NullSet
	policy  Policy

	fields  []Field
	index   map[string]int
	rows    [][]any
	widened []string
}

// ----------------------------------------------------------------------------
// Construction
// ----------------------------------------------------------------------------

// layout maps a source header onto table fields.
type layout struct {
	header []string
	pick   []int               // header index of each table field
	forced map[int]fields.Type // by header index
}

func newLayout(header []string, opts Options, catalog *fields.Catalog) (*layout, error) {
	if len(header) == 0 {
		return nil, &SchemaError{Reason: ErrEmptyHeader}
	}

	name := func(s string) string { return s }
	if opts.NormalizeHeader {
		header = MakeHeader(header)
		name = func(s string) string { return fieldName(s, 0) }
	} else if err := checkHeader(header); err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}

	l := &layout{header: header, forced: make(map[int]fields.Type)}

	if opts.ImportFields == nil {
		l.pick = make([]int, len(header))
		for i := range header {
			l.pick[i] = i
		}
	} else {
		var unknown, dups []string
		seen := make(map[int]bool, len(opts.ImportFields))
		for _, f := range opts.ImportFields {
			i, ok := pos[name(f)]
			if !ok {
				unknown = append(unknown, f)
				continue
			}
			if seen[i] {
				dups = append(dups, f)
				continue
			}
			seen[i] = true
			l.pick = append(l.pick, i)
		}
		if len(unknown) > 0 {
			return nil, &SchemaError{Reason: ErrUnknownField, Names: unknown}
		}
		if len(dups) > 0 {
			return nil, &SchemaError{Reason: ErrDuplicateName, Names: dups}
		}
		if len(l.pick) == 0 {
			return nil, &SchemaError{Reason: ErrEmptyHeader}
		}
	}

	var unknown []string
	for _, f := range slices.Sorted(maps.Keys(opts.ForceTypes)) {
		i, ok := pos[name(f)]
		if !ok {
			unknown = append(unknown, f)
			continue
		}
		typ := opts.ForceTypes[f]
		if typ == nil {
			typ = catalog.Text()
		}
		l.forced[i] = typ
	}
	if len(unknown) > 0 {
		return nil, &SchemaError{Reason: ErrUnknownField, Names: unknown}
	}

	return l, nil
}

// detectFields runs detection on the imported, non-forced columns.
func (l *layout) detectFields(sample [][]string, opts Options, catalog *fields.Catalog, nulls fields.NullSet) []Field {
	skip := make(map[int]bool, len(l.header))
	for i := range l.header {
		skip[i] = true
	}
	for _, i := range l.pick {
		if _, ok := l.forced[i]; !ok {
			skip[i] = false
		}
	}

	results := detect.Columns(l.header, sample, detect.Options{
		Catalog:    catalog,
		Nulls:      nulls,
		SampleSize: opts.SampleSize,
		Skip:       skip,
	})

	out := make([]Field, len(l.pick))
	for k, i := range l.pick {
		if typ, ok := l.forced[i]; ok {
			out[k] = Field{Name: l.header[i], Type: typ}
			continue
		}
		out[k] = Field{Name: l.header[i], Type: results[i].Type, Nullable: results[i].Nullable}
	}
	return out
}

// project picks the imported columns out of a source row.
func project[T any](l *layout, row []T) ([]any, error) {
	if len(row) != len(l.header) {
		return nil, &RowShapeError{Want: len(l.header), Got: len(row)}
	}
	out := make([]any, len(l.pick))
	for k, i := range l.pick {
		out[k] = row[i]
	}
	return out, nil
}

func newTable(flds []Field, opts Options, catalog *fields.Catalog) *Table {
	t := &Table{
		catalog: catalog,
		nulls:   opts.nulls(),
		policy:  opts.Policy,
		fields:  flds,
		index:   make(map[string]int, len(flds)),
	}
	for i, f := range flds {
		t.index[f.Name] = i
	}
	return t
}

// New detects field types from sample and returns a table holding the
// sample rows. Rows are as wide as header; ImportFields selects columns.
// Any failure, including a sample row that does not convert, is fatal.
func New(header []string, sample [][]string, opts Options) (*Table, error) {
	catalog, err := opts.ResolveCatalog()
	if err != nil {
		return nil, err
	}
	l, err := newLayout(header, opts, catalog)
	if err != nil {
		return nil, err
	}
	if opts.MaxRows > 0 && len(sample) > opts.MaxRows {
		sample = sample[:opts.MaxRows]
	}

	t := newTable(l.detectFields(sample, opts, catalog, opts.nulls()), opts, catalog)
	for i, row := range sample {
		raw, err := project(l, row)
		if err != nil {
			return nil, fmt.Errorf("sample row %d: %w", i+1, err)
		}
		if err := t.Append(raw); err != nil {
			return nil, fmt.Errorf("sample row %d: %w", i+1, err)
		}
	}
	return t, nil
}

// NewWithFields returns an empty table with the given fields. Only
// Catalog, Locale, NullValues, Policy and NormalizeHeader apply.
// Fields without a type become text.
func NewWithFields(flds []Field, opts Options) (*Table, error) {
	catalog, err := opts.ResolveCatalog()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(flds))
	for i, f := range flds {
		names[i] = f.Name
	}
	if opts.NormalizeHeader {
		if len(names) == 0 {
			return nil, &SchemaError{Reason: ErrEmptyHeader}
		}
		names = MakeHeader(names)
	} else if err := checkHeader(names); err != nil {
		return nil, err
	}

	out := make([]Field, len(flds))
	for i, f := range flds {
		out[i] = Field{Name: names[i], Type: f.Type, Nullable: f.Nullable}
		if out[i].Type == nil {
			out[i].Type = catalog.Text()
		}
	}
	return newTable(out, opts, catalog), nil
}

// ----------------------------------------------------------------------------
// Append
// ----------------------------------------------------------------------------

// Append converts and stores one row. raw holds one value per field: a raw
// string or a native Go value.
//
// A row is stored whole or not at all. A value that does not fit its column
// returns a *fields.ConversionError under PolicyReject; under PolicyWiden the
// column becomes text and the row is kept.
func (t *Table) Append(raw []any) error {
	if len(raw) != len(t.fields) {
		return &RowShapeError{Want: len(t.fields), Got: len(raw)}
	}

	row := make([]any, len(raw))
	var failed []int
	for i, r := range raw {
		v, err := t.convert(t.fields[i], r)
		if err != nil {
			if t.policy != PolicyWiden {
				return err
			}
			failed = append(failed, i)
			continue
		}
		row[i] = v
	}

	if len(failed) > 0 {
		text := t.catalog.Text()
		for _, i := range failed {
			v, err := t.convert(Field{Name: t.fields[i].Name, Type: text}, raw[i])
			if err != nil {
				return err
			}
			row[i] = v
		}
		rows, err := t.recast(failed)
		if err != nil {
			return err
		}
		t.rows = rows
		for _, i := range failed {
			t.fields[i].Type = text
			if !slices.Contains(t.widened, t.fields[i].Name) {
				t.widened = append(t.widened, t.fields[i].Name)
			}
		}
	}

	for i, v := range row {
		if v == nil {
			t.fields[i].Nullable = true
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// AppendStrings is Append for raw string rows.
func (t *Table) AppendStrings(values []string) error {
	raw := make([]any, len(values))
	for i, v := range values {
		raw[i] = v
	}
	return t.Append(raw)
}

func (t *Table) convert(f Field, raw any) (any, error) {
	if s, ok := raw.(string); ok && t.isNull(f, s) {
		return nil, nil
	}
	v, err := f.Type.Deserialize(raw)
	if err != nil {
		return nil, withField(err, f, raw)
	}
	return v, nil
}

func (t *Table) isNull(f Field, s string) bool {
	if f.Type.Kind() == fields.KindText {
		return s == ""
	}
	return t.nulls.Contains(s)
}

// recast returns a copy of the rows with the given columns re-serialized
// to text. Stored rows are never modified in place, so snapshots taken by
// ExportRows keep their values.
func (t *Table) recast(cols []int) ([][]any, error) {
	rows := make([][]any, len(t.rows), len(t.rows)+1)
	for j, row := range t.rows {
		nr := slices.Clone(row)
		for _, i := range cols {
			if row[i] == nil {
				continue
			}
			s, err := t.fields[i].Type.Serialize(row[i])
			if err != nil {
				return nil, withField(err, t.fields[i], row[i])
			}
			if s == "" {
				nr[i] = nil
			} else {
				nr[i] = s
			}
		}
		rows[j] = nr
	}
	return rows, nil
}

func withField(err error, f Field, raw any) error {
	var convErr *fields.ConversionError
	if errors.As(err, &convErr) {
		c := *convErr
		c.Field = f.Name
		return &c
	}
	return &fields.ConversionError{Type: f.Type.Name(), Field: f.Name, Value: raw, Reason: err.Error(), Err: err}
}

// ----------------------------------------------------------------------------
// Read access
// ----------------------------------------------------------------------------

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Fields returns a copy of the fields.
func (t *Table) Fields() []Field { return slices.Clone(t.fields) }

// FieldNames returns the field names in order.
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	return names
}

// Columns describes the fields for writers.
func (t *Table) Columns() []adapter.Column {
	cols := make([]adapter.Column, len(t.fields))
	for i, f := range t.fields {
		cols[i] = adapter.Column{Name: f.Name, Type: f.Type, Nullable: f.Nullable}
	}
	return cols
}

// Catalog returns the catalog the table converts with.
func (t *Table) Catalog() *fields.Catalog { return t.catalog }

// Widened returns the columns recast to text under PolicyWiden, in the
// order they were widened.
func (t *Table) Widened() []string { return slices.Clone(t.widened) }

// Field returns the field with the given name.
func (t *Table) Field(name string) (Field, bool) {
	i, ok := t.index[name]
	if !ok {
		return Field{}, false
	}
	return t.fields[i], true
}

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]any, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &SchemaError{Reason: ErrUnknownField, Names: []string{name}}
	}
	return t.ColumnAt(i)
}

// ColumnAt returns a copy of the values of the i-th column.
func (t *Table) ColumnAt(i int) ([]any, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("column %d: %w", i, ErrOutOfRange)
	}
	out := make([]any, len(t.rows))
	for j, row := range t.rows {
		out[j] = row[i]
	}
	return out, nil
}

// Row returns a copy of the i-th row.
func (t *Table) Row(i int) ([]any, error) {
	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("row %d: %w", i, ErrOutOfRange)
	}
	return slices.Clone(t.rows[i]), nil
}
