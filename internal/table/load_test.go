package table

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/fields"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

type sliceReader struct {
	header []string
	rows   [][]string
	err    error // returned instead of io.EOF once rows run out
	reads  int
}

func (r *sliceReader) Header() ([]string, error) {
	if r.header == nil {
		return nil, io.EOF
	}
	return r.header, nil
}

func (r *sliceReader) Read() ([]string, error) {
	if r.reads >= len(r.rows) {
		if r.err != nil {
			return nil, r.err
		}
		return nil, io.EOF
	}
	r.reads++
	return r.rows[r.reads-1], nil
}

type typedReader struct {
	cols []adapter.Column
	rows [][]any
	next int
}

func (r *typedReader) Columns() ([]adapter.Column, error) { return r.cols, nil }

func (r *typedReader) ReadValues() ([]any, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	r.next++
	return r.rows[r.next-1], nil
}

type recordingWriter struct {
	cols   []adapter.Column
	rows   [][]string
	values [][]any
	closed bool
	failAt int
}

func (w *recordingWriter) WriteHeader(cols []adapter.Column) error {
	w.cols = cols
	return nil
}

func (w *recordingWriter) Write(row []string) error {
	if w.failAt > 0 && len(w.rows)+1 == w.failAt {
		return errors.New("disk full")
	}
	w.rows = append(w.rows, row)
	return nil
}

func (w *recordingWriter) WriteValues(row []any) error {
	w.values = append(w.values, row)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

// ----------------------------------------------------------------------------
// Load
// ----------------------------------------------------------------------------

func loadSource() *sliceReader {
	return &sliceReader{
		header: []string{"id", "price", "when"},
		rows: [][]string{
			{"1", "9.99", "2024-01-01"},
			{"2", "10", "2024-01-02"},
			{"3", "oops", "2024-01-03"},
			{"4", "5"},
			{"5", "7.5", ""},
		},
	}
}

func TestLoad_Reject(t *testing.T) {
	tbl, report, err := Load(context.Background(), loadSource(), Options{SampleSize: 2})
	require.NoError(t, err)

	assert.Equal(t, "decimal", typeOf(t, tbl, "price"))
	assert.Equal(t, 3, tbl.Len())

	assert.Equal(t, 5, report.TotalRows)
	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.FailedRows, 2)

	assert.Equal(t, 4, report.FailedRows[0].Line)
	assert.Contains(t, report.FailedRows[0].Reason, `price: cannot convert "oops" to decimal`)
	assert.Equal(t, []string{"3", "oops", "2024-01-03"}, report.FailedRows[0].Data)

	assert.Equal(t, 5, report.FailedRows[1].Line)
	assert.Equal(t, "row has 2 values, expected 3", report.FailedRows[1].Reason)

	assert.Empty(t, report.Widened)
}

func TestLoad_Widen(t *testing.T) {
	tbl, report, err := Load(context.Background(), loadSource(), Options{SampleSize: 2, Policy: PolicyWiden})
	require.NoError(t, err)

	assert.Equal(t, "text", typeOf(t, tbl, "price"))
	assert.Equal(t, []string{"price"}, report.Widened)
	assert.Equal(t, 4, report.Loaded)
	require.Len(t, report.FailedRows, 1)
	assert.Equal(t, []any{"9.99", "10", "oops", "7.5"}, column(t, tbl, "price"))
}

func TestLoad_FullSampleDetectsEverything(t *testing.T) {
	tbl, report, err := Load(context.Background(), loadSource(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "text", typeOf(t, tbl, "price"))
	assert.Equal(t, 4, report.Loaded)
}

func TestLoad_MaxRows(t *testing.T) {
	src := loadSource()
	tbl, report, err := Load(context.Background(), src, Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 2, src.reads)
}

func TestLoad_ImportFields(t *testing.T) {
	tbl, _, err := Load(context.Background(), loadSource(), Options{
		ImportFields: []string{"when", "id"},
		MaxRows:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"when", "id"}, tbl.FieldNames())
	assert.Equal(t, "date", typeOf(t, tbl, "when"))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("no header", func(t *testing.T) {
		_, _, err := Load(context.Background(), &sliceReader{}, Options{})
		assert.ErrorIs(t, err, ErrEmptyHeader)
	})

	t.Run("duplicate header", func(t *testing.T) {
		_, _, err := Load(context.Background(), &sliceReader{header: []string{"a", "a"}}, Options{})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("read error", func(t *testing.T) {
		src := loadSource()
		src.err = errors.New("bare quote")
		_, _, err := Load(context.Background(), src, Options{SampleSize: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read line 7: bare quote")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := Load(ctx, loadSource(), Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadTyped(t *testing.T) {
	cat := fields.DefaultCatalog(fields.LocaleDefault)
	src := &typedReader{
		cols: []adapter.Column{
			{Name: "id", Type: cat.MustLookup("integer")},
			{Name: "name"},
			{Name: "score", Type: cat.MustLookup("float"), Nullable: true},
		},
		rows: [][]any{
			{int32(1), "a", 1.5},
			{int64(2), nil, nil},
			{"x", "c", 2.0},
			{int64(4), "d"},
		},
	}

	tbl, report, err := LoadTyped(context.Background(), src, Options{})
	require.NoError(t, err)

	assert.Equal(t, "integer", typeOf(t, tbl, "id"))
	assert.Equal(t, "text", typeOf(t, tbl, "name"))
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []any{int64(2), nil, nil}, mustRow(t, tbl, 1))

	assert.Equal(t, 4, report.TotalRows)
	require.Len(t, report.FailedRows, 2)
	assert.Equal(t, 3, report.FailedRows[0].Line)
	assert.Equal(t, []string{"x", "c", "2"}, report.FailedRows[0].Data)
	assert.Equal(t, 4, report.FailedRows[1].Line)

	f, _ := tbl.Field("score")
	assert.True(t, f.Nullable)
}

func TestLoadTyped_ForceTypes(t *testing.T) {
	src := &typedReader{
		cols: []adapter.Column{{Name: "code", Type: fields.NewInteger(fields.LocaleDefault)}},
		rows: [][]any{{int64(7)}},
	}
	tbl, _, err := LoadTyped(context.Background(), src, Options{
		ForceTypes: map[string]fields.Type{"code": fields.NewText()},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"7"}, column(t, tbl, "code"))
}

// ----------------------------------------------------------------------------
// Export to writers
// ----------------------------------------------------------------------------

func TestExport(t *testing.T) {
	tbl, err := New([]string{"n", "s"}, [][]string{{"1", "a"}, {"2", ""}}, Options{})
	require.NoError(t, err)

	w := &recordingWriter{}
	require.NoError(t, tbl.Export(w))
	assert.Equal(t, []string{"n", "s"}, adapter.Names(w.cols))
	assert.Equal(t, [][]string{{"1", "a"}, {"2", ""}}, w.rows)
	assert.True(t, w.closed)

	w = &recordingWriter{failAt: 2}
	err = tbl.Export(w)
	assert.EqualError(t, err, "write row 2: disk full")
	assert.False(t, w.closed)
}

func TestExportValues(t *testing.T) {
	tbl, err := New([]string{"n", "s"}, [][]string{{"1", "a"}, {"2", ""}}, Options{})
	require.NoError(t, err)

	w := &recordingWriter{}
	require.NoError(t, tbl.ExportValues(w))
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, w.values)
	assert.True(t, w.closed)

	w.values[0][0] = "changed"
	assert.Equal(t, int64(1), mustRow(t, tbl, 0)[0], "writers get copies")
}
