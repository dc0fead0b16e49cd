package table

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/fields"
)

var catalog = fields.DefaultCatalog(fields.LocaleDefault)

func typeOf(t *testing.T, tbl *Table, name string) string {
	t.Helper()
	f, ok := tbl.Field(name)
	require.True(t, ok, "field %q", name)
	return f.Type.Name()
}

func column(t *testing.T, tbl *Table, name string) []any {
	t.Helper()
	values, err := tbl.Column(name)
	require.NoError(t, err)
	return values
}

func exported(t *testing.T, tbl *Table) [][]string {
	t.Helper()
	var out [][]string
	for row, err := range tbl.ExportRows() {
		require.NoError(t, err)
		out = append(out, row)
	}
	return out
}

// sameValue compares stored values by meaning (time zones, decimal exponents).
func sameValue(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	default:
		return assert.ObjectsAreEqual(a, b)
	}
}

// ----------------------------------------------------------------------------
// Scenarios
// ----------------------------------------------------------------------------

func TestNew_Scenarios(t *testing.T) {
	t.Run("integers", func(t *testing.T) {
		tbl, err := New([]string{"n"}, [][]string{{"1"}, {"2"}, {"3"}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "integer", typeOf(t, tbl, "n"))
		assert.Equal(t, []any{int64(1), int64(2), int64(3)}, column(t, tbl, "n"))
	})

	t.Run("one decimal widens the column", func(t *testing.T) {
		tbl, err := New([]string{"n"}, [][]string{{"1"}, {"2.5"}, {"3"}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "decimal", typeOf(t, tbl, "n"))
		values := column(t, tbl, "n")
		assert.True(t, decimal.RequireFromString("2.5").Equal(values[1].(decimal.Decimal)))
	})

	t.Run("case insensitive bools", func(t *testing.T) {
		tbl, err := New([]string{"b"}, [][]string{{"true"}, {"false"}, {"TRUE"}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "bool", typeOf(t, tbl, "b"))
		assert.Equal(t, []any{true, false, true}, column(t, tbl, "b"))
	})

	t.Run("bad date falls back to verbatim text", func(t *testing.T) {
		tbl, err := New([]string{"d"}, [][]string{{"2020-01-01"}, {"not-a-date"}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "text", typeOf(t, tbl, "d"))
		assert.Equal(t, []any{"2020-01-01", "not-a-date"}, column(t, tbl, "d"))
	})

	t.Run("append to integer and text", func(t *testing.T) {
		tbl, err := NewWithFields([]Field{
			{Name: "qty", Type: catalog.MustLookup("integer")},
			{Name: "note", Type: catalog.MustLookup("text")},
		}, Options{})
		require.NoError(t, err)

		require.NoError(t, tbl.AppendStrings([]string{"10", "abc"}))

		err = tbl.AppendStrings([]string{"x", "abc"})
		var convErr *fields.ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, "qty", convErr.Field)
		assert.Equal(t, "integer", convErr.Type)
		assert.Equal(t, 1, tbl.Len())
	})
}

func TestNew_NullHandling(t *testing.T) {
	t.Run("single empty value is text", func(t *testing.T) {
		tbl, err := New([]string{"v"}, [][]string{{""}}, Options{})
		require.NoError(t, err)
		f, _ := tbl.Field("v")
		assert.Equal(t, "text", f.Type.Name())
		assert.True(t, f.Nullable)
		assert.Equal(t, []any{nil}, column(t, tbl, "v"))
	})

	t.Run("all-null column accepts later values", func(t *testing.T) {
		tbl, err := New([]string{"id", "note"}, [][]string{{"1", ""}, {"2", "NULL"}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "text", typeOf(t, tbl, "note"))

		require.NoError(t, tbl.AppendStrings([]string{"3", "maybe"}))
		assert.Equal(t, []any{nil, "NULL", "maybe"}, column(t, tbl, "note"))
		assert.Empty(t, tbl.Widened())
	})

	t.Run("empty value among integers is null", func(t *testing.T) {
		tbl, err := New([]string{"v"}, [][]string{{"1"}, {""}, {"NULL"}, {"3"}}, Options{})
		require.NoError(t, err)
		f, _ := tbl.Field("v")
		assert.Equal(t, "integer", f.Type.Name())
		assert.True(t, f.Nullable)
		assert.Equal(t, []any{int64(1), nil, nil, int64(3)}, column(t, tbl, "v"))
	})

	t.Run("null words stay verbatim in text", func(t *testing.T) {
		tbl, err := New([]string{"v"}, [][]string{{"abc"}, {"n/a"}, {""}}, Options{})
		require.NoError(t, err)
		assert.Equal(t, []any{"abc", "n/a", nil}, column(t, tbl, "v"))
	})

	t.Run("custom null values", func(t *testing.T) {
		tbl, err := New([]string{"v"}, [][]string{{"1"}, {"?"}}, Options{NullValues: []string{"?"}})
		require.NoError(t, err)
		assert.Equal(t, "integer", typeOf(t, tbl, "v"))
		assert.Equal(t, []any{int64(1), nil}, column(t, tbl, "v"))
	})
}

func TestNew_Locale(t *testing.T) {
	tbl, err := New(
		[]string{"valor", "data"},
		[][]string{{"1.234,50", "31/12/2024"}, {"2,5", "01/01/2025"}},
		Options{Locale: fields.LocalePtBR},
	)
	require.NoError(t, err)
	assert.Equal(t, "decimal", typeOf(t, tbl, "valor"))
	assert.Equal(t, "date", typeOf(t, tbl, "data"))

	rows := exported(t, tbl)
	assert.Equal(t, []string{"1234,5", "2024-12-31"}, rows[0])
}

func TestNew_InvalidLocale(t *testing.T) {
	// No decimal separator and no bool words.
	opts := Options{Locale: fields.Locale{
		Name:           "fr_FR",
		GroupSeparator: " ",
		DateLayouts:    []string{"02/01/2006"},
	}}

	tests := []struct {
		name string
		run  func() error
	}{
		{"New", func() error {
			_, err := New([]string{"amount"}, [][]string{{"123"}, {"45"}}, opts)
			return err
		}},
		{"NewWithFields", func() error {
			_, err := NewWithFields([]Field{{Name: "amount"}}, opts)
			return err
		}},
		{"Load", func() error {
			_, _, err := Load(context.Background(), &sliceReader{header: []string{"amount"}, rows: [][]string{{"123"}}}, opts)
			return err
		}},
		{"LoadTyped", func() error {
			_, _, err := LoadTyped(context.Background(), &typedReader{cols: []adapter.Column{{Name: "amount"}}}, opts)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "decimal separator")
		})
	}

	t.Run("valid custom locale", func(t *testing.T) {
		l := fields.LocaleDeDE.Clone()
		l.Name = "de_AT"
		tbl, err := New([]string{"amount"}, [][]string{{"123"}, {"4,5"}}, Options{Locale: l})
		require.NoError(t, err)
		assert.Equal(t, "decimal", typeOf(t, tbl, "amount"))
		assert.Equal(t, "123", column(t, tbl, "amount")[0].(decimal.Decimal).String())
	})
}

// ----------------------------------------------------------------------------
// Schema
// ----------------------------------------------------------------------------

func TestNew_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		opts   Options
		reason error
		names  []string
	}{
		{name: "empty header", header: nil, reason: ErrEmptyHeader},
		{name: "empty name", header: []string{"a", " "}, reason: ErrEmptyName, names: []string{"#2"}},
		{name: "duplicate name", header: []string{"a", "b", "a"}, reason: ErrDuplicateName, names: []string{"a"}},
		{
			name:   "unknown import field",
			header: []string{"a", "b"},
			opts:   Options{ImportFields: []string{"b", "c"}},
			reason: ErrUnknownField,
			names:  []string{"c"},
		},
		{
			name:   "repeated import field",
			header: []string{"a", "b"},
			opts:   Options{ImportFields: []string{"a", "a"}},
			reason: ErrDuplicateName,
			names:  []string{"a"},
		},
		{
			name:   "unknown forced field",
			header: []string{"a"},
			opts:   Options{ForceTypes: map[string]fields.Type{"z": fields.NewText(), "y": fields.NewText()}},
			reason: ErrUnknownField,
			names:  []string{"y", "z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := New(tt.header, nil, tt.opts)
			assert.Nil(t, tbl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.reason))

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.names, schemaErr.Names)
		})
	}
}

func TestNew_SampleRowFailureIsFatal(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]string{{"1", "2"}, {"3"}}, Options{})
	var shapeErr *RowShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 2, shapeErr.Want)
	assert.Equal(t, 1, shapeErr.Got)
	assert.Contains(t, err.Error(), "sample row 2")
}

func TestNew_NormalizeHeader(t *testing.T) {
	tbl, err := New(
		[]string{"Preço Unitário", "preco unitario", "", "1st Place", "Ação"},
		[][]string{{"1", "2", "3", "4", "5"}},
		Options{NormalizeHeader: true, ImportFields: []string{"Ação", "Preço Unitário", "field_3"}},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"acao", "preco_unitario", "field_3"}, tbl.FieldNames())
	assert.Equal(t, []any{int64(5), int64(1), int64(3)}, mustRow(t, tbl, 0))
}

func TestNew_ForceTypes(t *testing.T) {
	tbl, err := New(
		[]string{"code", "payload"},
		[][]string{{"1", `{"a":1}`}, {"2", `[1,2]`}},
		Options{ForceTypes: map[string]fields.Type{
			"code":    catalog.Text(),
			"payload": catalog.MustLookup("json"),
		}},
	)
	require.NoError(t, err)
	assert.Equal(t, "text", typeOf(t, tbl, "code"))
	assert.Equal(t, "json", typeOf(t, tbl, "payload"))
	assert.Equal(t, []any{"1", "2"}, column(t, tbl, "code"))

	rows := exported(t, tbl)
	assert.Equal(t, []string{"1", `{"a":1}`}, rows[0])
	assert.Equal(t, []string{"2", `[1,2]`}, rows[1])
}

func TestNew_MaxRows(t *testing.T) {
	tbl, err := New([]string{"n"}, [][]string{{"1"}, {"2"}, {"x"}}, Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "integer", typeOf(t, tbl, "n"))
}

func TestNew_SampleSizeLimitsDetection(t *testing.T) {
	_, err := New([]string{"n"}, [][]string{{"1"}, {"2"}, {"x"}}, Options{SampleSize: 2})
	var convErr *fields.ConversionError
	require.ErrorAs(t, err, &convErr, "the third row is outside the detection sample")
}

func TestNewWithFields(t *testing.T) {
	tbl, err := NewWithFields([]Field{{Name: "a"}, {Name: "b", Type: catalog.MustLookup("bool")}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "text", typeOf(t, tbl, "a"))
	assert.Equal(t, 0, tbl.Len())

	_, err = NewWithFields([]Field{{Name: "a"}, {Name: "a"}}, Options{})
	assert.ErrorIs(t, err, ErrDuplicateName)

	tbl, err = NewWithFields([]Field{{Name: "A b"}, {Name: "a_b"}}, Options{NormalizeHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b", "a_b_2"}, tbl.FieldNames())
}

// ----------------------------------------------------------------------------
// Append
// ----------------------------------------------------------------------------

func TestAppend_RowShape(t *testing.T) {
	tbl, err := New([]string{"a", "b"}, nil, Options{})
	require.NoError(t, err)

	err = tbl.AppendStrings([]string{"1", "2", "3"})
	var shapeErr *RowShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "row has 3 values, expected 2", err.Error())
	assert.Equal(t, 0, tbl.Len())
}

func TestAppend_NativeValues(t *testing.T) {
	tbl, err := NewWithFields([]Field{
		{Name: "n", Type: catalog.MustLookup("integer")},
		{Name: "d", Type: catalog.MustLookup("date")},
	}, Options{})
	require.NoError(t, err)

	require.NoError(t, tbl.Append([]any{int32(7), time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)}))
	require.NoError(t, tbl.Append([]any{nil, "2024-05-02"}))

	assert.Equal(t, [][]string{{"7", "2024-05-01"}, {"", "2024-05-02"}}, exported(t, tbl))

	f, _ := tbl.Field("n")
	assert.True(t, f.Nullable)
}

func TestAppend_RejectIsAtomic(t *testing.T) {
	tbl, err := New([]string{"a", "b"}, [][]string{{"1", "2"}}, Options{Policy: PolicyReject})
	require.NoError(t, err)

	err = tbl.AppendStrings([]string{"", "nope"})
	require.Error(t, err)

	assert.Equal(t, 1, tbl.Len())
	f, _ := tbl.Field("a")
	assert.False(t, f.Nullable, "a rejected row leaves no trace")
	assert.Empty(t, tbl.Widened())
}

func TestAppend_WidenRecastsColumn(t *testing.T) {
	tbl, err := New(
		[]string{"id", "amount"},
		[][]string{{"1", "10.5"}, {"2", ""}},
		Options{Policy: PolicyWiden},
	)
	require.NoError(t, err)
	require.Equal(t, "decimal", typeOf(t, tbl, "amount"))

	before := tbl.ExportRows()

	require.NoError(t, tbl.AppendStrings([]string{"3", "abc"}))
	assert.Equal(t, "text", typeOf(t, tbl, "amount"))
	assert.Equal(t, "integer", typeOf(t, tbl, "id"))
	assert.Equal(t, []string{"amount"}, tbl.Widened())
	assert.Equal(t, []any{"10.5", nil, "abc"}, column(t, tbl, "amount"))

	require.NoError(t, tbl.AppendStrings([]string{"4", "def"}))
	assert.Equal(t, []string{"amount"}, tbl.Widened(), "a column is reported once")

	// The snapshot taken before widening still serializes with the old types.
	var snap [][]string
	for row, err := range before {
		require.NoError(t, err)
		snap = append(snap, row)
	}
	assert.Equal(t, [][]string{{"1", "10.5"}, {"2", ""}}, snap)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("WIDEN")
	require.NoError(t, err)
	assert.Equal(t, PolicyWiden, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	_, err = ParsePolicy("coerce")
	assert.Error(t, err)

	assert.Equal(t, "widen", PolicyWiden.String())
}

// ----------------------------------------------------------------------------
// Export
// ----------------------------------------------------------------------------

func mustRow(t *testing.T, tbl *Table, i int) []any {
	t.Helper()
	row, err := tbl.Row(i)
	require.NoError(t, err)
	return row
}

func mixedTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		[]string{"id", "price", "rate", "score", "active", "day", "at", "note"},
		[][]string{
			{"1", "9.99", "12.5%", "1e3", "yes", "2024-01-15", "2024-01-15T10:30:00Z", "first"},
			{"2", "", "0%", "2.5", "no", "2024-02-29", "2024-01-15 11:00:00", ""},
			{"3", "100", "-3%", "-0.001", "TRUE", "", "2024-03-01T00:00:00+02:00", "n/a"},
		},
		Options{},
	)
	require.NoError(t, err)
	return tbl
}

func TestExportRows_Idempotent(t *testing.T) {
	tbl := mixedTable(t)
	assert.Equal(t,
		[]string{"integer", "decimal", "percent", "float", "bool", "date", "datetime", "text"},
		[]string{
			typeOf(t, tbl, "id"), typeOf(t, tbl, "price"), typeOf(t, tbl, "rate"), typeOf(t, tbl, "score"),
			typeOf(t, tbl, "active"), typeOf(t, tbl, "day"), typeOf(t, tbl, "at"), typeOf(t, tbl, "note"),
		})

	again, err := NewWithFields(tbl.Fields(), Options{})
	require.NoError(t, err)
	for _, row := range exported(t, tbl) {
		require.NoError(t, again.AppendStrings(row))
	}

	require.Equal(t, tbl.Len(), again.Len())
	assert.Equal(t, tbl.FieldNames(), again.FieldNames())
	for i := 0; i < tbl.Len(); i++ {
		want, got := mustRow(t, tbl, i), mustRow(t, again, i)
		for j := range want {
			assert.True(t, sameValue(want[j], got[j]), "row %d col %d: %v != %v", i, j, want[j], got[j])
		}
	}
	assert.Equal(t, exported(t, tbl), exported(t, again))
}

func TestExportRows_RedetectsSameTypes(t *testing.T) {
	tbl, err := New(
		[]string{"id", "price", "active", "day", "note"},
		[][]string{
			{"1", "9.99", "yes", "2024-01-15", "first"},
			{"2", "10", "no", "2024-02-29", "second"},
		},
		Options{},
	)
	require.NoError(t, err)

	again, err := New(tbl.FieldNames(), exported(t, tbl), Options{})
	require.NoError(t, err)
	for _, f := range tbl.Fields() {
		assert.Equal(t, f.Type.Name(), typeOf(t, again, f.Name), f.Name)
	}
}

func TestExportRows_Restartable(t *testing.T) {
	tbl := mixedTable(t)
	seq := tbl.ExportRows()

	var first, second int
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, 3, first)
	assert.Equal(t, 3, second)

	// Appends after the call are not part of the snapshot.
	require.NoError(t, tbl.AppendStrings([]string{"4", "1", "1%", "1", "no", "2024-01-01", "2024-01-01", "x"}))
	n := 0
	for range seq {
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 4, tbl.Len())
}

func TestExportRows_EarlyBreak(t *testing.T) {
	tbl := mixedTable(t)
	n := 0
	for range tbl.ExportRows() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

// ----------------------------------------------------------------------------
// Slice and Project
// ----------------------------------------------------------------------------

func TestSlice(t *testing.T) {
	tbl := mixedTable(t)

	part, err := tbl.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, part.Len())
	assert.Equal(t, tbl.Fields(), part.Fields())
	assert.Equal(t, mustRow(t, tbl, 1), mustRow(t, part, 0))

	empty, err := tbl.Slice(3, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	for _, bounds := range [][2]int{{-1, 1}, {2, 1}, {0, 4}} {
		_, err := tbl.Slice(bounds[0], bounds[1])
		assert.ErrorIs(t, err, ErrOutOfRange, "%v", bounds)
	}

	// The slice is independent of the source.
	require.NoError(t, part.AppendStrings([]string{"9", "1", "1%", "1", "no", "", "", ""}))
	assert.Equal(t, 3, tbl.Len())
}

func TestProject(t *testing.T) {
	tbl := mixedTable(t)

	p, err := tbl.Project("note", "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"note", "id"}, p.FieldNames())
	assert.Equal(t, []any{"first", int64(1)}, mustRow(t, p, 0))
	assert.Equal(t, [][]string{{"first", "1"}, {"", "2"}, {"n/a", "3"}}, exported(t, p))

	_, err = tbl.Project("id", "missing")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = tbl.Project("id", "id")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = tbl.Project()
	assert.ErrorIs(t, err, ErrEmptyHeader)
}

func TestReadAccess(t *testing.T) {
	tbl := mixedTable(t)

	_, err := tbl.Column("missing")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = tbl.ColumnAt(8)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = tbl.Row(3)
	assert.ErrorIs(t, err, ErrOutOfRange)

	ids, err := tbl.ColumnAt(0)
	require.NoError(t, err)
	ids[0] = "changed"
	assert.Equal(t, int64(1), mustRow(t, tbl, 0)[0], "columns are copies")

	flds := tbl.Fields()
	flds[0].Name = "changed"
	assert.Equal(t, "id", tbl.FieldNames()[0], "fields are copies")

	cols := tbl.Columns()
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "integer", cols[0].TypeName())
	assert.True(t, cols[1].Nullable)
}

// ----------------------------------------------------------------------------
// Header
// ----------------------------------------------------------------------------

func TestSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Name", want: "name"},
		{input: "  First Name  ", want: "first_name"},
		{input: "Preço Unitário (R$)", want: "preco_unitario_r"},
		{input: "e-mail", want: "e_mail"},
		{input: "__x__", want: "x"},
		{input: "Straße", want: "stra_e"},
		{input: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.input))
		})
	}
}

func TestMakeHeader(t *testing.T) {
	got := MakeHeader([]string{"Name", "name", "NAME", "", "2024", "name_2"})
	assert.Equal(t, []string{"name", "name_2", "name_3", "field_4", "field_2024", "name_2_2"}, got)
}
