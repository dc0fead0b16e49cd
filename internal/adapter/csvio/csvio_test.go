package csvio_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/adapter/csvio"
	"github.com/plusplusco/rows/internal/fields"
	"github.com/plusplusco/rows/internal/table"
)

// ----------------------------------------------------------------------------
// Stream helpers
// ----------------------------------------------------------------------------

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "invalid byte",
			input:    []byte("caf\xff,ok"),
			expected: "caf\uFFFD,ok",
		},
		{
			name:     "valid multibyte",
			input:    []byte("ação,日本"),
			expected: "ação,日本",
		},
		{
			name:     "UTF-16LE with BOM",
			input:    []byte{0xFF, 0xFE, 'a', 0, ',', 0, 'b', 0},
			expected: "a,b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(csvio.Sanitize(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestCountingReader(t *testing.T) {
	c := csvio.NewCountingReader(strings.NewReader("0123456789"))
	_, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.BytesRead())
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: `="00123"`, want: "00123"},
		{input: `=SUM`, want: "SUM"},
		{input: `"quoted"`, want: "quoted"},
		{input: `'single'`, want: "single"},
		{input: "  spaced  ", want: "spaced"},
		{input: "plain", want: "plain"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, csvio.CleanCell(tt.input))
		})
	}
}

func TestDetectComma(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rune
	}{
		{name: "comma", input: "a,b,c\n1,2,3", want: ','},
		{name: "semicolon", input: "nome;valor\nx;1,5", want: ';'},
		{name: "tab", input: "a\tb\tc", want: '\t'},
		{name: "pipe", input: "a|b", want: '|'},
		{name: "quoted commas ignored", input: `"a,b,c";"d"`, want: ';'},
		{name: "single column", input: "name\nx", want: ','},
		{name: "only first line counts", input: "a;b\n1,2,3,4,5", want: ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, csvio.DetectComma([]byte(tt.input)))
		})
	}
}

// ----------------------------------------------------------------------------
// Reader
// ----------------------------------------------------------------------------

func readAll(t *testing.T, r *csvio.Reader) [][]string {
	t.Helper()
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestReader(t *testing.T) {
	input := "\xEF\xBB\xBF id , name \n1,\"Smith, J\"\n2,\n"
	r := csvio.NewReader(strings.NewReader(input), csvio.ReaderOptions{})

	header, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, header)

	again, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, header, again, "Header is idempotent")

	assert.Equal(t, [][]string{{"1", "Smith, J"}, {"2", ""}}, readAll(t, r))
	assert.Equal(t, int64(len(input)), r.BytesRead())
}

func TestReader_ReadConsumesHeader(t *testing.T) {
	r := csvio.NewReader(strings.NewReader("a,b\n1,2\n"), csvio.ReaderOptions{})
	assert.Equal(t, [][]string{{"1", "2"}}, readAll(t, r))
}

func TestReader_Options(t *testing.T) {
	input := "code;amount\n=\"007\";\"1,5\"\n;\n# note\n008;2\n"
	r := csvio.NewReader(strings.NewReader(input), csvio.ReaderOptions{
		Comment:       '#',
		CleanCells:    true,
		SkipBlankRows: true,
	})
	assert.Equal(t, ';', r.Comma())

	_, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"007", "1,5"}, {"008", "2"}}, readAll(t, r))
}

func TestReader_Empty(t *testing.T) {
	r := csvio.NewReader(strings.NewReader(""), csvio.ReaderOptions{})
	_, err := r.Header()
	assert.ErrorIs(t, err, io.EOF)

	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_RaggedRows(t *testing.T) {
	r := csvio.NewReader(strings.NewReader("a,b\n1\n1,2,3\n"), csvio.ReaderOptions{})
	assert.Equal(t, [][]string{{"1"}, {"1", "2", "3"}}, readAll(t, r))
}

// ----------------------------------------------------------------------------
// Writer
// ----------------------------------------------------------------------------

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := csvio.NewWriter(&buf, csvio.WriterOptions{})

	require.NoError(t, w.WriteHeader([]adapter.Column{{Name: "id"}, {Name: "note"}}))
	require.NoError(t, w.Write([]string{"1", "has, comma"}))
	require.NoError(t, w.Write([]string{"2", `has "quotes"`}))
	require.NoError(t, w.Close())

	assert.Equal(t, "id,note\n1,\"has, comma\"\n2,\"has \"\"quotes\"\"\"\n", buf.String())
}

func TestWriter_Options(t *testing.T) {
	var buf bytes.Buffer
	w := csvio.NewWriter(&buf, csvio.WriterOptions{Comma: ';', UseCRLF: true, BOM: true})

	require.NoError(t, w.WriteHeader([]adapter.Column{{Name: "a"}, {Name: "b"}}))
	require.NoError(t, w.Write([]string{"1,5", "2"}))
	require.NoError(t, w.Close())

	assert.Equal(t, "\uFEFFa;b\r\n1,5;2\r\n", buf.String())
}

// ----------------------------------------------------------------------------
// Through a table
// ----------------------------------------------------------------------------

func TestRoundTripThroughTable(t *testing.T) {
	input := "id,price,paid,day\n1,9.99,true,2024-01-15\n2,,false,2024-02-29\n3,100,true,\n"

	tbl, report, err := table.Load(context.Background(),
		csvio.NewReader(strings.NewReader(input), csvio.ReaderOptions{}), table.Options{})
	require.NoError(t, err)
	assert.Empty(t, report.FailedRows)
	assert.Equal(t, 3, report.Loaded)

	var buf bytes.Buffer
	require.NoError(t, tbl.Export(csvio.NewWriter(&buf, csvio.WriterOptions{})))
	assert.Equal(t, input, buf.String())
}

func TestLocaleCSV(t *testing.T) {
	input := "produto;preço;data\nCafé;R$ 1.234,50;31/12/2024\nPão;2,5;01/01/2025\n"

	tbl, _, err := table.Load(context.Background(),
		csvio.NewReader(strings.NewReader(input), csvio.ReaderOptions{}),
		table.Options{Locale: fields.LocalePtBR, NormalizeHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"produto", "preco", "data"}, tbl.FieldNames())

	var buf bytes.Buffer
	require.NoError(t, tbl.Export(csvio.NewWriter(&buf, csvio.WriterOptions{Comma: ';'})))
	assert.Equal(t, "produto;preco;data\nCafé;1234,5;2024-12-31\nPão;2,5;2025-01-01\n", buf.String())
}
