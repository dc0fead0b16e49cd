// Package pgxio moves typed rows in and out of PostgreSQL with pgx.
//
// Reader turns a query result into an adapter.TypedReader whose column
// types come from the result's type OIDs. Writer is an adapter.ValueWriter
// that optionally creates the target table and streams rows with COPY in
// batches.
package pgxio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/plusplusco/rows/internal/adapter"
	"github.com/plusplusco/rows/internal/fields"
)

// DB is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// ----------------------------------------------------------------------------
// Type mapping
// ----------------------------------------------------------------------------

// TypeForOID returns the catalog type for a PostgreSQL type OID.
// Unknown OIDs map to text.
func TypeForOID(cat *fields.Catalog, oid uint32) fields.Type {
	kind := fields.KindText
	switch oid {
	case pgtype.BoolOID:
		kind = fields.KindBool
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		kind = fields.KindInteger
	case pgtype.NumericOID:
		kind = fields.KindDecimal
	case pgtype.Float4OID, pgtype.Float8OID:
		kind = fields.KindFloat
	case pgtype.DateOID:
		kind = fields.KindDate
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		kind = fields.KindDateTime
	case pgtype.UUIDOID:
		kind = fields.KindUUID
	case pgtype.ByteaOID:
		kind = fields.KindBinary
	case pgtype.JSONOID, pgtype.JSONBOID:
		kind = fields.KindJSON
	}
	if t, ok := cat.Lookup(kind.String()); ok {
		return t
	}
	return cat.Text()
}

var columnTypes = map[fields.Kind]string{
	fields.KindText:     "text",
	fields.KindBool:     "boolean",
	fields.KindInteger:  "bigint",
	fields.KindDecimal:  "numeric",
	fields.KindPercent:  "numeric",
	fields.KindFloat:    "double precision",
	fields.KindDate:     "date",
	fields.KindDateTime: "timestamptz",
	fields.KindUUID:     "uuid",
	fields.KindBinary:   "bytea",
	fields.KindJSON:     "jsonb",
}

// ColumnType returns the PostgreSQL column type used to store t.
func ColumnType(t fields.Type) string {
	if t == nil {
		return "text"
	}
	if s, ok := columnTypes[t.Kind()]; ok {
		return s
	}
	return "text"
}

// ParseIdentifier splits a possibly schema-qualified name on ".".
func ParseIdentifier(name string) (pgx.Identifier, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return pgx.Identifier(parts), nil
}

// CreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement for cols.
// Columns that never held a null are NOT NULL.
func CreateTableSQL(table pgx.Identifier, cols []adapter.Column) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(table.Sanitize())
	sb.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pgx.Identifier{c.Name}.Sanitize())
		sb.WriteByte(' ')
		sb.WriteString(ColumnType(c.Type))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// ----------------------------------------------------------------------------
// Reader
// ----------------------------------------------------------------------------

// Reader adapts pgx.Rows to adapter.TypedReader.
type Reader struct {
	rows pgx.Rows
	cols []adapter.Column
	done bool
}

var _ adapter.TypedReader = (*Reader)(nil)

// NewReader wraps rows. Column types are resolved against cat.
// The rows are closed once ReadValues returns an error or io.EOF.
func NewReader(rows pgx.Rows, cat *fields.Catalog) *Reader {
	descs := rows.FieldDescriptions()
	cols := make([]adapter.Column, len(descs))
	for i, d := range descs {
		cols[i] = adapter.Column{Name: d.Name, Type: TypeForOID(cat, d.DataTypeOID), Nullable: true}
	}
	return &Reader{rows: rows, cols: cols}
}

// Query runs sql on db and returns a Reader over the result.
func Query(ctx context.Context, db DB, cat *fields.Catalog, sql string, args ...any) (*Reader, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return NewReader(rows, cat), nil
}

// Columns returns the result columns.
func (r *Reader) Columns() ([]adapter.Column, error) {
	return r.cols, nil
}

// ReadValues returns the next row, or io.EOF.
func (r *Reader) ReadValues() ([]any, error) {
	if r.done {
		return nil, io.EOF
	}
	if !r.rows.Next() {
		r.done = true
		r.rows.Close()
		if err := r.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	values, err := r.rows.Values()
	if err != nil {
		r.done = true
		r.rows.Close()
		return nil, err
	}
	for i, v := range values {
		values[i] = fromPg(v)
	}
	return values, nil
}

// Close releases the underlying rows.
func (r *Reader) Close() {
	r.done = true
	r.rows.Close()
}

func fromPg(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		if x.NaN || x.InfinityModifier != pgtype.Finite {
			// NaN and infinities are rejected by the decimal type as floats.
			f, err := x.Float64Value()
			if err != nil || !f.Valid {
				return nil
			}
			return f.Float64
		}
		return decimal.NewFromBigInt(x.Int, x.Exp)
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		return time.Time{}.Add(time.Duration(x.Microseconds) * time.Microsecond).Format("15:04:05.999999")
	}
	return v
}

// ----------------------------------------------------------------------------
// Writer
// ----------------------------------------------------------------------------

// DefaultBatchSize is the number of rows sent per COPY.
const DefaultBatchSize = 5000

// WriterOptions configure a Writer.
type WriterOptions struct {
	// BatchSize is the number of rows buffered per COPY. Defaults to
	// DefaultBatchSize.
	BatchSize int

	// CreateTable issues CREATE TABLE IF NOT EXISTS from the header.
	CreateTable bool
}

// Writer copies native rows into a PostgreSQL table.
type Writer struct {
	ctx    context.Context
	db     DB
	table  pgx.Identifier
	opts   WriterOptions
	cols   []adapter.Column
	names  []string
	buf    [][]any
	copied int64
}

var _ adapter.ValueWriter = (*Writer)(nil)

// NewWriter returns a Writer targeting table. Pass a pgx.Tx as db to make
// the whole import atomic.
func NewWriter(ctx context.Context, db DB, table pgx.Identifier, opts WriterOptions) *Writer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Writer{ctx: ctx, db: db, table: table, opts: opts}
}

// WriteHeader records the target columns and creates the table if asked.
func (w *Writer) WriteHeader(cols []adapter.Column) error {
	if len(cols) == 0 {
		return errors.New("no columns to copy")
	}
	w.cols = cols
	w.names = adapter.Names(cols)
	w.buf = make([][]any, 0, w.opts.BatchSize)

	if w.opts.CreateTable {
		if _, err := w.db.Exec(w.ctx, CreateTableSQL(w.table, cols)); err != nil {
			return fmt.Errorf("create table %s: %w", w.table.Sanitize(), err)
		}
	}
	return nil
}

// WriteValues buffers one row, copying a batch when the buffer is full.
func (w *Writer) WriteValues(row []any) error {
	if len(row) != len(w.cols) {
		return fmt.Errorf("row has %d values, expected %d", len(row), len(w.cols))
	}
	out := make([]any, len(row))
	for i, v := range row {
		pv, err := toPg(w.cols[i], v)
		if err != nil {
			return fmt.Errorf("column %q: %w", w.cols[i].Name, err)
		}
		out[i] = pv
	}
	w.buf = append(w.buf, out)
	if len(w.buf) >= w.opts.BatchSize {
		return w.flush()
	}
	return nil
}

// Close copies any buffered rows.
func (w *Writer) Close() error {
	return w.flush()
}

// Copied returns the number of rows the database accepted.
func (w *Writer) Copied() int64 { return w.copied }

func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	n, err := w.db.CopyFrom(w.ctx, w.table, w.names, pgx.CopyFromRows(w.buf))
	w.copied += n
	if err != nil {
		return fmt.Errorf("copy into %s: %w", w.table.Sanitize(), err)
	}
	w.buf = w.buf[:0]
	return nil
}

func toPg(col adapter.Column, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return pgtype.Numeric{Int: new(big.Int).Set(x.Coefficient()), Exp: x.Exponent(), Valid: true}, nil
	case uuid.UUID:
		return [16]byte(x), nil
	}
	if col.Type != nil && col.Type.Kind() == fields.KindJSON {
		return col.Type.Serialize(v)
	}
	return v, nil
}
