// Package adapter defines the contract between the typed table and the
// format packages that read and write rows.
//
// Readers hand the table raw rows one at a time; writers receive the
// table's fields followed by serialized (or native) rows. Concrete formats
// live in the subpackages csvio, jsonio, htmlio and pgxio.
package adapter

import "github.com/plusplusco/rows/internal/fields"

// Column describes one output or typed-input column.
type Column struct {
	Name     string
	Type     fields.Type
	Nullable bool
}

// TypeName returns the column type's name, or "text" when unset.
func (c Column) TypeName() string {
	if c.Type == nil {
		return fields.KindText.String()
	}
	return c.Type.Name()
}

// Reader produces raw string rows. Read returns io.EOF after the last row.
type Reader interface {
	Header() ([]string, error)
	Read() ([]string, error)
}

// TypedReader produces native values for sources that declare column types,
// such as database result sets. ReadValues returns io.EOF after the last row.
type TypedReader interface {
	Columns() ([]Column, error)
	ReadValues() ([]any, error)
}

// Writer consumes serialized rows.
type Writer interface {
	WriteHeader(cols []Column) error
	Write(row []string) error
	Close() error
}

// ValueWriter consumes native values for sinks that keep types.
type ValueWriter interface {
	WriteHeader(cols []Column) error
	WriteValues(row []any) error
	Close() error
}

// Names returns the column names in order.
func Names(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
