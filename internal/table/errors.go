package table

import (
	"errors"
	"fmt"
	"strings"
)

// Schema error reasons. Match them with errors.Is on a *SchemaError.
var (
	ErrEmptyHeader   = errors.New("header is empty")
	ErrEmptyName     = errors.New("field name is empty")
	ErrDuplicateName = errors.New("duplicate field name")
	ErrUnknownField  = errors.New("unknown field")
)

// ErrOutOfRange is returned for row or column indexes outside the table.
var ErrOutOfRange = errors.New("index out of range")

// SchemaError reports a structural problem found while building a table.
type SchemaError struct {
	Reason error
	Names  []string
}

func (e *SchemaError) Error() string {
	if len(e.Names) == 0 {
		return "schema: " + e.Reason.Error()
	}
	return fmt.Sprintf("schema: %s: %s", e.Reason, strings.Join(e.Names, ", "))
}

func (e *SchemaError) Unwrap() error {
	return e.Reason
}

// RowShapeError reports a row whose length does not match the field count.
type RowShapeError struct {
	Want int
	Got  int
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("row has %d values, expected %d", e.Got, e.Want)
}
