package table

import (
	"fmt"
	"strings"

	"github.com/plusplusco/rows/internal/fields"
)

// Policy decides what Append does with a value that does not fit its
// column's type.
type Policy int

const (
	// PolicyReject refuses the whole row and leaves the table unchanged.
	PolicyReject Policy = iota

	// PolicyWiden recasts the failing column to text, rewriting the values
	// already stored, and keeps the row.
	PolicyWiden
)

func (p Policy) String() string {
	switch p {
	case PolicyReject:
		return "reject"
	case PolicyWiden:
		return "widen"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "reject" or "widen". An empty string is PolicyReject.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return PolicyReject, nil
	case "widen":
		return PolicyWiden, nil
	default:
		return PolicyReject, fmt.Errorf("unknown conversion policy %q (want reject or widen)", s)
	}
}

// Options configure table construction and loading.
type Options struct {
	// Catalog supplies the types. Nil builds the default catalog for Locale.
	Catalog *fields.Catalog

	// Locale is used only when Catalog is nil. The zero value means
	// fields.LocaleDefault.
	Locale fields.Locale

	// SampleSize is the number of rows used for detection. Zero means all.
	SampleSize int

	// NullValues are the raw spellings stored as null in non-text columns.
	// Nil means fields.DefaultNullValues. Text columns only treat "" as null.
	NullValues []string

	// Policy handles values that do not fit their column's type.
	Policy Policy

	// ForceTypes skips detection for the named columns.
	ForceTypes map[string]fields.Type

	// ImportFields selects and orders the columns to keep. Nil keeps all.
	ImportFields []string

	// MaxRows stops loading after this many data rows. Zero means no limit.
	MaxRows int

	// NormalizeHeader slugs every header name and makes names unique
	// instead of rejecting them.
	NormalizeHeader bool
}

// ResolveCatalog returns Catalog, or the default catalog for Locale when
// Catalog is nil. An invalid Locale is an error.
func (o Options) ResolveCatalog() (*fields.Catalog, error) {
	if o.Catalog != nil {
		return o.Catalog, nil
	}
	if o.Locale.Name == "" && o.Locale.DecimalSeparator == "" {
		return fields.DefaultCatalog(fields.LocaleDefault), nil
	}
	return fields.NewDefaultCatalog(o.Locale)
}

func (o Options) nulls() fields.NullSet {
	if o.NullValues == nil {
		return fields.NewNullSet(fields.DefaultNullValues...)
	}
	return fields.NewNullSet(o.NullValues...)
}
