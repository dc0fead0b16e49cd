// Package detect picks the most specific type that fits every sampled value
// of a column.
//
// Detection is a widening intersection over the catalog's inferable types:
// a candidate survives only while every non-null sample recognizes it, and
// the first survivor in precedence order wins. Text recognizes everything,
// so detection always resolves.
package detect

import "github.com/plusplusco/rows/internal/fields"

// Options control detection.
type Options struct {
	// Catalog supplies the candidate types. Nil means the default catalog
	// for the default locale.
	Catalog *fields.Catalog

	// Nulls are the raw spellings skipped during detection. Blank strings
	// are always skipped.
	Nulls fields.NullSet

	// SampleSize caps the number of non-null values inspected per column.
	// Zero or negative inspects every value.
	SampleSize int

	// Skip lists column indexes whose type is already known. Columns leaves
	// their Result zero-valued.
	Skip map[int]bool
}

// Result is the outcome of detecting one column.
type Result struct {
	Type     fields.Type
	Nullable bool
	Sampled  int // non-null values inspected
	Nulls    int // null values seen before the sample filled up
}

func (o Options) catalog() *fields.Catalog {
	if o.Catalog != nil {
		return o.Catalog
	}
	return fields.DefaultCatalog(fields.LocaleDefault)
}

// Column detects the type of a single column.
func Column(values []string, opts Options) Result {
	return column(values, opts, opts.catalog())
}

func column(values []string, opts Options, catalog *fields.Catalog) Result {
	candidates := catalog.Inferable()
	res := Result{}

	for _, v := range values {
		if opts.SampleSize > 0 && res.Sampled >= opts.SampleSize {
			break
		}
		if opts.Nulls.Contains(v) {
			res.Nulls++
			continue
		}
		res.Sampled++

		// Keep only the candidates that recognize v, preserving order.
		kept := candidates[:0]
		for _, t := range candidates {
			if t.Recognize(v) {
				kept = append(kept, t)
			}
		}
		candidates = kept
	}

	switch {
	case res.Sampled == 0:
		// Nothing to test against; every candidate would win vacuously.
		res.Type = catalog.Text()
	case len(candidates) == 0:
		// Unreachable with a valid catalog; text recognizes everything.
		res.Type = catalog.Text()
	default:
		res.Type = candidates[0]
	}
	res.Nullable = res.Nulls > 0 || res.Sampled == 0
	return res
}

// Columns detects every column of a header/rows sample. Short rows are
// padded with nulls and values beyond the header are ignored.
func Columns(header []string, rows [][]string, opts Options) []Result {
	catalog := opts.catalog()
	results := make([]Result, len(header))
	values := make([]string, len(rows))

	for i := range header {
		if opts.Skip[i] {
			continue
		}
		for r, row := range rows {
			if i < len(row) {
				values[r] = row[i]
			} else {
				values[r] = ""
			}
		}
		results[i] = column(values, opts, catalog)
	}
	return results
}
