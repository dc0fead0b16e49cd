// Package fields provides the semantic type catalog used to infer, convert
// and re-emit tabular values.
//
// Each supported semantic type is a [Type]: a small value with a stable name
// and three conversion functions.
//
//   - Recognize reports whether a raw string is a natural spelling of the type.
//     It never fails and never panics.
//   - Deserialize turns a raw string (or an already-native Go value coming
//     from a driver) into the type's Go representation.
//   - Serialize turns a value back into a canonical string that Recognize
//     accepts and Deserialize maps to an equal value.
//
// # Catalog
//
// Types are grouped into an explicit [Catalog] value. The catalog order is
// the precedence order used by type detection: more specific types first,
// Text last. Binary and JSON are registered as opt-in types: they can be
// looked up by name and forced onto columns, but they are never inferred
// from plain strings.
//
//	cat := fields.DefaultCatalog(fields.LocalePtBR)
//	v, err := cat.MustLookup("decimal").Deserialize("1.234,5")
//
// # Locale
//
// Decimal separators, digit grouping, date layouts and boolean words are
// configuration data carried by [Locale]. Switching profile never requires a
// change to type logic.
//
// # Values
//
// Null is represented by nil for every type. The Go representations are:
//
//	bool      bool
//	integer   int64
//	decimal   decimal.Decimal
//	percent   decimal.Decimal (fraction: "12.5%" is 0.125)
//	float     float64
//	date      time.Time (midnight UTC)
//	datetime  time.Time
//	uuid      uuid.UUID
//	text      string
//	binary    []byte
//	json      any (numbers as json.Number)
package fields
