package fields

import (
	"fmt"
	"strings"
)

// Kind identifies one of the closed set of semantic types.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindInteger
	KindDecimal
	KindPercent
	KindFloat
	KindDate
	KindDateTime
	KindUUID
	KindBinary
	KindJSON
)

var kindNames = [...]string{
	KindText:     "text",
	KindBool:     "bool",
	KindInteger:  "integer",
	KindDecimal:  "decimal",
	KindPercent:  "percent",
	KindFloat:    "float",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindUUID:     "uuid",
	KindBinary:   "binary",
	KindJSON:     "json",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the Kind with the given name (case-insensitive).
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindText, false
}

// Type is a semantic type descriptor.
//
// Implementations are stateless apart from their locale configuration and
// are safe for concurrent use.
type Type interface {
	// Name is the unique catalog name, e.g. "integer".
	Name() string

	// Kind is the closed-set identifier of the type.
	Kind() Kind

	// Recognize reports whether raw is a natural spelling of the type.
	Recognize(raw string) bool

	// Deserialize converts a raw string or native value into the type's
	// Go representation. nil stays nil.
	Deserialize(raw any) (any, error)

	// Serialize converts a value of the type into its canonical string.
	// nil serializes to "".
	Serialize(v any) (string, error)
}

// ConversionError reports a value that does not fit a type.
type ConversionError struct {
	Type   string // Type name
	Field  string // Column name, filled in by the table when known
	Value  any    // Offending value
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	if e.Field != "" {
		fmt.Fprintf(&b, "%s: ", e.Field)
	}
	fmt.Fprintf(&b, "cannot convert %s to %s", describe(e.Value), e.Type)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func describe(v any) string {
	switch x := v.(type) {
	case string:
		if len(x) > 64 {
			x = x[:64] + "..."
		}
		return fmt.Sprintf("%q", x)
	case []byte:
		return fmt.Sprintf("%d bytes", len(x))
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T(%v)", v, v)
	}
}

func conversionError(t Type, v any, reason string) *ConversionError {
	return &ConversionError{Type: t.Name(), Value: v, Reason: reason}
}

func wrapConversion(t Type, v any, err error) *ConversionError {
	return &ConversionError{Type: t.Name(), Value: v, Reason: err.Error(), Err: err}
}

// DefaultNullValues are the raw spellings treated as null when no other set
// is configured. Matching is case-insensitive and ignores surrounding space.
var DefaultNullValues = []string{"", "-", "null", "none", "nil", "n/a", "na"}

// NullSet is a set of raw strings treated as null.
type NullSet map[string]struct{}

// NewNullSet builds a NullSet. The empty string is always a member.
func NewNullSet(values ...string) NullSet {
	s := make(NullSet, len(values)+1)
	s[""] = struct{}{}
	for _, v := range values {
		s[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return s
}

// Contains reports whether raw is a null spelling. A nil set only treats
// blank strings as null.
func (s NullSet) Contains(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	if s == nil {
		return false
	}
	_, ok := s[strings.ToLower(raw)]
	return ok
}

// Values returns the members of the set, unordered.
func (s NullSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
