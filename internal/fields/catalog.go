package fields

import (
	"fmt"
	"strings"
)

// Entry is one catalog slot. Types with Infer=false are lookup-only:
// they can be forced onto a column but are never chosen by detection.
type Entry struct {
	Type  Type
	Infer bool
}

// Catalog is an ordered, immutable set of types. Order is precedence:
// detection tries inferable types first to last.
type Catalog struct {
	locale  Locale
	entries []Entry
	byName  map[string]Type
	text    Type
}

// NewCatalog builds a catalog from entries in precedence order. The locale
// must pass Validate. Names must be unique and the catalog must contain a
// text type, which is always moved to the end of the inference order.
func NewCatalog(l Locale, entries ...Entry) (*Catalog, error) {
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c := &Catalog{
		locale: l,
		byName: make(map[string]Type, len(entries)),
	}

	for _, e := range entries {
		if e.Type == nil {
			return nil, fmt.Errorf("catalog: nil type")
		}
		key := strings.ToLower(e.Type.Name())
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate type name %q", e.Type.Name())
		}
		c.byName[key] = e.Type
		if e.Type.Kind() == KindText {
			c.text = e.Type
			continue
		}
		c.entries = append(c.entries, e)
	}

	if c.text == nil {
		return nil, fmt.Errorf("catalog: a text type is required as fallback")
	}
	c.entries = append(c.entries, Entry{Type: c.text, Infer: true})
	return c, nil
}

// NewDefaultCatalog returns the standard catalog for a locale:
// bool, integer, decimal, percent, float, date, datetime, uuid, text,
// plus binary and json as opt-in types. It fails when l is invalid.
func NewDefaultCatalog(l Locale) (*Catalog, error) {
	return NewCatalog(l,
		Entry{Type: NewBool(l), Infer: true},
		Entry{Type: NewInteger(l), Infer: true},
		Entry{Type: NewDecimal(l), Infer: true},
		Entry{Type: NewPercent(l), Infer: true},
		Entry{Type: NewFloat(l), Infer: true},
		Entry{Type: NewDate(l), Infer: true},
		Entry{Type: NewDateTime(l), Infer: true},
		Entry{Type: NewUUID(), Infer: true},
		Entry{Type: NewText(), Infer: true},
		Entry{Type: NewBinary()},
		Entry{Type: NewJSON()},
	)
}

// DefaultCatalog is NewDefaultCatalog for locales known to be valid, such
// as the built-in profiles. It panics when l is invalid.
func DefaultCatalog(l Locale) *Catalog {
	c, err := NewDefaultCatalog(l)
	if err != nil {
		panic(err)
	}
	return c
}

// Locale returns the locale the catalog was built with.
func (c *Catalog) Locale() Locale { return c.locale.Clone() }

// Inferable returns the types detection may choose, in precedence order.
// Text is always last.
func (c *Catalog) Inferable() []Type {
	out := make([]Type, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Infer {
			out = append(out, e.Type)
		}
	}
	return out
}

// Entries returns every entry in catalog order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Lookup finds a type by name, case-insensitively.
func (c *Catalog) Lookup(name string) (Type, bool) {
	t, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// MustLookup is Lookup for names known to exist. It panics otherwise.
func (c *Catalog) MustLookup(name string) Type {
	t, ok := c.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("catalog: unknown type %q", name))
	}
	return t
}

// Text returns the fallback type.
func (c *Catalog) Text() Type { return c.text }
