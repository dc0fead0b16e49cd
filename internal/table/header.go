package table

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug lowercases s, drops accents and replaces every run of characters
// other than ASCII letters and digits with a single underscore.
//
//	Slug("Preço Unitário (R$)") == "preco_unitario_r"
func Slug(s string) string {
	// Transformers keep state, so each call builds its own chain.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	b.Grow(len(plain))
	pendingSep := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// fieldName slugs a header name into a usable identifier. pos is the
// 1-based column position, used when nothing of the name survives.
func fieldName(name string, pos int) string {
	s := Slug(name)
	switch {
	case s == "":
		return "field_" + strconv.Itoa(pos)
	case s[0] >= '0' && s[0] <= '9':
		return "field_" + s
	}
	return s
}

// MakeHeader slugs every name and makes the result unique by appending
// _2, _3, ... to repeated names.
func MakeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		base := fieldName(name, i+1)
		candidate := base
		for n := 2; seen[candidate]; n++ {
			candidate = base + "_" + strconv.Itoa(n)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}

// checkHeader validates names used verbatim.
func checkHeader(header []string) error {
	if len(header) == 0 {
		return &SchemaError{Reason: ErrEmptyHeader}
	}

	var empty, dups []string
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			empty = append(empty, "#"+strconv.Itoa(i+1))
			continue
		}
		if seen[name] {
			dups = append(dups, name)
		}
		seen[name] = true
	}
	if len(empty) > 0 {
		return &SchemaError{Reason: ErrEmptyName, Names: empty}
	}
	if len(dups) > 0 {
		return &SchemaError{Reason: ErrDuplicateName, Names: dups}
	}
	return nil
}
