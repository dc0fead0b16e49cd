package fields

// parse.go holds the locale-aware parsing helpers shared by the numeric and
// temporal types.
//
// User-supplied numbers come in many shapes:
//   - Locale decimal separators ("1,5" in pt_BR)
//   - Thousands separators ("1,234,567.89")
//   - Currency symbols ("$1,234.56")
//   - Accounting negatives ("(123.45)")
//
// normalizeNumber reduces all of them to Go's plain notation or rejects the
// input. It is strict on purpose: a value it accepts must not lose
// information when re-emitted.

import (
	"strings"
	"time"
)

type numberSyntax struct {
	exponent bool // accept 1.5e10
	money    bool // accept currency symbols and accounting negatives
	fraction bool // accept a fractional part
}

// normalizeNumber rewrites s into Go notation (sign, digits, ".", digits,
// optional exponent). ok is false when s is not a number under l.
func (l Locale) normalizeNumber(s string, syn numberSyntax) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	negative := false
	if syn.money {
		// Detect negative accounting format "(123.45)"
		if l.AccountingNegatives && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
			negative = true
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
		s = l.stripCurrency(s)
	}

	var b strings.Builder
	b.Grow(len(s) + 1)

	if s != "" && (s[0] == '+' || s[0] == '-') {
		if negative {
			return "", false
		}
		if s[0] == '-' {
			b.WriteByte('-')
		}
		s = s[1:]
		if syn.money {
			s = l.stripCurrency(s)
		}
	} else if negative {
		b.WriteByte('-')
	}

	mantissa, exponent := s, ""
	if syn.exponent {
		if i := strings.IndexAny(s, "eE"); i >= 0 {
			mantissa, exponent = s[:i], s[i+1:]
			if !validExponent(exponent) {
				return "", false
			}
		}
	}

	if l.DecimalSeparator == "" {
		return "", false
	}
	intPart, fracPart := mantissa, ""
	if i := strings.Index(mantissa, l.DecimalSeparator); i >= 0 {
		if !syn.fraction {
			return "", false
		}
		intPart, fracPart = mantissa[:i], mantissa[i+len(l.DecimalSeparator):]
		if fracPart == "" && intPart == "" {
			return "", false
		}
		if !allDigits(fracPart) {
			return "", false
		}
	}

	digits, ok := l.ungroup(intPart)
	if !ok {
		return "", false
	}
	if digits == "" && fracPart == "" {
		return "", false
	}
	// Leading zeros mark identifiers (zip codes, account numbers), not numbers.
	if len(digits) > 1 && digits[0] == '0' {
		return "", false
	}

	if digits == "" {
		digits = "0"
	}
	b.WriteString(digits)
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	if exponent != "" {
		b.WriteByte('e')
		b.WriteString(exponent)
	}
	return b.String(), true
}

// ungroup removes well-formed group separators from an integer part.
// Groups must be 1-3 leading digits followed by groups of exactly 3.
func (l Locale) ungroup(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	if l.GroupSeparator == "" || !strings.Contains(s, l.GroupSeparator) {
		return s, allDigits(s)
	}

	groups := strings.Split(s, l.GroupSeparator)
	if len(groups[0]) == 0 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func (l Locale) stripCurrency(s string) string {
	for _, sym := range l.CurrencySymbols {
		if sym == "" {
			continue
		}
		if strings.HasPrefix(s, sym) {
			return strings.TrimSpace(s[len(sym):])
		}
		if strings.HasSuffix(s, sym) {
			return strings.TrimSpace(s[:len(s)-len(sym)])
		}
	}
	return s
}

// localize rewrites a Go-notation number with the locale decimal separator.
func (l Locale) localize(s string) string {
	if l.DecimalSeparator == "." {
		return s
	}
	return strings.Replace(s, ".", l.DecimalSeparator, 1)
}

func validExponent(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return s != "" && allDigits(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isTwoDigitYearLayout reports whether a layout carries a two-digit year.
func isTwoDigitYearLayout(layout string) bool {
	return strings.Contains(layout, "06") && !strings.Contains(layout, "2006")
}

// parseTime tries every layout in order. Two-digit years are moved to the
// previous century when they land more than the pivot into the future.
func (l Locale) parseTime(s string, layouts []string, canonical string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(canonical, s); err == nil {
		return t, true
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range layouts {
		if isTwoDigitYearLayout(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + l.TwoDigitYearPivot
	for _, layout := range layouts {
		if !isTwoDigitYearLayout(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}
