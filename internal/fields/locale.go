package fields

import (
	"fmt"
	"strings"
	"time"
)

// Canonical layouts used by Serialize. Date and DateTime always accept them,
// whatever the locale, so that serialized output is recognized again.
const (
	CanonicalDateLayout     = "2006-01-02"
	CanonicalDateTimeLayout = time.RFC3339Nano
)

// Locale carries every locale-sensitive parsing option.
type Locale struct {
	Name string

	// DecimalSeparator is "." or ",".
	DecimalSeparator string

	// GroupSeparator is the thousands separator. Empty disables grouping.
	GroupSeparator string

	// CurrencySymbols are stripped from decimal values before parsing.
	CurrencySymbols []string

	// AccountingNegatives accepts "(123.45)" as -123.45 for decimals.
	AccountingNegatives bool

	// DateLayouts are Go time layouts tried in order for dates.
	DateLayouts []string

	// DateTimeLayouts are Go time layouts tried in order for datetimes.
	DateTimeLayouts []string

	// TrueValues and FalseValues are compared case-insensitively.
	// The first entry of each is used when serializing.
	TrueValues  []string
	FalseValues []string

	// TwoDigitYearPivot: two-digit years landing more than this many years
	// after the current year are moved to the previous century.
	TwoDigitYearPivot int
}

var (
	defaultDateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
)

// Built-in locale profiles.
var (
	LocaleDefault = Locale{
		Name:              "default",
		DecimalSeparator:  ".",
		DateLayouts:       []string{"2006-01-02"},
		DateTimeLayouts:   defaultDateTimeLayouts,
		TrueValues:        []string{"true", "yes"},
		FalseValues:       []string{"false", "no"},
		TwoDigitYearPivot: 20,
	}

	LocaleEnUS = Locale{
		Name:                "en_US",
		DecimalSeparator:    ".",
		GroupSeparator:      ",",
		CurrencySymbols:     []string{"$", "€", "£"},
		AccountingNegatives: true,
		DateLayouts: []string{
			"2006-01-02", "2006/01/02",
			"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
			"Jan 2, 2006", "2 Jan 2006", "January 2, 2006",
			"1/2/06", "01/02/06",
		},
		DateTimeLayouts: append([]string{
			"1/2/2006 15:04:05", "1/2/2006 3:04:05 PM", "1/2/2006 15:04",
		}, defaultDateTimeLayouts...),
		TrueValues:        []string{"true", "yes"},
		FalseValues:       []string{"false", "no"},
		TwoDigitYearPivot: 20,
	}

	LocalePtBR = Locale{
		Name:             "pt_BR",
		DecimalSeparator: ",",
		GroupSeparator:   ".",
		CurrencySymbols:  []string{"R$"},
		DateLayouts: []string{
			"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "02/01/06",
		},
		DateTimeLayouts: append([]string{
			"02/01/2006 15:04:05", "02/01/2006 15:04",
		}, defaultDateTimeLayouts...),
		TrueValues:        []string{"true", "yes", "sim", "verdadeiro"},
		FalseValues:       []string{"false", "no", "não", "nao", "falso"},
		TwoDigitYearPivot: 20,
	}

	LocaleDeDE = Locale{
		Name:             "de_DE",
		DecimalSeparator: ",",
		GroupSeparator:   ".",
		CurrencySymbols:  []string{"€"},
		DateLayouts: []string{
			"2006-01-02", "02.01.2006", "2.1.2006", "02.01.06",
		},
		DateTimeLayouts: append([]string{
			"02.01.2006 15:04:05", "02.01.2006 15:04",
		}, defaultDateTimeLayouts...),
		TrueValues:        []string{"true", "yes", "ja", "wahr"},
		FalseValues:       []string{"false", "no", "nein", "falsch"},
		TwoDigitYearPivot: 20,
	}
)

var builtinLocales = []Locale{LocaleDefault, LocaleEnUS, LocalePtBR, LocaleDeDE}

// LookupLocale returns a built-in profile. Names are matched ignoring case
// and the "-"/"_" distinction ("pt-BR" == "pt_br").
func LookupLocale(name string) (Locale, bool) {
	key := localeKey(name)
	if key == "" || key == "c" {
		return LocaleDefault.Clone(), true
	}
	for _, l := range builtinLocales {
		if localeKey(l.Name) == key {
			return l.Clone(), true
		}
	}
	return Locale{}, false
}

// LocaleNames lists the built-in profiles.
func LocaleNames() []string {
	names := make([]string, len(builtinLocales))
	for i, l := range builtinLocales {
		names[i] = l.Name
	}
	return names
}

func localeKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// Clone returns a deep copy so callers can modify slices freely.
func (l Locale) Clone() Locale {
	c := l
	c.CurrencySymbols = append([]string(nil), l.CurrencySymbols...)
	c.DateLayouts = append([]string(nil), l.DateLayouts...)
	c.DateTimeLayouts = append([]string(nil), l.DateTimeLayouts...)
	c.TrueValues = append([]string(nil), l.TrueValues...)
	c.FalseValues = append([]string(nil), l.FalseValues...)
	return c
}

// Validate checks the locale for internally inconsistent settings.
func (l Locale) Validate() error {
	var errs []string

	if l.DecimalSeparator != "." && l.DecimalSeparator != "," {
		errs = append(errs, fmt.Sprintf("decimal separator %q must be \".\" or \",\"", l.DecimalSeparator))
	}
	if l.GroupSeparator != "" {
		if l.GroupSeparator == l.DecimalSeparator {
			errs = append(errs, "group separator must differ from decimal separator")
		}
		if strings.ContainsAny(l.GroupSeparator, "0123456789+-eE") {
			errs = append(errs, fmt.Sprintf("group separator %q is ambiguous", l.GroupSeparator))
		}
	}
	if len(l.TrueValues) == 0 || len(l.FalseValues) == 0 {
		errs = append(errs, "true and false values must not be empty")
	}
	for _, t := range l.TrueValues {
		for _, f := range l.FalseValues {
			if strings.EqualFold(t, f) {
				errs = append(errs, fmt.Sprintf("%q is both a true and a false value", t))
			}
		}
	}
	if l.TwoDigitYearPivot < 0 || l.TwoDigitYearPivot > 99 {
		errs = append(errs, "two-digit year pivot must be within 0-99")
	}

	if len(errs) > 0 {
		return fmt.Errorf("locale %s: %s", l.Name, strings.Join(errs, "; "))
	}
	return nil
}
