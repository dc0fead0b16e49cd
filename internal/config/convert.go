package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/plusplusco/rows/internal/fields"
	"github.com/plusplusco/rows/internal/table"
)

// Options builds the default table options. A locale file, when set, is
// read here.
func (c ConvertConfig) Options() (table.Options, error) {
	var (
		loc fields.Locale
		err error
	)
	if c.LocaleFile != "" {
		loc, err = LoadProfile(c.LocaleFile)
		if err != nil {
			return table.Options{}, err
		}
	} else {
		var ok bool
		loc, ok = fields.LookupLocale(c.Locale)
		if !ok {
			return table.Options{}, fmt.Errorf("unknown locale %q", c.Locale)
		}
	}

	if c.DecimalSeparator != "" {
		loc.DecimalSeparator = c.DecimalSeparator
		if loc.GroupSeparator == loc.DecimalSeparator {
			loc.GroupSeparator = ""
		}
	}
	if len(c.DateFormats) > 0 {
		loc.DateLayouts = make([]string, len(c.DateFormats))
		for i, f := range c.DateFormats {
			loc.DateLayouts[i] = DateLayout(f)
		}
	}
	if err := loc.Validate(); err != nil {
		return table.Options{}, err
	}

	sample, err := ParseSampleSize(c.SampleSize)
	if err != nil {
		return table.Options{}, err
	}
	policy, err := table.ParsePolicy(c.Policy)
	if err != nil {
		return table.Options{}, err
	}

	return table.Options{
		Locale:          loc,
		SampleSize:      sample,
		NullValues:      c.NullValues,
		Policy:          policy,
		MaxRows:         c.MaxRows,
		NormalizeHeader: c.NormalizeHeader,
	}, nil
}

// ParseSampleSize accepts "all" (returned as 0) or a positive integer.
func ParseSampleSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be \"all\" or a positive integer, got %q", s)
	}
	return n, nil
}

var strftime = strings.NewReplacer(
	"%Y", "2006", "%y", "06",
	"%m", "01", "%d", "02", "%e", "_2",
	"%b", "Jan", "%B", "January", "%a", "Mon", "%A", "Monday",
	"%H", "15", "%I", "03", "%M", "04", "%S", "05", "%p", "PM",
	"%f", "000000", "%z", "-0700", "%Z", "MST",
	"%%", "%",
)

// DateLayout converts a strftime pattern ("%d/%m/%Y") to a Go layout.
// Strings without "%" are returned unchanged.
func DateLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}
	return strftime.Replace(format)
}

// ----------------------------------------------------------------------------
// Locale profiles
// ----------------------------------------------------------------------------

// localeProfile is the on-disk form of a locale. Unset keys keep the
// value of the base profile.
type localeProfile struct {
	Name                string   `yaml:"name" toml:"name"`
	Base                string   `yaml:"base" toml:"base"`
	DecimalSeparator    *string  `yaml:"decimal_separator" toml:"decimal_separator"`
	GroupSeparator      *string  `yaml:"group_separator" toml:"group_separator"`
	CurrencySymbols     []string `yaml:"currency_symbols" toml:"currency_symbols"`
	AccountingNegatives *bool    `yaml:"accounting_negatives" toml:"accounting_negatives"`
	DateFormats         []string `yaml:"date_formats" toml:"date_formats"`
	DateTimeFormats     []string `yaml:"datetime_formats" toml:"datetime_formats"`
	TrueValues          []string `yaml:"true_values" toml:"true_values"`
	FalseValues         []string `yaml:"false_values" toml:"false_values"`
	TwoDigitYearPivot   *int     `yaml:"two_digit_year_pivot" toml:"two_digit_year_pivot"`
}

// LoadProfile reads a locale profile from a .yaml, .yml or .toml file.
func LoadProfile(path string) (fields.Locale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fields.Locale{}, fmt.Errorf("read locale profile: %w", err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return fields.Locale{}, fmt.Errorf("locale profile %s: unsupported extension (want .yaml, .yml or .toml)", path)
	}

	loc, err := ParseProfile(data, format)
	if err != nil {
		return fields.Locale{}, fmt.Errorf("locale profile %s: %w", path, err)
	}
	return loc, nil
}

// ParseProfile decodes a locale profile in the given format ("yaml" or
// "toml") and validates the result. Unknown keys are rejected.
func ParseProfile(data []byte, format string) (fields.Locale, error) {
	var p localeProfile
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return fields.Locale{}, fmt.Errorf("decode yaml: %w", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return fields.Locale{}, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return fields.Locale{}, fmt.Errorf("unsupported profile format %q", format)
	}

	loc, ok := fields.LookupLocale(p.Base)
	if !ok {
		return fields.Locale{}, fmt.Errorf("unknown base locale %q", p.Base)
	}
	p.apply(&loc)

	if err := loc.Validate(); err != nil {
		return fields.Locale{}, err
	}
	return loc, nil
}

func (p localeProfile) apply(loc *fields.Locale) {
	if p.Name != "" {
		loc.Name = p.Name
	}
	if p.DecimalSeparator != nil {
		loc.DecimalSeparator = *p.DecimalSeparator
	}
	if p.GroupSeparator != nil {
		loc.GroupSeparator = *p.GroupSeparator
	}
	if p.CurrencySymbols != nil {
		loc.CurrencySymbols = p.CurrencySymbols
	}
	if p.AccountingNegatives != nil {
		loc.AccountingNegatives = *p.AccountingNegatives
	}
	if p.DateFormats != nil {
		loc.DateLayouts = make([]string, len(p.DateFormats))
		for i, f := range p.DateFormats {
			loc.DateLayouts[i] = DateLayout(f)
		}
	}
	if p.DateTimeFormats != nil {
		loc.DateTimeLayouts = make([]string, len(p.DateTimeFormats))
		for i, f := range p.DateTimeFormats {
			loc.DateTimeLayouts[i] = DateLayout(f)
		}
	}
	if p.TrueValues != nil {
		loc.TrueValues = p.TrueValues
	}
	if p.FalseValues != nil {
		loc.FalseValues = p.FalseValues
	}
	if p.TwoDigitYearPivot != nil {
		loc.TwoDigitYearPivot = *p.TwoDigitYearPivot
	}
}
