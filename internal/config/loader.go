package config

import (
	"fmt"
	"net/netip"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/plusplusco/rows/internal/fields"
	"github.com/plusplusco/rows/internal/table"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Struct tags understood by loadStruct:
//
//	env       variable name; fields without it are skipped
//	envAlt    fallback variable read when env is unset
//	default   value used when neither variable is set
//	required  "true" makes an unset variable an error
//	sep       list separator for []string fields, "," when empty
type envTag struct {
	name     string
	alt      string
	def      string
	sep      string
	required bool
}

func parseTag(f reflect.StructField) (envTag, bool) {
	tag := envTag{
		name:     f.Tag.Get("env"),
		alt:      f.Tag.Get("envAlt"),
		def:      f.Tag.Get("default"),
		sep:      f.Tag.Get("sep"),
		required: f.Tag.Get("required") == "true",
	}
	if tag.sep == "" {
		tag.sep = ","
	}
	return tag, tag.name != ""
}

// lookup returns the raw value and the variable it came from. source is
// empty when the default was used.
func (t envTag) lookup() (value, source string, err error) {
	for _, name := range []string{t.name, t.alt} {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			return v, name, nil
		}
	}
	if t.required {
		return "", "", fmt.Errorf("required environment variable %s is not set", t.name)
	}
	return t.def, "", nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct fills v's tagged fields from the environment, descending into
// nested structs.
func loadStruct(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		f, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				return err
			}
			continue
		}

		tag, ok := parseTag(f)
		if !ok {
			continue
		}
		value, source, err := tag.lookup()
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		if source == "" {
			source = tag.name + " default"
		}
		if err := setField(fv, value, tag.sep); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", source, value, err)
		}
	}
	return nil
}

// setField parses value into field according to the field's type.
func setField(field reflect.Value, value, sep string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		field.Set(reflect.ValueOf(splitList(value, sep)))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// splitList splits on sep, trimming entries and dropping empty ones.
func splitList(value, sep string) []string {
	var out []string
	for p := range strings.SplitSeq(value, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, "SERVER_MAX_BODY_SIZE must be positive")
	}
	if c.Server.MaxConcurrent <= 0 {
		errs = append(errs, "SERVER_MAX_CONCURRENT must be positive")
	}
	if c.Server.MaxWaitTime <= 0 {
		errs = append(errs, "SERVER_MAX_WAIT_TIME must be positive")
	}

	// Database validation, only when an import target is configured
	if c.Database.Enabled() {
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.CopyBatchSize <= 0 {
			errs = append(errs, "DB_COPY_BATCH_SIZE must be positive")
		}
	}

	// Conversion validation
	if c.Convert.LocaleFile == "" {
		if _, ok := fields.LookupLocale(c.Convert.Locale); !ok {
			errs = append(errs, fmt.Sprintf("ROWS_LOCALE (%q) must be one of: %s",
				c.Convert.Locale, strings.Join(fields.LocaleNames(), ", ")))
		}
	}
	if s := c.Convert.DecimalSeparator; s != "" && s != "." && s != "," {
		errs = append(errs, fmt.Sprintf("ROWS_DECIMAL_SEPARATOR (%q) must be \".\" or \",\"", s))
	}
	if _, err := ParseSampleSize(c.Convert.SampleSize); err != nil {
		errs = append(errs, "ROWS_SAMPLE_SIZE "+err.Error())
	}
	if _, err := table.ParsePolicy(c.Convert.Policy); err != nil {
		errs = append(errs, "ROWS_CONVERSION_POLICY: "+err.Error())
	}
	if c.Convert.MaxRows < 0 {
		errs = append(errs, "ROWS_MAX_ROWS must be non-negative")
	}

	// Security validation
	for _, cidr := range c.Security.TrustedProxies {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			if _, err := netip.ParseAddr(cidr); err != nil {
				errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not an IP or CIDR", cidr))
			}
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d, MaxConcurrent: %d}, ",
		c.Server.Host, c.Server.Port, c.Server.MaxConcurrent))
	if c.Database.Enabled() {
		b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
			c.Database.MaxConns, c.Database.MinConns))
	} else {
		b.WriteString("Database: {disabled}, ")
	}
	b.WriteString(fmt.Sprintf("Convert: {Locale: %q, SampleSize: %q, Policy: %q}, ",
		c.Convert.Locale, c.Convert.SampleSize, c.Convert.Policy))
	b.WriteString(fmt.Sprintf("Security: {TrustedProxies: %d, APIKeys: %d}, ",
		len(c.Security.TrustedProxies), len(c.Security.APIKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
