package fields

import (
	"time"
)

// ----------------------------------------------------------------------------
// Date
// ----------------------------------------------------------------------------

type dateType struct {
	locale  Locale
	layouts []string
}

// NewDate returns the calendar date type. Values are time.Time at midnight UTC.
func NewDate(l Locale) Type {
	return dateType{locale: l, layouts: l.DateLayouts}
}

func (dateType) Name() string { return KindDate.String() }
func (dateType) Kind() Kind   { return KindDate }

func (t dateType) parse(s string) (time.Time, bool) {
	ts, ok := t.locale.parseTime(s, t.layouts, CanonicalDateLayout)
	if !ok {
		return time.Time{}, false
	}
	return truncateDate(ts), true
}

func (t dateType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t dateType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		d, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not a date in any configured layout")
		}
		return d, nil
	case []byte:
		return t.Deserialize(string(v))
	case time.Time:
		return t.native(v)
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return t.native(*v)
	default:
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t dateType) Serialize(v any) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case time.Time:
		if !inYearRange(d) {
			return "", conversionError(t, v, errYearRange)
		}
		return d.Format(CanonicalDateLayout), nil
	default:
		return "", conversionError(t, v, "value is not a time.Time")
	}
}

func (t dateType) native(v time.Time) (any, error) {
	d := truncateDate(v)
	if !inYearRange(d) {
		return nil, conversionError(t, v, errYearRange)
	}
	return d, nil
}

// Canonical layouts only print years 0000-9999.
const errYearRange = "year outside 0000-9999"

func inYearRange(t time.Time) bool {
	y := t.Year()
	return y >= 0 && y <= 9999
}

// truncateDate keeps the wall-clock calendar date and drops the rest.
func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ----------------------------------------------------------------------------
// DateTime
// ----------------------------------------------------------------------------

type dateTimeType struct {
	locale  Locale
	layouts []string
}

// NewDateTime returns the timestamp type. Values are time.Time; inputs
// without a zone are read as UTC. Date-only inputs are accepted as
// midnight so that mixed columns widen to datetime instead of text.
func NewDateTime(l Locale) Type {
	layouts := make([]string, 0, len(l.DateTimeLayouts)+len(l.DateLayouts)+2)
	layouts = append(layouts, l.DateTimeLayouts...)
	layouts = append(layouts, time.RFC3339)
	layouts = append(layouts, CanonicalDateLayout)
	layouts = append(layouts, l.DateLayouts...)
	return dateTimeType{locale: l, layouts: layouts}
}

func (dateTimeType) Name() string { return KindDateTime.String() }
func (dateTimeType) Kind() Kind   { return KindDateTime }

func (t dateTimeType) parse(s string) (time.Time, bool) {
	return t.locale.parseTime(s, t.layouts, CanonicalDateTimeLayout)
}

func (t dateTimeType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t dateTimeType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		ts, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not a datetime in any configured layout")
		}
		return ts, nil
	case []byte:
		return t.Deserialize(string(v))
	case time.Time:
		return t.native(v)
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return t.native(*v)
	default:
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t dateTimeType) Serialize(v any) (string, error) {
	switch ts := v.(type) {
	case nil:
		return "", nil
	case time.Time:
		// Normalize to UTC; RFC3339Nano trims trailing zeros.
		ts = ts.UTC()
		if !inYearRange(ts) {
			return "", conversionError(t, v, errYearRange)
		}
		return ts.Format(CanonicalDateTimeLayout), nil
	default:
		return "", conversionError(t, v, "value is not a time.Time")
	}
}

func (t dateTimeType) native(v time.Time) (any, error) {
	if !inYearRange(v.UTC()) {
		return nil, conversionError(t, v, errYearRange)
	}
	return v, nil
}
