package fields

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// Integer
// ----------------------------------------------------------------------------

type integerType struct {
	locale Locale
}

// NewInteger returns the integer type. Values are int64.
func NewInteger(l Locale) Type { return integerType{locale: l} }

func (integerType) Name() string { return KindInteger.String() }
func (integerType) Kind() Kind   { return KindInteger }

func (t integerType) parse(s string) (int64, bool) {
	n, ok := t.locale.normalizeNumber(s, numberSyntax{})
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(n, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func (t integerType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t integerType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		i, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not an integer")
		}
		return i, nil
	case []byte:
		return t.Deserialize(string(v))
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, conversionError(t, raw, "out of int64 range")
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, conversionError(t, raw, "out of int64 range")
		}
		return int64(v), nil
	case float32:
		return t.Deserialize(float64(v))
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v < math.MinInt64 || v >= math.MaxInt64 {
			return nil, conversionError(t, raw, "not an integral value")
		}
		return int64(v), nil
	case decimal.Decimal:
		if !v.IsInteger() || !v.BigInt().IsInt64() {
			return nil, conversionError(t, raw, "not an integral value")
		}
		return v.IntPart(), nil
	default:
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t integerType) Serialize(v any) (string, error) {
	switch i := v.(type) {
	case nil:
		return "", nil
	case int64:
		return strconv.FormatInt(i, 10), nil
	case int:
		return strconv.Itoa(i), nil
	default:
		return "", conversionError(t, v, "value is not an int64")
	}
}

// ----------------------------------------------------------------------------
// Decimal
// ----------------------------------------------------------------------------

type decimalType struct {
	locale Locale
}

// NewDecimal returns the exact decimal type. Values are decimal.Decimal.
func NewDecimal(l Locale) Type { return decimalType{locale: l} }

func (decimalType) Name() string { return KindDecimal.String() }
func (decimalType) Kind() Kind   { return KindDecimal }

func (t decimalType) parse(s string) (decimal.Decimal, bool) {
	n, ok := t.locale.normalizeNumber(s, numberSyntax{fraction: true, money: true})
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func (t decimalType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t decimalType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		d, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not a decimal number")
		}
		return d, nil
	case []byte:
		return t.Deserialize(string(v))
	case decimal.Decimal:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, conversionError(t, raw, "not a finite number")
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return t.Deserialize(float64(v))
	default:
		if i, ok := asInt64(raw); ok {
			return decimal.NewFromInt(i), nil
		}
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t decimalType) Serialize(v any) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case decimal.Decimal:
		return t.locale.localize(d.String()), nil
	default:
		return "", conversionError(t, v, "value is not a decimal")
	}
}

// ----------------------------------------------------------------------------
// Percent
// ----------------------------------------------------------------------------

type percentType struct {
	locale Locale
}

// NewPercent returns the percentage type. "12.5%" is stored as the
// decimal fraction 0.125.
func NewPercent(l Locale) Type { return percentType{locale: l} }

func (percentType) Name() string { return KindPercent.String() }
func (percentType) Kind() Kind   { return KindPercent }

func (t percentType) parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return decimal.Decimal{}, false
	}
	n, ok := t.locale.normalizeNumber(strings.TrimSuffix(s, "%"), numberSyntax{fraction: true})
	if !ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(n)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d.Shift(-2), true
}

func (t percentType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t percentType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		d, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not a percentage")
		}
		return d, nil
	case []byte:
		return t.Deserialize(string(v))
	case decimal.Decimal:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, conversionError(t, raw, "not a finite number")
		}
		return decimal.NewFromFloat(v), nil
	default:
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t percentType) Serialize(v any) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case decimal.Decimal:
		return t.locale.localize(d.Shift(2).String()) + "%", nil
	default:
		return "", conversionError(t, v, "value is not a decimal fraction")
	}
}

// ----------------------------------------------------------------------------
// Float
// ----------------------------------------------------------------------------

type floatType struct {
	locale Locale
}

// NewFloat returns the binary floating point type. Values are finite float64.
func NewFloat(l Locale) Type { return floatType{locale: l} }

func (floatType) Name() string { return KindFloat.String() }
func (floatType) Kind() Kind   { return KindFloat }

func (t floatType) parse(s string) (float64, bool) {
	n, ok := t.locale.normalizeNumber(s, numberSyntax{fraction: true, exponent: true})
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (t floatType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t floatType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		f, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not a number")
		}
		return f, nil
	case []byte:
		return t.Deserialize(string(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, conversionError(t, raw, "not a finite number")
		}
		return v, nil
	case float32:
		return t.Deserialize(float64(v))
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	default:
		if i, ok := asInt64(raw); ok {
			return float64(i), nil
		}
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t floatType) Serialize(v any) (string, error) {
	switch f := v.(type) {
	case nil:
		return "", nil
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", conversionError(t, v, "not a finite number")
		}
		return t.locale.localize(strconv.FormatFloat(f, 'f', -1, 64)), nil
	default:
		return "", conversionError(t, v, "value is not a float64")
	}
}

func asInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true
	case int8:
		return int64(i), true
	case int16:
		return int64(i), true
	case int32:
		return int64(i), true
	case int64:
		return i, true
	case uint8:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint32:
		return int64(i), true
	}
	return 0, false
}
