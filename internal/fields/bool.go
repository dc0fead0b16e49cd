package fields

import "strings"

type boolType struct {
	trueValues  []string
	falseValues []string
}

// NewBool returns the boolean type using the locale's true/false words.
func NewBool(l Locale) Type {
	t := boolType{}
	for _, v := range l.TrueValues {
		t.trueValues = append(t.trueValues, strings.ToLower(strings.TrimSpace(v)))
	}
	for _, v := range l.FalseValues {
		t.falseValues = append(t.falseValues, strings.ToLower(strings.TrimSpace(v)))
	}
	if len(t.trueValues) == 0 {
		t.trueValues = []string{"true"}
	}
	if len(t.falseValues) == 0 {
		t.falseValues = []string{"false"}
	}
	return t
}

func (boolType) Name() string { return KindBool.String() }
func (boolType) Kind() Kind   { return KindBool }

func (t boolType) parse(s string) (value, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, v := range t.trueValues {
		if s == v {
			return true, true
		}
	}
	for _, v := range t.falseValues {
		if s == v {
			return false, true
		}
	}
	return false, false
}

func (t boolType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t boolType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case *bool:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case string:
		b, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not a boolean")
		}
		return b, nil
	case []byte:
		return t.Deserialize(string(v))
	default:
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t boolType) Serialize(v any) (string, error) {
	switch b := v.(type) {
	case nil:
		return "", nil
	case bool:
		if b {
			return t.trueValues[0], nil
		}
		return t.falseValues[0], nil
	default:
		return "", conversionError(t, v, "value is not a bool")
	}
}
