package fields

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ----------------------------------------------------------------------------
// Text
// ----------------------------------------------------------------------------

type textType struct{}

// NewText returns the fallback type. It recognizes every string.
func NewText() Type { return textType{} }

func (textType) Name() string          { return KindText.String() }
func (textType) Kind() Kind            { return KindText }
func (textType) Recognize(string) bool { return true }

func (t textType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		if !utf8.Valid(v) {
			return nil, conversionError(t, raw, "invalid UTF-8")
		}
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (t textType) Serialize(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return "", conversionError(t, v, "value is not a string")
	}
}

// ----------------------------------------------------------------------------
// UUID
// ----------------------------------------------------------------------------

type uuidType struct{}

// NewUUID returns the UUID type. Only the canonical 36-character form is
// recognized; values are uuid.UUID.
func NewUUID() Type { return uuidType{} }

func (uuidType) Name() string { return KindUUID.String() }
func (uuidType) Kind() Kind   { return KindUUID }

func (uuidType) parse(s string) (uuid.UUID, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 36 {
		return uuid.UUID{}, false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, false
	}
	return u, true
}

func (t uuidType) Recognize(raw string) bool {
	_, ok := t.parse(raw)
	return ok
}

func (t uuidType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		u, ok := t.parse(v)
		if !ok {
			return nil, conversionError(t, raw, "not a canonical UUID")
		}
		return u, nil
	case []byte:
		if len(v) == 16 {
			u, err := uuid.FromBytes(v)
			if err != nil {
				return nil, wrapConversion(t, raw, err)
			}
			return u, nil
		}
		return t.Deserialize(string(v))
	default:
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t uuidType) Serialize(v any) (string, error) {
	switch u := v.(type) {
	case nil:
		return "", nil
	case uuid.UUID:
		return u.String(), nil
	default:
		return "", conversionError(t, v, "value is not a uuid.UUID")
	}
}

// ----------------------------------------------------------------------------
// Binary
// ----------------------------------------------------------------------------

type binaryType struct{}

// NewBinary returns the opt-in binary type. Raw strings are standard base64.
func NewBinary() Type { return binaryType{} }

func (binaryType) Name() string { return KindBinary.String() }
func (binaryType) Kind() Kind   { return KindBinary }

func (binaryType) Recognize(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(raw)
	return err == nil
}

func (t binaryType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.Clone(v), nil
	case string:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v))
		if err != nil {
			return nil, wrapConversion(t, raw, err)
		}
		return b, nil
	default:
		return nil, conversionError(t, raw, "unsupported native type")
	}
}

func (t binaryType) Serialize(v any) (string, error) {
	switch b := v.(type) {
	case nil:
		return "", nil
	case []byte:
		return base64.StdEncoding.EncodeToString(b), nil
	default:
		return "", conversionError(t, v, "value is not a []byte")
	}
}

// ----------------------------------------------------------------------------
// JSON
// ----------------------------------------------------------------------------

type jsonType struct{}

// NewJSON returns the opt-in JSON type. Values are the decoded document with
// numbers kept as json.Number so integers survive a round trip exactly.
func NewJSON() Type { return jsonType{} }

func (jsonType) Name() string { return KindJSON.String() }
func (jsonType) Kind() Kind   { return KindJSON }

func (jsonType) Recognize(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw != "" && json.Valid([]byte(raw))
}

func (t jsonType) decode(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, wrapConversion(t, string(b), err)
	}
	if dec.More() {
		return nil, conversionError(t, string(b), "trailing data after JSON document")
	}
	return v, nil
}

func (t jsonType) Deserialize(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if !t.Recognize(v) {
			return nil, conversionError(t, raw, "invalid JSON")
		}
		return t.decode([]byte(v))
	case []byte:
		if !json.Valid(v) {
			return nil, conversionError(t, raw, "invalid JSON")
		}
		return t.decode(v)
	default:
		// Natives (driver maps, structs) are re-decoded so numbers become json.Number.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, wrapConversion(t, raw, err)
		}
		return t.decode(b)
	}
}

func (t jsonType) Serialize(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", wrapConversion(t, v, err)
	}
	return string(b), nil
}
