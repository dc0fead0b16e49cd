package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_Deserialize(t *testing.T) {
	tests := []struct {
		name   string
		locale Locale
		input  string
		want   time.Time
		valid  bool
	}{
		{name: "ISO", locale: LocaleDefault, input: "2024-01-15", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "ISO with spaces", locale: LocaleDefault, input: " 2024-01-15 ", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "US slash in default locale", locale: LocaleDefault, input: "1/15/2024", valid: false},
		{name: "US slash", locale: LocaleEnUS, input: "1/15/2024", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "US padded", locale: LocaleEnUS, input: "01/15/2024", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "US month name", locale: LocaleEnUS, input: "Jan 15, 2024", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "US two digit year", locale: LocaleEnUS, input: "1/2/99", want: time.Date(1999, 1, 2, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "US two digit recent year", locale: LocaleEnUS, input: "1/2/24", want: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "US two digit year past pivot", locale: LocaleEnUS, input: "1/2/68", want: time.Date(1968, 1, 2, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "BR day first", locale: LocalePtBR, input: "15/01/2024", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "DE dotted", locale: LocaleDeDE, input: "15.01.2024", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), valid: true},
		{name: "month out of range", locale: LocaleDefault, input: "2024-13-01", valid: false},
		{name: "timestamp is not a date", locale: LocaleDefault, input: "2024-01-15 10:30:00", valid: false},
		{name: "word", locale: LocaleDefault, input: "yesterday", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := NewDate(tt.locale)
			assert.Equal(t, tt.valid, typ.Recognize(tt.input))

			v, err := typ.Deserialize(tt.input)
			if !tt.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(v.(time.Time)), "got %v, want %v", v, tt.want)
		})
	}
}

func TestDate_NativeTruncatesTime(t *testing.T) {
	ts := time.Date(2024, 3, 9, 22, 15, 0, 0, time.UTC)
	v, err := NewDate(LocaleDefault).Deserialize(ts)
	require.NoError(t, err)

	s, err := NewDate(LocaleDefault).Serialize(v)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", s)
}

func TestTemporal_YearRange(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		ts   time.Time
		ok   bool
	}{
		{"date year 9999", NewDate(LocaleDefault), time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"date year 10000", NewDate(LocaleDefault), time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"date year -1", NewDate(LocaleDefault), time.Date(-1, 6, 1, 0, 0, 0, 0, time.UTC), false},
		{"datetime year 10000", NewDateTime(LocaleDefault), time.Date(10000, 1, 1, 12, 0, 0, 0, time.UTC), false},
		{"datetime crossing into 10000 in UTC", NewDateTime(LocaleDefault),
			time.Date(9999, 12, 31, 23, 0, 0, 0, time.FixedZone("", -2*3600)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.typ.Serialize(tt.ts)
			v, derr := tt.typ.Deserialize(tt.ts)
			if tt.ok {
				require.NoError(t, err)
				require.NoError(t, derr)
				s, err := tt.typ.Serialize(v)
				require.NoError(t, err)
				assert.True(t, tt.typ.Recognize(s), s)
				return
			}
			var convErr *ConversionError
			require.ErrorAs(t, err, &convErr)
			assert.Contains(t, convErr.Error(), "0000-9999")
			require.ErrorAs(t, derr, &convErr)
		})
	}
}

func TestDateTime(t *testing.T) {
	typ := NewDateTime(LocaleDefault)

	tests := []struct {
		input string
		want  string
	}{
		{input: "2024-01-15T10:30:00Z", want: "2024-01-15T10:30:00Z"},
		{input: "2024-01-15T10:30:00+02:00", want: "2024-01-15T08:30:00Z"},
		{input: "2024-01-15 10:30:00", want: "2024-01-15T10:30:00Z"},
		{input: "2024-01-15T10:30", want: "2024-01-15T10:30:00Z"},
		{input: "2024-01-15 10:30:00.5", want: "2024-01-15T10:30:00.5Z"},
		{input: "2024-01-15", want: "2024-01-15T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.True(t, typ.Recognize(tt.input))
			v, err := typ.Deserialize(tt.input)
			require.NoError(t, err)

			s, err := typ.Serialize(v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}

	assert.False(t, typ.Recognize("10:30"))
	assert.False(t, typ.Recognize("2024-01-15 25:00:00"))
}

func TestDateTime_LocaleLayouts(t *testing.T) {
	v, err := NewDateTime(LocaleEnUS).Deserialize("1/15/2024 3:04:05 PM")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 15, 15, 4, 5, 0, time.UTC).Equal(v.(time.Time)))

	v, err = NewDateTime(LocalePtBR).Deserialize("15/01/2024 15:04")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 15, 15, 4, 0, 0, time.UTC).Equal(v.(time.Time)))
}
