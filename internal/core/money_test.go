package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tc.in)
			continue
		}
		if assert.NoError(t, err, "input %q", tc.in) {
			assert.Equal(t, tc.out, got.String(), "input %q", tc.in)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int32(2), MinorUnits("USD"))
	assert.Equal(t, int32(2), MinorUnits("EUR"))
	assert.Equal(t, int32(0), MinorUnits("jpy"))
	assert.Equal(t, int32(3), MinorUnits("KWD"))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, "110.01", RoundTo(decimal.RequireFromString("110.005"), "USD").String())
	assert.Equal(t, "1235", RoundTo(decimal.RequireFromString("1234.5"), "JPY").String())
}

func TestFormatAmount(t *testing.T) {
	converted := NormalizedExpense{
		Amount:              decimal.RequireFromString("110"),
		DisplayCurrencyCode: "USD",
	}
	assert.Equal(t, "110.00 USD", FormatAmount(converted))

	failed := NormalizedExpense{
		Amount:              decimal.RequireFromString("250"),
		DisplayCurrencyCode: "TRY",
		ConversionFailed:    true,
	}
	assert.Equal(t, "250.00 TRY (unconverted)", FormatAmount(failed))
	assert.Equal(t, "250", failed.Amount.String(), "formatting must not touch the record")
}

func TestCurrencyOptions(t *testing.T) {
	opts := CurrencyOptions()
	assert.Len(t, opts, 6)
	for _, o := range opts {
		assert.True(t, IsCurrencyCode(o.Code), o.Code)
	}
	opts[0].Code = "XXX"
	assert.Equal(t, "USD", CurrencyOptions()[0].Code)
}
