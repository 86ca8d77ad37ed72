package decimal_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rezonia/invoice-engine/internal/decimal"
)

func TestRound2_HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"2.675", "2.68"},
		{"0.125", "0.13"},
		{"-0.125", "-0.13"},
		{"10", "10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := decimal.Round2(dec.RequireFromString(tt.in))
			assert.Equal(t, tt.expected, decimal.Format(got))
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		rate    string
		exact   string
		rounded string
	}{
		{"21% of 500", "500", "21", "105", "105.00"},
		{"6% of 33.33", "33.33", "6", "1.9998", "2.00"},
		{"21% of 0.05", "0.05", "21", "0.0105", "0.01"},
		{"0% of 100", "100", "0", "0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := dec.RequireFromString(tt.amount)
			rate := dec.RequireFromString(tt.rate)

			exact := decimal.Percent(amount, rate)
			assert.True(t, exact.Equal(dec.RequireFromString(tt.exact)),
				"exact: got %s, want %s", exact, tt.exact)
			assert.Equal(t, tt.rounded, decimal.Format(decimal.PercentRounded(amount, rate)))
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	tol := dec.RequireFromString("0.02")

	assert.True(t, decimal.WithinTolerance(dec.RequireFromString("100.00"), dec.RequireFromString("100.02"), tol))
	assert.True(t, decimal.WithinTolerance(dec.RequireFromString("100.02"), dec.RequireFromString("100.00"), tol))
	assert.False(t, decimal.WithinTolerance(dec.RequireFromString("100.00"), dec.RequireFromString("100.05"), tol))
	assert.True(t, decimal.WithinTolerance(dec.Zero, dec.Zero, dec.Zero))
}

func TestCent(t *testing.T) {
	assert.Equal(t, "0.01", decimal.Cent.String())
}
