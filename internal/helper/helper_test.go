package helper

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRounding(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name string
		fn   func(px, tick decimal.Decimal) decimal.Decimal
		px   string
		tick string
		want string
	}{
		{"down", RoundDownToTick, "101.987", "0.01", "101.98"},
		{"up", RoundUpToTick, "101.981", "0.01", "101.99"},
		{"on tick", RoundUpToTick, "102.5", "0.5", "102.5"},
		{"step", FloorToStep, "0.1999", "0.01", "0.19"},
		{"zero tick", RoundDownToTick, "1.2345", "0", "1.2345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(d(tt.px), d(tt.tick))
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNormSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormSymbol("  btcusdt "))
}

func TestChangePct(t *testing.T) {
	d := decimal.RequireFromString
	assert.True(t, d("2").Equal(ChangePct(d("104"), d("106"), d("100"))))
	assert.True(t, ChangePct(d("1"), d("2"), decimal.Zero).IsZero())
	assert.True(t, d("0.015").Equal(Pct(d("1.5"))))
}
