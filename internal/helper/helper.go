package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// NormSymbol приводит тикер к виду биржи: BTCUSDT.
func NormSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func RoundDownToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	return px.Div(tick).Floor().Mul(tick)
}

func RoundUpToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	return px.Div(tick).Ceil().Mul(tick)
}

// FloorToStep округляет количество вниз до шага лота.
func FloorToStep(qty, step decimal.Decimal) decimal.Decimal {
	return RoundDownToTick(qty, step)
}

// Pct переводит проценты в долю: 1.5 -> 0.015.
func Pct(v decimal.Decimal) decimal.Decimal { return v.Div(hundred) }

// ChangePct (to-from)/base*100.
func ChangePct(from, to, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(base).Mul(hundred)
}
