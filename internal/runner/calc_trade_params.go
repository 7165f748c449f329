package runner

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ratio_bot/internal/helper"
	"ratio_bot/internal/models"
)

// Фиксированный каркас 2:1: цель на 2*d, защита 1:1 на d.
var (
	rewardRatio = decimal.NewFromInt(2)
	hundred     = decimal.NewFromInt(100)
	one         = decimal.NewFromInt(1)
)

// TradeParams параметры входа, посчитанные до отправки ордера.
type TradeParams struct {
	Notional decimal.Decimal // USDT
	Qty      decimal.Decimal // в базовой монете, уже кратно qtyStep
	Price    decimal.Decimal // цена, по которой считали qty
}

// Notional размер позиции в USDT: полный стоп теряет baseRisk, цель 2:1 даёт 2*baseRisk.
// stopPct > 0 проверяет вызывающий.
func Notional(baseRisk, stopPct decimal.Decimal) decimal.Decimal {
	return baseRisk.Mul(hundred).Div(stopPct)
}

// TargetPrice цена цели 2:1.
func TargetPrice(entry decimal.Decimal, side models.Side, stopPct decimal.Decimal) decimal.Decimal {
	move := helper.Pct(stopPct).Mul(rewardRatio).Mul(side.Sign())
	return entry.Mul(one.Add(move))
}

// BreakevenLockPrice стоп после фазы 1: фиксирует 1:1.
func BreakevenLockPrice(entry decimal.Decimal, side models.Side, stopPct decimal.Decimal) decimal.Decimal {
	move := helper.Pct(stopPct).Mul(side.Sign())
	return entry.Mul(one.Add(move))
}

// InitialStop стоп при открытии: на d против позиции.
func InitialStop(entry decimal.Decimal, side models.Side, stopPct decimal.Decimal) decimal.Decimal {
	move := helper.Pct(stopPct).Mul(side.Sign())
	return entry.Mul(one.Sub(move))
}

// RoundStop округляем стоп к тику: long вниз, short вверх.
func RoundStop(px decimal.Decimal, side models.Side, tick decimal.Decimal) decimal.Decimal {
	if side == models.SideShort {
		return helper.RoundUpToTick(px, tick)
	}
	return helper.RoundDownToTick(px, tick)
}

// CalcTradeParams переводит номинал в количество по лоту инструмента.
func CalcTradeParams(notional, price decimal.Decimal, inst models.Instrument) (TradeParams, error) {
	if !price.IsPositive() {
		return TradeParams{}, fmt.Errorf("price must be positive, got %s: %w", price, models.ErrExchange)
	}
	if !notional.IsPositive() {
		return TradeParams{}, fmt.Errorf("notional must be positive, got %s: %w", notional, models.ErrValidation)
	}

	qty := helper.FloorToStep(notional.Div(price), inst.QtyStep)
	if inst.MaxOrderQty.IsPositive() && qty.GreaterThan(inst.MaxOrderQty) {
		qty = helper.FloorToStep(inst.MaxOrderQty, inst.QtyStep)
	}
	if !qty.IsPositive() || qty.LessThan(inst.MinOrderQty) {
		return TradeParams{}, fmt.Errorf("qty %s below min %s for %s (notional %s @ %s): %w",
			qty, inst.MinOrderQty, inst.Symbol, notional.StringFixed(2), price, models.ErrRiskRejected)
	}

	return TradeParams{
		Notional: notional,
		Qty:      qty,
		Price:    price,
	}, nil
}
