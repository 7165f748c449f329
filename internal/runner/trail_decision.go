package runner

import (
	"github.com/shopspring/decimal"

	"ratio_bot/internal/helper"
	"ratio_bot/internal/models"
)

type TrailAction int

const (
	TrailNone TrailAction = iota
	// TrailLock цель 2:1 достигнута, стоп в точку 1:1.
	TrailLock
	// TrailStep цена прошла ещё margin % от прошлого экстремума, стоп на прошлый экстремум.
	TrailStep
	// TrailAdvance фаза и экстремум сдвигаются, но стоп на бирже уже не хуже: на биржу не ходим.
	TrailAdvance
)

// TrailDecision что сделать с позицией на текущей цене. Next заполнен при любом действии, кроме TrailNone.
type TrailDecision struct {
	Action    TrailAction
	NewStop   decimal.Decimal
	Next      models.TrackedPosition
	LockedPct decimal.Decimal
}

// DecideTrail чистая функция шага прогрессивной защиты.
// Unprotected -> BreakevenLocked -> Trailing (повторно); стоп только подтягивается.
func DecideTrail(p models.TrackedPosition, price, margin, tick decimal.Decimal) TrailDecision {
	if !price.IsPositive() || !p.Entry.IsPositive() {
		return TrailDecision{}
	}

	if !p.Protected() {
		target := TargetPrice(p.Entry, p.Side, p.StopDistPct)
		if !crossed(p.Side, price, target) {
			return TrailDecision{}
		}
		stop := RoundStop(BreakevenLockPrice(p.Entry, p.Side, p.StopDistPct), p.Side, tick)
		return advanceTo(p, models.PhaseBreakevenLocked, TrailLock, price, stop)
	}

	// шаг меряем от прошлого экстремума, в процентах от входа
	advance := helper.ChangePct(p.Extreme, price, p.Entry).Mul(p.Side.Sign())
	if advance.LessThan(margin) {
		return TrailDecision{}
	}
	stop := RoundStop(p.Extreme, p.Side, tick)
	return advanceTo(p, models.PhaseTrailing, TrailStep, price, stop)
}

// advanceTo переход в фазу с новым экстремумом. Стоп меняется, только если он тянет ближе к цене,
// иначе остаётся стоп с биржи (например, у подхваченной после рестарта позиции).
func advanceTo(p models.TrackedPosition, phase models.Phase, action TrailAction, price, stop decimal.Decimal) TrailDecision {
	next := p
	next.Phase = phase
	next.Extreme = price
	if !tighter(p.Side, stop, p.StopPrice) {
		return TrailDecision{Action: TrailAdvance, NewStop: p.StopPrice, Next: next}
	}
	next.StopPrice = stop
	return TrailDecision{
		Action:    action,
		NewStop:   stop,
		Next:      next,
		LockedPct: lockedPct(p, stop),
	}
}

// crossed цена дошла до уровня или прошла его (равенство считается).
func crossed(side models.Side, price, level decimal.Decimal) bool {
	if side == models.SideShort {
		return price.LessThanOrEqual(level)
	}
	return price.GreaterThanOrEqual(level)
}

// tighter новый стоп ближе к цене, чем текущий. Нулевой текущий = стопа нет.
func tighter(side models.Side, next, cur decimal.Decimal) bool {
	if cur.IsZero() {
		return true
	}
	if side == models.SideShort {
		return next.LessThan(cur)
	}
	return next.GreaterThan(cur)
}

func lockedPct(p models.TrackedPosition, stop decimal.Decimal) decimal.Decimal {
	return helper.ChangePct(p.Entry, stop, p.Entry).Mul(p.Side.Sign())
}
