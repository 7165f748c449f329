package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side направление позиции.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide принимает "long"/"short" из сигнала и "Buy"/"Sell" из ответов биржи.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "long", "buy":
		return SideLong, true
	case "short", "sell":
		return SideShort, true
	}
	return "", false
}

// OrderSide сторона рыночного ордера, открывающего позицию.
func (s Side) OrderSide() string {
	if s == SideShort {
		return "Sell"
	}
	return "Buy"
}

// Sign +1 для long, -1 для short.
func (s Side) Sign() decimal.Decimal {
	if s == SideShort {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

func (s Side) Upper() string { return strings.ToUpper(string(s)) }

// Phase фаза защиты позиции.
type Phase int

const (
	PhaseUnprotected Phase = iota
	PhaseBreakevenLocked
	PhaseTrailing
)

func (p Phase) String() string {
	switch p {
	case PhaseUnprotected:
		return "unprotected"
	case PhaseBreakevenLocked:
		return "breakeven_locked"
	case PhaseTrailing:
		return "trailing"
	default:
		return "unknown"
	}
}

// TrackedPosition состояние сопровождения одной позиции (ключ = Symbol).
type TrackedPosition struct {
	Symbol       string
	Side         Side
	Entry        decimal.Decimal
	Extreme      decimal.Decimal // лучшая цена в нашу сторону на последнем шаге
	StopDistPct  decimal.Decimal
	Phase        Phase
	StopPrice    decimal.Decimal
	SeededAt     time.Time
	LastMovedAt  time.Time
	Reseeded     bool // подхвачена после рестарта, а не открыта нами
	InitialStop  decimal.Decimal
	OpenNotional decimal.Decimal
}

// Protected флаг первой фазы (1:1 зафиксирован).
func (p TrackedPosition) Protected() bool { return p.Phase >= PhaseBreakevenLocked }

// ExchangePosition позиция в ответе биржи.
type ExchangePosition struct {
	Symbol    string
	Side      Side
	Size      decimal.Decimal
	AvgPrice  decimal.Decimal
	StopLoss  decimal.Decimal
	UpdatedAt time.Time
}

func (p ExchangePosition) Open() bool { return !p.Size.IsZero() }
