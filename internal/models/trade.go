package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosedTrade запись closed-PnL от биржи.
type ClosedTrade struct {
	ID        string // orderId закрывающего ордера
	Symbol    string
	Side      string // как отдала биржа: Buy/Sell
	ClosedPnL decimal.Decimal
	AvgEntry  decimal.Decimal
	AvgExit   decimal.Decimal
	Qty       decimal.Decimal
	ClosedAt  time.Time
}

func (t ClosedTrade) Win() bool { return !t.ClosedPnL.IsNegative() }

// OpenResult результат успешного открытия.
type OpenResult struct {
	Symbol    string
	Side      Side
	OrderID   string
	Qty       decimal.Decimal
	Notional  decimal.Decimal
	Entry     decimal.Decimal
	StopPrice decimal.Decimal
	LockAt    decimal.Decimal // цена цели 2:1, где включится защита 1:1
}

// StopMove перенос стопа, выполненный циклом защиты.
type StopMove struct {
	Symbol    string
	Side      Side
	From      Phase
	To        Phase
	OldStop   decimal.Decimal
	NewStop   decimal.Decimal
	Price     decimal.Decimal
	Entry     decimal.Decimal
	LockedPct decimal.Decimal // зафиксированная прибыль в % от входа
}
