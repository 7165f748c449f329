package models

import "github.com/shopspring/decimal"

// Instrument параметры контракта, нужные для нормализации qty/price.
type Instrument struct {
	Symbol      string
	Status      string
	QtyStep     decimal.Decimal
	MinOrderQty decimal.Decimal
	MaxOrderQty decimal.Decimal
	TickSize    decimal.Decimal
	PriceScale  int32
}

func (i Instrument) Tradable() bool { return i.Status == "" || i.Status == "Trading" }
