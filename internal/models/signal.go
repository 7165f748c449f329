package models

import "github.com/shopspring/decimal"

// SignalRequest тело POST /signal.
type SignalRequest struct {
	Symbol       string   `json:"symbol"`
	Side         string   `json:"side"`
	// число или строка с числом: 1.5 и "1.5" равнозначны
	StopDistance *decimal.Decimal `json:"distancia_sl,omitempty"`
}

// Signal провалидированный сигнал; не сохраняется.
type Signal struct {
	Symbol string
	Side   Side
	// стоп от источника сигнала и итоговый стоп с запасом
	SourceStopPct decimal.Decimal
	StopDistPct   decimal.Decimal
}

// DispositionStatus итог обработки сигнала.
type DispositionStatus string

const (
	StatusSuccess  DispositionStatus = "success"
	StatusRejected DispositionStatus = "rejected"
	StatusIgnored  DispositionStatus = "ignored"
	StatusError    DispositionStatus = "error"
)

// Disposition синхронный ответ на сигнал.
type Disposition struct {
	Status  DispositionStatus `json:"status"`
	Message string            `json:"message"`
	// внутренний признак ошибки клиента (400) против внутренней (500)
	ClientError bool `json:"-"`
}
