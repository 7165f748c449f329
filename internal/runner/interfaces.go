package runner

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ratio_bot/internal/models"
)

// Exchange то, что раннеру нужно от биржи.
type Exchange interface {
	Instrument(ctx context.Context, symbol string) (models.Instrument, error)
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// Position позиция по символу; нулевой размер = позиции нет.
	Position(ctx context.Context, symbol string) (models.ExchangePosition, error)
	// OpenPositions все позиции с ненулевым размером.
	OpenPositions(ctx context.Context) ([]models.ExchangePosition, error)
	PlaceMarket(ctx context.Context, symbol string, side models.Side, qty decimal.Decimal) (string, error)
	SetStopLoss(ctx context.Context, symbol string, stop decimal.Decimal) error
	// ClosedPnL последние закрытые сделки, от новых к старым.
	ClosedPnL(ctx context.Context, limit int) ([]models.ClosedTrade, error)
}

// Notifier односторонний канал уведомлений; ошибки доставки не влияют на торговлю.
type Notifier interface {
	Send(ctx context.Context, msg string)
}

// Journal аудит событий (опционально, см. postgres).
type Journal interface {
	RecordOpen(ctx context.Context, r models.OpenResult, at time.Time) error
	RecordStopMove(ctx context.Context, m models.StopMove, at time.Time) error
	RecordClose(ctx context.Context, t models.ClosedTrade) error
}

// Heartbeat отметки о проходах циклов для health.
type Heartbeat interface {
	TouchLoop(name string, at time.Time)
}

type noopJournal struct{}

func (noopJournal) RecordOpen(context.Context, models.OpenResult, time.Time) error { return nil }
func (noopJournal) RecordStopMove(context.Context, models.StopMove, time.Time) error {
	return nil
}
func (noopJournal) RecordClose(context.Context, models.ClosedTrade) error { return nil }

// NoopJournal журнал, который ничего не пишет.
func NoopJournal() Journal { return noopJournal{} }

type noopHeartbeat struct{}

func (noopHeartbeat) TouchLoop(string, time.Time) {}
