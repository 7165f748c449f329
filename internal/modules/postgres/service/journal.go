package service

import (
	"context"
	"fmt"
	"time"

	"ratio_bot/internal/models"
	"ratio_bot/pkg/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS trade_events (
    id          BIGSERIAL PRIMARY KEY,
    kind        TEXT        NOT NULL,
    symbol      TEXT        NOT NULL,
    side        TEXT        NOT NULL,
    price       NUMERIC,
    stop_price  NUMERIC,
    qty         NUMERIC,
    notional    NUMERIC,
    pnl         NUMERIC,
    phase       TEXT,
    ref_id      TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS trade_events_close_ref
    ON trade_events (ref_id) WHERE kind = 'close';
`

const (
	kindOpen  = "open"
	kindStop  = "stop_move"
	kindClose = "close"
)

// Journal аудит сделок в Postgres. Только запись, бот из него ничего не читает.
type Journal struct {
	tx db.TxManager
}

func NewJournal(tx db.TxManager) *Journal {
	return &Journal{tx: tx}
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	if _, err := j.tx.Conn().Exec(ctx, schema); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	return nil
}

func (j *Journal) RecordOpen(ctx context.Context, r models.OpenResult, at time.Time) error {
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trade_events (kind, symbol, side, price, stop_price, qty, notional, ref_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			kindOpen, r.Symbol, string(r.Side), r.Entry.String(), r.StopPrice.String(),
			r.Qty.String(), r.Notional.String(), r.OrderID, at,
		)
		return err
	})
}

func (j *Journal) RecordStopMove(ctx context.Context, m models.StopMove, at time.Time) error {
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trade_events (kind, symbol, side, price, stop_price, phase, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			kindStop, m.Symbol, string(m.Side), m.Price.String(), m.NewStop.String(), m.To.String(), at,
		)
		return err
	})
}

// RecordClose повторная запись того же orderId игнорируется.
func (j *Journal) RecordClose(ctx context.Context, t models.ClosedTrade) error {
	at := t.ClosedAt
	if at.IsZero() {
		at = time.Now()
	}
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trade_events (kind, symbol, side, price, qty, pnl, ref_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (ref_id) WHERE kind = 'close' DO NOTHING`,
			kindClose, t.Symbol, t.Side, t.AvgExit.String(), t.Qty.String(), t.ClosedPnL.String(), t.ID, at,
		)
		return err
	})
}
