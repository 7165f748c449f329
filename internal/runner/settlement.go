package runner

import (
	"context"
	"fmt"
	"sync"

	"ratio_bot/internal/helper"
	"ratio_bot/internal/metrics"
	"ratio_bot/internal/models"
	"ratio_bot/pkg/logger"
)

// SettlementWatcher следит за последней закрытой сделкой.
// Первое чтение только запоминает id, уведомлений по старой истории нет.
type SettlementWatcher struct {
	ex  Exchange
	reg *PositionRegistry
	n   Notifier
	j   Journal

	mu       sync.Mutex
	lastID   string
	baseline bool
}

func NewSettlementWatcher(ex Exchange, reg *PositionRegistry, n Notifier, j Journal) *SettlementWatcher {
	if j == nil {
		j = NoopJournal()
	}
	return &SettlementWatcher{ex: ex, reg: reg, n: n, j: j}
}

func (w *SettlementWatcher) RunOnce(ctx context.Context) error {
	trades, err := w.ex.ClosedPnL(ctx, 1)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("closed_pnl").Inc()
		return fmt.Errorf("closed pnl: %w", err)
	}
	if len(trades) == 0 {
		w.mu.Lock()
		w.baseline = true
		w.mu.Unlock()
		return nil
	}
	last := trades[0]

	w.mu.Lock()
	first := !w.baseline
	same := last.ID == w.lastID
	w.baseline = true
	w.lastID = last.ID
	w.mu.Unlock()

	if first {
		logger.Info("[SETTLE] базовая точка: %s %s", last.Symbol, last.ID)
		return nil
	}
	if same {
		return nil
	}

	w.settle(ctx, last)
	return nil
}

func (w *SettlementWatcher) settle(ctx context.Context, t models.ClosedTrade) {
	symbol := helper.NormSymbol(t.Symbol)
	if _, ok := w.reg.Remove(symbol); ok {
		logger.Info("[SETTLE] %s снят с сопровождения", symbol)
	}

	result := "loss"
	if t.Win() {
		result = "win"
	}
	logger.Info("[SETTLE] %s %s закрыта, pnl=%s (%s)", symbol, t.Side, t.ClosedPnL, result)

	metrics.Closed.WithLabelValues(result).Inc()
	pnl, _ := t.ClosedPnL.Float64()
	metrics.RealizedPnL.Add(pnl)
	metrics.Tracked.Set(float64(w.reg.Count()))

	w.n.Send(ctx, msgClosed(t))
	if err := w.j.RecordClose(ctx, t); err != nil {
		logger.Warn("[SETTLE] журнал: %v", err)
	}
}

// LastID последний увиденный id (для /status и тестов).
func (w *SettlementWatcher) LastID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastID
}
