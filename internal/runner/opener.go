package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"

	"ratio_bot/internal/metrics"
	"ratio_bot/internal/models"
	"ratio_bot/pkg/logger"
)

type OpenerConfig struct {
	MaxPositions   int
	ConfirmTimeout time.Duration
	ConfirmPoll    time.Duration
}

// Opener открывает позицию: лимиты, маркет-ордер, подтверждение, стоп, запись в реестр.
type Opener struct {
	ex  Exchange
	reg *PositionRegistry
	n   Notifier
	j   Journal
	cfg OpenerConfig
	now func() time.Time
}

func NewOpener(ex Exchange, reg *PositionRegistry, n Notifier, j Journal, cfg OpenerConfig) *Opener {
	if j == nil {
		j = NoopJournal()
	}
	return &Opener{ex: ex, reg: reg, n: n, j: j, cfg: cfg, now: time.Now}
}

// Open любой отказ или ошибка биржи оставляют реестр нетронутым; ретраев нет.
func (o *Opener) Open(ctx context.Context, sig models.Signal, notional decimal.Decimal) (res models.OpenResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.Open")
	span.SetTag("symbol", sig.Symbol)
	span.SetTag("side", string(sig.Side))
	defer func() {
		if err != nil {
			span.SetTag("error", true)
			span.LogKV("err", err.Error())
		}
		span.Finish()
	}()

	symbol := sig.Symbol

	// резерв до любых походов на биржу: параллельный сигнал по тому же символу сюда не пройдёт
	if !o.reg.Reserve(symbol, o.now()) {
		logger.Info("[OPEN] %s: уже сопровождается или открывается", symbol)
		o.n.Send(ctx, msgDuplicate(symbol))
		return res, fmt.Errorf("%s: %w", symbol, models.ErrDuplicate)
	}
	committed := false
	defer func() {
		if !committed {
			o.reg.Release(symbol)
		}
	}()

	if err = o.checkCapacity(ctx, symbol); err != nil {
		return res, err
	}

	inst, err := o.ex.Instrument(ctx, symbol)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("instrument").Inc()
		return res, fmt.Errorf("instrument %s: %w", symbol, err)
	}
	price, err := o.ex.LastPrice(ctx, symbol)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("ticker").Inc()
		return res, fmt.Errorf("last price %s: %w", symbol, err)
	}
	params, err := CalcTradeParams(notional, price, inst)
	if err != nil {
		return res, err
	}

	logger.Info("[OPEN] %s %s notional=%s qty=%s @ %s", symbol, sig.Side.Upper(),
		params.Notional.StringFixed(2), params.Qty, price)

	orderID, err := o.ex.PlaceMarket(ctx, symbol, sig.Side, params.Qty)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("order").Inc()
		return res, fmt.Errorf("market order %s: %w", symbol, err)
	}

	pos, err := o.awaitPosition(ctx, symbol)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("confirm").Inc()
		return res, fmt.Errorf("confirm %s order %s: %w", symbol, orderID, err)
	}

	entry := pos.AvgPrice
	if !entry.IsPositive() {
		entry = price
	}
	stop := RoundStop(InitialStop(entry, sig.Side, sig.StopDistPct), sig.Side, inst.TickSize)
	if err = o.ex.SetStopLoss(ctx, symbol, stop); err != nil {
		// позиция уже на бирже без стопа; цикл защиты подхватит её при следующем проходе
		metrics.ExchangeErrors.WithLabelValues("stop").Inc()
		logger.Error("[OPEN] %s: позиция открыта, но стоп %s не выставлен: %v", symbol, stop, err)
		return res, fmt.Errorf("initial stop %s: %w", symbol, err)
	}

	now := o.now()
	tracked := models.TrackedPosition{
		Symbol:       symbol,
		Side:         sig.Side,
		Entry:        entry,
		Extreme:      entry,
		StopDistPct:  sig.StopDistPct,
		Phase:        models.PhaseUnprotected,
		StopPrice:    stop,
		SeededAt:     now,
		InitialStop:  stop,
		OpenNotional: params.Notional,
	}
	o.reg.Commit(tracked)
	committed = true

	res = models.OpenResult{
		Symbol:    symbol,
		Side:      sig.Side,
		OrderID:   orderID,
		Qty:       params.Qty,
		Notional:  params.Notional,
		Entry:     entry,
		StopPrice: stop,
		LockAt:    TargetPrice(entry, sig.Side, sig.StopDistPct),
	}

	logger.Info("[OPEN] ✅ %s %s entry=%s stop=%s lock_at=%s", symbol, sig.Side.Upper(), entry, stop, res.LockAt.StringFixed(4))
	metrics.Opened.WithLabelValues(string(sig.Side)).Inc()
	o.n.Send(ctx, msgOpened(res, sig.StopDistPct))
	if jerr := o.j.RecordOpen(ctx, res, now); jerr != nil {
		logger.Warn("[OPEN] журнал: %v", jerr)
	}
	return res, nil
}

// checkCapacity считаем открытые на бирже символы плюс чужие резервы.
func (o *Opener) checkCapacity(ctx context.Context, symbol string) error {
	open, err := o.ex.OpenPositions(ctx)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("positions").Inc()
		return fmt.Errorf("open positions: %w", err)
	}

	busy := make(map[string]struct{}, len(open))
	for _, p := range open {
		if p.Symbol == symbol {
			logger.Info("[OPEN] %s: на бирже уже есть позиция", symbol)
			o.n.Send(ctx, msgDuplicate(symbol))
			return fmt.Errorf("%s: %w", symbol, models.ErrDuplicate)
		}
		busy[p.Symbol] = struct{}{}
	}
	for _, s := range o.reg.ReservedExcept(symbol) {
		busy[s] = struct{}{}
	}

	if len(busy) >= o.cfg.MaxPositions {
		logger.Info("[OPEN] %s: лимит позиций %d/%d", symbol, len(busy), o.cfg.MaxPositions)
		o.n.Send(ctx, msgCapacity(symbol, o.cfg.MaxPositions))
		return fmt.Errorf("%d/%d: %w", len(busy), o.cfg.MaxPositions, models.ErrCapacity)
	}
	return nil
}

// awaitPosition ждём, пока биржа покажет позицию по символу, не дольше ConfirmTimeout.
func (o *Opener) awaitPosition(ctx context.Context, symbol string) (models.ExchangePosition, error) {
	deadline := time.NewTimer(o.cfg.ConfirmTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(o.cfg.ConfirmPoll)
	defer poll.Stop()

	var lastErr error
	for {
		pos, err := o.ex.Position(ctx, symbol)
		if err == nil && pos.Open() {
			return pos, nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return models.ExchangePosition{}, ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return models.ExchangePosition{}, fmt.Errorf("position not confirmed in %s: %w", o.cfg.ConfirmTimeout, lastErr)
			}
			return models.ExchangePosition{}, fmt.Errorf("position not confirmed in %s: %w", o.cfg.ConfirmTimeout, models.ErrExchange)
		case <-poll.C:
		}
	}
}
