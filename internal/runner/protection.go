package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ratio_bot/internal/metrics"
	"ratio_bot/internal/models"
	"ratio_bot/pkg/logger"
)

type ProtectionConfig struct {
	// шаг прогрессивной защиты, %
	Margin decimal.Decimal
	// стоп для позиций, найденных на бирже без записи в реестре, %
	DefaultStopPct decimal.Decimal
}

// Protector один проход цикла защиты по всем открытым позициям.
type Protector struct {
	ex  Exchange
	reg *PositionRegistry
	n   Notifier
	j   Journal
	cfg ProtectionConfig
	now func() time.Time
}

func NewProtector(ex Exchange, reg *PositionRegistry, n Notifier, j Journal, cfg ProtectionConfig) *Protector {
	if j == nil {
		j = NoopJournal()
	}
	return &Protector{ex: ex, reg: reg, n: n, j: j, cfg: cfg, now: time.Now}
}

// RunOnce ошибка по одному символу не прерывает проход по остальным.
func (p *Protector) RunOnce(ctx context.Context) error {
	snapshotAt := p.now()
	open, err := p.ex.OpenPositions(ctx)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("positions").Inc()
		return fmt.Errorf("open positions: %w", err)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Symbol < open[j].Symbol })

	seen := make(map[string]struct{}, len(open))
	for _, pos := range open {
		seen[pos.Symbol] = struct{}{}
	}
	if pruned := p.reg.Prune(seen, snapshotAt); len(pruned) > 0 {
		logger.Info("[PROTECT] позиции закрыты на бирже, убраны из реестра: %v", pruned)
	}

	for _, pos := range open {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.protect(ctx, pos)
	}
	metrics.Tracked.Set(float64(p.reg.Count()))
	return nil
}

func (p *Protector) protect(ctx context.Context, pos models.ExchangePosition) {
	tracked, ok := p.reg.Get(pos.Symbol)
	if !ok {
		tracked, ok = p.reseed(pos)
		if !ok {
			return
		}
	}

	price, err := p.ex.LastPrice(ctx, pos.Symbol)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("ticker").Inc()
		logger.Warn("[PROTECT] %s: цена: %v", pos.Symbol, err)
		return
	}
	inst, err := p.ex.Instrument(ctx, pos.Symbol)
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues("instrument").Inc()
		logger.Warn("[PROTECT] %s: инструмент: %v", pos.Symbol, err)
		return
	}

	d := DecideTrail(tracked, price, p.cfg.Margin, inst.TickSize)
	switch d.Action {
	case TrailNone:
		return
	case TrailAdvance:
		if p.reg.Update(d.Next) {
			logger.Info("[PROTECT] %s: фаза -> %s, экстремум %s, стоп на бирже %s уже не хуже",
				pos.Symbol, d.Next.Phase, price, tracked.StopPrice)
		}
		return
	}

	if err := p.ex.SetStopLoss(ctx, pos.Symbol, d.NewStop); err != nil {
		metrics.ExchangeErrors.WithLabelValues("stop").Inc()
		logger.Error("[PROTECT] %s: перенос стопа %s -> %s: %v", pos.Symbol, tracked.StopPrice, d.NewStop, err)
		return
	}

	next := d.Next
	next.LastMovedAt = p.now()
	if !p.reg.Update(next) {
		// запись удалили (закрытие) пока ходили на биржу
		logger.Info("[PROTECT] %s: позиция ушла из реестра во время переноса стопа", pos.Symbol)
		return
	}

	move := models.StopMove{
		Symbol:    pos.Symbol,
		Side:      tracked.Side,
		From:      tracked.Phase,
		To:        next.Phase,
		OldStop:   tracked.StopPrice,
		NewStop:   d.NewStop,
		Price:     price,
		Entry:     tracked.Entry,
		LockedPct: d.LockedPct,
	}
	metrics.StopMoves.WithLabelValues(next.Phase.String()).Inc()

	switch d.Action {
	case TrailLock:
		logger.Info("[PROTECT] 🎯 %s: цель 2:1 (%s), стоп -> %s", pos.Symbol, price, d.NewStop)
		p.n.Send(ctx, msgBreakevenLock(move))
	case TrailStep:
		logger.Info("[PROTECT] 📈 %s: шаг защиты, стоп -> %s (цена %s)", pos.Symbol, d.NewStop, price)
		p.n.Send(ctx, msgTrailing(move, p.cfg.Margin))
	}
	if err := p.j.RecordStopMove(ctx, move, next.LastMovedAt); err != nil {
		logger.Warn("[PROTECT] журнал: %v", err)
	}
}

// reseed позиция есть на бирже, но не в реестре (рестарт, ручное открытие).
func (p *Protector) reseed(pos models.ExchangePosition) (models.TrackedPosition, bool) {
	t := models.TrackedPosition{
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		Entry:       pos.AvgPrice,
		Extreme:     pos.AvgPrice,
		StopDistPct: p.cfg.DefaultStopPct,
		Phase:       models.PhaseUnprotected,
		StopPrice:   pos.StopLoss,
		InitialStop: pos.StopLoss,
		SeededAt:    p.now(),
		Reseeded:    true,
	}
	if !p.reg.SeedIfAbsent(t) {
		// открывается прямо сейчас или уже подхвачена
		return p.reg.Get(pos.Symbol)
	}
	logger.Info("[PROTECT] %s %s подхвачена: вход %s, стоп по умолчанию %s%%",
		pos.Symbol, pos.Side.Upper(), pos.AvgPrice, p.cfg.DefaultStopPct)
	return t, true
}
