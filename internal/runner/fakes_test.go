package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ratio_bot/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

type placedOrder struct {
	Symbol string
	Side   models.Side
	Qty    decimal.Decimal
}

type stopCall struct {
	Symbol string
	Stop   decimal.Decimal
}

// fakeExchange биржа в памяти: маркет-ордер сразу открывает позицию по текущей цене.
type fakeExchange struct {
	mu sync.Mutex

	instruments map[string]models.Instrument
	prices      map[string]decimal.Decimal
	positions   map[string]models.ExchangePosition
	closed      []models.ClosedTrade // новые в конце

	orders []placedOrder
	stops  []stopCall

	noFill        bool
	orderDelay    time.Duration
	failOrder     error
	failStop      error
	failPositions error
	failTicker    error
	failClosed    error
	failInstr     error
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		instruments: make(map[string]models.Instrument),
		prices:      make(map[string]decimal.Decimal),
		positions:   make(map[string]models.ExchangePosition),
	}
}

func (f *fakeExchange) addInstrument(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instruments[symbol] = models.Instrument{
		Symbol:      symbol,
		Status:      "Trading",
		QtyStep:     d("0.01"),
		MinOrderQty: d("0.01"),
		MaxOrderQty: d("100000"),
		TickSize:    d("0.01"),
		PriceScale:  2,
	}
	f.prices[symbol] = d(price)
}

func (f *fakeExchange) setPrice(symbol, price string) {
	f.mu.Lock()
	f.prices[symbol] = d(price)
	f.mu.Unlock()
}

func (f *fakeExchange) openExternal(symbol string, side models.Side, size, avg string) {
	f.mu.Lock()
	f.positions[symbol] = models.ExchangePosition{Symbol: symbol, Side: side, Size: d(size), AvgPrice: d(avg)}
	f.mu.Unlock()
}

// setExchangeStop стоп, который уже стоит на бирже (ручной или от прошлого запуска).
func (f *fakeExchange) setExchangeStop(symbol, stop string) {
	f.mu.Lock()
	p := f.positions[symbol]
	p.StopLoss = d(stop)
	f.positions[symbol] = p
	f.mu.Unlock()
}

// closePosition позиция закрылась (стоп или руками), в closed-pnl появляется запись.
func (f *fakeExchange) closePosition(symbol, id, pnl string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.positions[symbol]
	delete(f.positions, symbol)
	side := "Sell"
	if p.Side == models.SideShort {
		side = "Buy"
	}
	f.closed = append(f.closed, models.ClosedTrade{ID: id, Symbol: symbol, Side: side, ClosedPnL: d(pnl)})
}

func (f *fakeExchange) ordersCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeExchange) stopCalls() []stopCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stopCall(nil), f.stops...)
}

func (f *fakeExchange) Instrument(_ context.Context, symbol string) (models.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInstr != nil {
		return models.Instrument{}, f.failInstr
	}
	inst, ok := f.instruments[symbol]
	if !ok {
		return models.Instrument{}, fmt.Errorf("%s: %w", symbol, models.ErrNotTradable)
	}
	return inst, nil
}

func (f *fakeExchange) LastPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTicker != nil {
		return decimal.Zero, f.failTicker
	}
	px, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no ticker %s: %w", symbol, models.ErrExchange)
	}
	return px, nil
}

func (f *fakeExchange) Position(_ context.Context, symbol string) (models.ExchangePosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPositions != nil {
		return models.ExchangePosition{}, f.failPositions
	}
	if p, ok := f.positions[symbol]; ok {
		return p, nil
	}
	return models.ExchangePosition{Symbol: symbol}, nil
}

func (f *fakeExchange) OpenPositions(_ context.Context) ([]models.ExchangePosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPositions != nil {
		return nil, f.failPositions
	}
	out := make([]models.ExchangePosition, 0, len(f.positions))
	for _, p := range f.positions {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeExchange) PlaceMarket(_ context.Context, symbol string, side models.Side, qty decimal.Decimal) (string, error) {
	f.mu.Lock()
	delay := f.orderDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOrder != nil {
		return "", f.failOrder
	}
	f.orders = append(f.orders, placedOrder{Symbol: symbol, Side: side, Qty: qty})
	if !f.noFill {
		f.positions[symbol] = models.ExchangePosition{
			Symbol:   symbol,
			Side:     side,
			Size:     qty,
			AvgPrice: f.prices[symbol],
		}
	}
	return fmt.Sprintf("ord-%d", len(f.orders)), nil
}

func (f *fakeExchange) SetStopLoss(_ context.Context, symbol string, stop decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStop != nil {
		return f.failStop
	}
	f.stops = append(f.stops, stopCall{Symbol: symbol, Stop: stop})
	if p, ok := f.positions[symbol]; ok {
		p.StopLoss = stop
		f.positions[symbol] = p
	}
	return nil
}

func (f *fakeExchange) ClosedPnL(_ context.Context, limit int) ([]models.ClosedTrade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClosed != nil {
		return nil, f.failClosed
	}
	var out []models.ClosedTrade
	for i := len(f.closed) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.closed[i])
	}
	return out, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Send(_ context.Context, msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func (n *fakeNotifier) count(substr string) int {
	c := 0
	for _, m := range n.all() {
		if strings.Contains(m, substr) {
			c++
		}
	}
	return c
}

type fakeJournal struct {
	mu     sync.Mutex
	opens  []models.OpenResult
	moves  []models.StopMove
	closes []models.ClosedTrade
}

func (j *fakeJournal) RecordOpen(_ context.Context, r models.OpenResult, _ time.Time) error {
	j.mu.Lock()
	j.opens = append(j.opens, r)
	j.mu.Unlock()
	return nil
}

func (j *fakeJournal) RecordStopMove(_ context.Context, m models.StopMove, _ time.Time) error {
	j.mu.Lock()
	j.moves = append(j.moves, m)
	j.mu.Unlock()
	return nil
}

func (j *fakeJournal) RecordClose(_ context.Context, t models.ClosedTrade) error {
	j.mu.Lock()
	j.closes = append(j.closes, t)
	j.mu.Unlock()
	return nil
}

func testSettings() Settings {
	return Settings{
		Intake: IntakeConfig{
			BaseRisk:       d("1"),
			SafetyMargin:   d("0.5"),
			DefaultStopPct: d("1.5"),
			MaxStopPct:     d("10"),
		},
		Opener: OpenerConfig{
			MaxPositions:   1,
			ConfirmTimeout: 200 * time.Millisecond,
			ConfirmPoll:    10 * time.Millisecond,
		},
		Protection: ProtectionConfig{
			Margin:         d("2"),
			DefaultStopPct: d("1.5"),
		},
		Cooldown:        60 * time.Minute,
		ProtectionEvery: 10 * time.Millisecond,
		SettlementEvery: 10 * time.Millisecond,
		SweepEvery:      10 * time.Millisecond,
	}
}
