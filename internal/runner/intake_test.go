package runner

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratio_bot/internal/models"
)

func pct(v string) *decimal.Decimal {
	x := decimal.RequireFromString(v)
	return &x
}

func newTestService(ex *fakeExchange) (*Service, *fakeNotifier, *fakeJournal) {
	n := &fakeNotifier{}
	j := &fakeJournal{}
	return NewService(testSettings(), ex, n, j, nil), n, j
}

func TestIntakeValidationOrder(t *testing.T) {
	ex := newFakeExchange()
	ex.addInstrument("ABCUSDT", "100")

	tests := []struct {
		name        string
		req         models.SignalRequest
		status      models.DispositionStatus
		clientError bool
	}{
		{"missing symbol", models.SignalRequest{Side: "long"}, models.StatusError, true},
		{"missing side", models.SignalRequest{Symbol: "ABCUSDT"}, models.StatusError, true},
		{"bad side", models.SignalRequest{Symbol: "ABCUSDT", Side: "up"}, models.StatusError, true},
		{"non-positive distance", models.SignalRequest{Symbol: "ABCUSDT", Side: "long", StopDistance: pct("-0.5")}, models.StatusError, true},
		{"over ceiling", models.SignalRequest{Symbol: "ABCUSDT", Side: "long", StopDistance: pct("9.6")}, models.StatusRejected, false},
		// ceiling проверяется раньше инструмента
		{"over ceiling on unknown symbol", models.SignalRequest{Symbol: "NOPEUSDT", Side: "short", StopDistance: pct("12")}, models.StatusRejected, false},
		{"not tradable", models.SignalRequest{Symbol: "NOPEUSDT", Side: "long"}, models.StatusIgnored, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestService(ex)
			got := s.HandleSignal(context.Background(), tt.req)
			assert.Equal(t, tt.status, got.Status, got.Message)
			assert.Equal(t, tt.clientError, got.ClientError)
			assert.NotEmpty(t, got.Message)
			assert.Equal(t, 0, ex.ordersCount(), "no side effects")
		})
	}
}

func TestIntakeExactCeilingAccepted(t *testing.T) {
	ex := newFakeExchange()
	ex.addInstrument("ABCUSDT", "100")
	s, _, _ := newTestService(ex)

	// 9.5 + 0.5 = 10: не больше потолка
	got := s.HandleSignal(context.Background(), models.SignalRequest{Symbol: "abcusdt", Side: "LONG", StopDistance: pct("9.5")})
	require.Equal(t, models.StatusSuccess, got.Status, got.Message)

	p, ok := s.Positions.Get("ABCUSDT")
	require.True(t, ok)
	requireDec(t, "10", p.StopDistPct)
}

func TestIntakeDefaultsStopDistance(t *testing.T) {
	ex := newFakeExchange()
	ex.addInstrument("ABCUSDT", "100")
	s, _, _ := newTestService(ex)

	got := s.HandleSignal(context.Background(), models.SignalRequest{Symbol: "ABCUSDT", Side: "short"})
	require.Equal(t, models.StatusSuccess, got.Status, got.Message)

	p, _ := s.Positions.Get("ABCUSDT")
	requireDec(t, "2", p.StopDistPct) // 1.5 по умолчанию + 0.5
	assert.Equal(t, models.SideShort, p.Side)
	requireDec(t, "102", p.StopPrice)
}

func TestIntakeCooldownOnlyAfterSuccess(t *testing.T) {
	ex := newFakeExchange()
	ex.addInstrument("ABCUSDT", "100")
	ex.failOrder = models.ErrExchange
	s, _, _ := newTestService(ex)
	clk := &fakeClock{now: time.Now()}
	s.Cooldowns.WithClock(clk.Now)

	req := models.SignalRequest{Symbol: "ABCUSDT", Side: "long"}
	got := s.HandleSignal(context.Background(), req)
	assert.Equal(t, models.StatusError, got.Status)
	assert.False(t, got.ClientError)
	assert.Empty(t, s.Cooldowns.Symbols(), "failed open does not start cooldown")

	ex.mu.Lock()
	ex.failOrder = nil
	ex.mu.Unlock()

	got = s.HandleSignal(context.Background(), req)
	require.Equal(t, models.StatusSuccess, got.Status, got.Message)
	assert.Equal(t, []string{"ABCUSDT"}, s.Cooldowns.Symbols())

	// позиция закрылась, но кулдаун считается от входа
	ex.closePosition("ABCUSDT", "c-1", "-1")
	s.Positions.Remove("ABCUSDT")

	clk.Advance(59 * time.Minute)
	got = s.HandleSignal(context.Background(), req)
	assert.Equal(t, models.StatusIgnored, got.Status)
	assert.Contains(t, got.Message, "кулдаун")

	clk.Advance(2 * time.Minute)
	got = s.HandleSignal(context.Background(), req)
	assert.Equal(t, models.StatusSuccess, got.Status, got.Message)
}

func TestIntakeCapacityRejected(t *testing.T) {
	ex := newFakeExchange()
	ex.addInstrument("ABCUSDT", "100")
	ex.addInstrument("XYZUSDT", "10")
	s, n, _ := newTestService(ex)

	got := s.HandleSignal(context.Background(), models.SignalRequest{Symbol: "ABCUSDT", Side: "long"})
	require.Equal(t, models.StatusSuccess, got.Status)

	got = s.HandleSignal(context.Background(), models.SignalRequest{Symbol: "XYZUSDT", Side: "long"})
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, 1, ex.ordersCount())
	assert.Equal(t, 1, n.count("лимит"))
	assert.NotContains(t, s.Cooldowns.Symbols(), "XYZUSDT")
}

func TestIntakeDuplicateSignals(t *testing.T) {
	ex := newFakeExchange()
	ex.addInstrument("ABCUSDT", "100")
	ex.orderDelay = 20 * time.Millisecond
	s, _, _ := newTestService(ex)

	req := models.SignalRequest{Symbol: "ABCUSDT", Side: "long"}
	results := make(chan models.Disposition, 2)
	for i := 0; i < 2; i++ {
		go func() { results <- s.HandleSignal(context.Background(), req) }()
	}

	var success, other int
	for i := 0; i < 2; i++ {
		r := <-results
		if r.Status == models.StatusSuccess {
			success++
		} else {
			other++
			assert.Contains(t, []models.DispositionStatus{models.StatusRejected, models.StatusIgnored}, r.Status)
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, other)
	assert.Equal(t, 1, ex.ordersCount())
}

func longReq(symbol string) models.SignalRequest {
	return models.SignalRequest{Symbol: symbol, Side: "long"}
}
