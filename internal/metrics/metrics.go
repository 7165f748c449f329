// Package metrics метрики бота для Prometheus (отдаются на admin-порту /metrics).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// итог обработки сигнала: success|rejected|ignored|error
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratio_signals_total",
			Help: "Signals handled, by disposition status",
		},
		[]string{"status"},
	)

	Opened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratio_positions_opened_total",
			Help: "Positions opened by the bot",
		},
		[]string{"side"},
	)

	// переносы стопа: to=breakeven_locked|trailing
	StopMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratio_stop_moves_total",
			Help: "Stop-loss moves performed by the protection loop",
		},
		[]string{"to"},
	)

	// закрытые сделки: result=win|loss
	Closed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratio_trades_closed_total",
			Help: "Closed trades observed by the settlement watcher",
		},
		[]string{"result"},
	)

	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratio_realized_pnl_usdt",
			Help: "Sum of realized PnL since start",
		},
	)

	Tracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratio_tracked_positions",
			Help: "Positions currently in the registry",
		},
	)

	Cooldowns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratio_active_cooldowns",
			Help: "Symbols currently in cooldown",
		},
	)

	ExchangeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratio_exchange_errors_total",
			Help: "Failed exchange calls by operation",
		},
		[]string{"op"},
	)

	LoopIterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratio_loop_iterations_total",
			Help: "Completed control-loop iterations",
		},
		[]string{"loop"},
	)

	NotifyDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ratio_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full or delivery failed",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Signals,
		Opened,
		StopMoves,
		Closed,
		RealizedPnL,
		Tracked,
		Cooldowns,
		ExchangeErrors,
		LoopIterations,
		NotifyDropped,
	)
}
