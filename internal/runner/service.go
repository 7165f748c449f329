package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ratio_bot/internal/metrics"
	"ratio_bot/internal/models"
	"ratio_bot/pkg/logger"
)

const (
	LoopProtection = "protection"
	LoopSettlement = "settlement"
	LoopSweep      = "cooldown_sweep"
)

type Settings struct {
	Intake     IntakeConfig
	Opener     OpenerConfig
	Protection ProtectionConfig
	Cooldown   time.Duration

	ProtectionEvery time.Duration
	SettlementEvery time.Duration
	SweepEvery      time.Duration
}

// StatusReport ответ GET /status.
type StatusReport struct {
	Status            string   `json:"status"`
	OpenPositions     int      `json:"open_positions"`
	MaxPositions      int      `json:"max_positions"`
	SymbolsInCooldown []string `json:"symbols_in_cooldown"`
	BaseAmount        float64  `json:"base_amount"`
	ProgressiveMargin float64  `json:"progressive_margin"`
}

// Service собирает реестры, открытие и циклы в один контроллер.
type Service struct {
	settings Settings
	ex       Exchange
	n        Notifier

	Positions  *PositionRegistry
	Cooldowns  *CooldownRegistry
	Opener     *Opener
	Protector  *Protector
	Settlement *SettlementWatcher
	Intake     *Intake

	sched *Scheduler
}

func NewService(st Settings, ex Exchange, n Notifier, j Journal, hb Heartbeat) *Service {
	if j == nil {
		j = NoopJournal()
	}
	positions := NewPositionRegistry()
	cooldowns := NewCooldownRegistry(st.Cooldown)
	opener := NewOpener(ex, positions, n, j, st.Opener)

	s := &Service{
		settings:   st,
		ex:         ex,
		n:          n,
		Positions:  positions,
		Cooldowns:  cooldowns,
		Opener:     opener,
		Protector:  NewProtector(ex, positions, n, j, st.Protection),
		Settlement: NewSettlementWatcher(ex, positions, n, j),
		Intake:     NewIntake(ex, cooldowns, opener, st.Intake),
	}
	s.sched = NewScheduler(hb, s.Loops()...)
	return s
}

func (s *Service) Loops() []Loop {
	return []Loop{
		{Name: LoopProtection, Interval: s.settings.ProtectionEvery, Run: s.Protector.RunOnce},
		{Name: LoopSettlement, Interval: s.settings.SettlementEvery, Run: s.Settlement.RunOnce},
		{Name: LoopSweep, Interval: s.settings.SweepEvery, Run: s.sweep},
	}
}

func (s *Service) sweep(context.Context) error {
	if n := s.Cooldowns.Sweep(); n > 0 {
		logger.Info("[COOLDOWN] ✅ снято с кулдауна: %d", n)
	}
	metrics.Cooldowns.Set(float64(len(s.Cooldowns.Symbols())))
	return nil
}

func (s *Service) Start(ctx context.Context) {
	s.n.Send(ctx, msgStartup(
		s.settings.Intake.BaseRisk,
		s.settings.Protection.Margin,
		s.settings.Opener.MaxPositions,
		s.settings.Cooldown,
	))
	s.sched.Start(ctx)
}

func (s *Service) Stop(ctx context.Context) error {
	return s.sched.Stop(ctx)
}

func (s *Service) HandleSignal(ctx context.Context, req models.SignalRequest) models.Disposition {
	return s.Intake.Handle(ctx, req)
}

// Status число открытых позиций берём с биржи, как и лимит при открытии.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	open, err := s.ex.OpenPositions(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("open positions: %w", err)
	}
	return StatusReport{
		Status:            "online",
		OpenPositions:     len(open),
		MaxPositions:      s.settings.Opener.MaxPositions,
		SymbolsInCooldown: s.Cooldowns.Symbols(),
		BaseAmount:        toFloat(s.settings.Intake.BaseRisk),
		ProgressiveMargin: toFloat(s.settings.Protection.Margin),
	}, nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
