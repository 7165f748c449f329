package runner

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"ratio_bot/internal/modules/config"
)

// SettingsFromConfig переводит float-конфиг в decimal один раз на старте.
func SettingsFromConfig(cfg *config.Config) Settings {
	t := cfg.Trading
	return Settings{
		Intake: IntakeConfig{
			BaseRisk:       decimal.NewFromFloat(t.BaseRisk),
			SafetyMargin:   decimal.NewFromFloat(t.SafetyMargin),
			DefaultStopPct: decimal.NewFromFloat(t.DefaultStopPct),
			MaxStopPct:     decimal.NewFromFloat(t.MaxStopPct),
		},
		Opener: OpenerConfig{
			MaxPositions:   t.MaxPositions,
			ConfirmTimeout: t.OpenConfirmTimeout,
			ConfirmPoll:    t.OpenConfirmPoll,
		},
		Protection: ProtectionConfig{
			Margin:         decimal.NewFromFloat(t.ProgressiveMargin),
			DefaultStopPct: decimal.NewFromFloat(t.DefaultStopPct),
		},
		Cooldown:        t.Cooldown,
		ProtectionEvery: cfg.Loops.Protection,
		SettlementEvery: cfg.Loops.Settlement,
		SweepEvery:      cfg.Loops.Sweep,
	}
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			SettingsFromConfig,
			NewService,
		),
		fx.Invoke(func(lc fx.Lifecycle, s *Service) {
			// циклы живут дольше OnStart-контекста, поэтому свой корневой контекст
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					s.Start(ctx)
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					return s.Stop(stopCtx)
				},
			})
		}),
	)
}
