package telegram

import (
	"context"

	"go.uber.org/fx"

	"ratio_bot/internal/modules/telegram_bot/service"
	"ratio_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			service.NewTelegram,
			// *service.Telegram -> runner.Notifier
			func(t *service.Telegram) runner.Notifier {
				return t
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						t.Start()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return t.Stop(ctx)
					},
				})
			},
		),
	)
}
