package bybit_client

import (
	"go.uber.org/fx"

	"ratio_bot/internal/modules/bybit_client/service"
	"ratio_bot/internal/modules/config"
	"ratio_bot/internal/runner"
)

func Module() fx.Option {
	return fx.Module("bybit_client",
		fx.Provide(
			func(cfg *config.Config) *service.Client {
				return service.NewClient(cfg.Bybit)
			},
			// *service.Client -> runner.Exchange
			func(c *service.Client) runner.Exchange {
				return c
			},
		),
	)
}
