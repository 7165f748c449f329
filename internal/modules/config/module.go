package config

import "go.uber.org/fx"

// Module отдаёт *Config: дефолты, yaml из configs/, .env и переменные окружения.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
	)
}
