package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"ratio_bot/internal/modules/api"
	bybit "ratio_bot/internal/modules/bybit_client"
	"ratio_bot/internal/modules/config"
	"ratio_bot/internal/modules/health"
	"ratio_bot/internal/modules/postgres"
	telegram "ratio_bot/internal/modules/telegram_bot"
	"ratio_bot/internal/runner"
	"ratio_bot/pkg/logger"
	"ratio_bot/pkg/tracing"
)

const serviceName = "ratio_bot"

func main() {
	fx.New(options()...).Run()
}

func options() []fx.Option {
	return []fx.Option{
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Provide(newLogger),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		fx.Invoke(initTracing),

		postgres.Module(),
		bybit.Module(),
		telegram.Module(),
		health.Module(),
		runner.Module(),
		api.Module(),
	}
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(serviceName)
	l, err := logger.Init(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Sync()
			return nil
		},
	})
	return l, nil
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	name := cfg.Tracing.ServiceName
	if name == "" {
		name = serviceName
	}
	tracing.SetServiceName(name)

	_, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}
