package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"ratio_bot/internal/modules/config"
	"ratio_bot/internal/modules/postgres/service"
	"ratio_bot/internal/runner"
	"ratio_bot/pkg/db"
	"ratio_bot/pkg/logger"
)

// NewJournal без db_dsn журнал выключен (no-op).
func NewJournal(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (runner.Journal, error) {
	if cfg.DB == "" {
		logger.Info("[PG] db_dsn не задан, журнал сделок выключен")
		return runner.NoopJournal(), nil
	}

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	if err = poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, err
	}

	tx := db.NewPgTxManager(poolMaster)
	journal := service.NewJournal(tx)
	if err = journal.EnsureSchema(ctx); err != nil {
		tx.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tx.Close()
			return nil
		},
	})
	return journal, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewJournal,
		),
	)
}
