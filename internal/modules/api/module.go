package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"ratio_bot/internal/modules/config"
	health "ratio_bot/internal/modules/health/service"
	"ratio_bot/internal/runner"
	"ratio_bot/pkg/logger"
)

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine, state *health.State) {
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("[API] 🌐 слушаем сигналы на http://%s", addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[API] serve: %v", err)
				}
			}()
			state.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			// *runner.Service -> Controller
			func(s *runner.Service) Controller { return s },
			NewHandlers,
			NewRouter,
		),
		fx.Invoke(func() { gin.SetMode(gin.ReleaseMode) }),
		fx.Invoke(RunHTTP),
	)
}
