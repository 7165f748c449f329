package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ratio_bot/internal/models"
	"ratio_bot/internal/runner"
	"ratio_bot/pkg/logger"
)

// Controller то, что API дёргает у раннера.
type Controller interface {
	HandleSignal(ctx context.Context, req models.SignalRequest) models.Disposition
	Status(ctx context.Context) (runner.StatusReport, error)
}

type Handlers struct {
	ctl Controller
}

func NewHandlers(ctl Controller) *Handlers {
	return &Handlers{ctl: ctl}
}

// Signal POST /signal
func (h *Handlers) Signal(c *gin.Context) {
	var req models.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Disposition{
			Status:  models.StatusError,
			Message: "некорректное тело запроса: " + err.Error(),
		})
		return
	}

	d := h.ctl.HandleSignal(c.Request.Context(), req)

	code := http.StatusOK
	if d.Status == models.StatusError {
		code = http.StatusInternalServerError
		if d.ClientError {
			code = http.StatusBadRequest
		}
	}
	c.JSON(code, d)
}

// Status GET /status
func (h *Handlers) Status(c *gin.Context) {
	st, err := h.ctl.Status(c.Request.Context())
	if err != nil {
		logger.Error("[API] status: %v", err)
		c.JSON(http.StatusInternalServerError, models.Disposition{
			Status:  models.StatusError,
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, st)
}

func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLog())

	router.POST("/signal", h.Signal)
	router.GET("/status", h.Status)
	return router
}

// requestLog access-лог через общий zap-логгер.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("[API] %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
