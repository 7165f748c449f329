package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/shopspring/decimal"

	"ratio_bot/internal/helper"
	"ratio_bot/internal/metrics"
	"ratio_bot/internal/models"
	"ratio_bot/pkg/logger"
)

type IntakeConfig struct {
	BaseRisk       decimal.Decimal
	SafetyMargin   decimal.Decimal
	DefaultStopPct decimal.Decimal
	MaxStopPct     decimal.Decimal
}

// Intake приём сигнала: проверки по порядку, затем Opener. Всегда возвращает ровно один ответ.
type Intake struct {
	ex  Exchange
	cd  *CooldownRegistry
	op  *Opener
	cfg IntakeConfig
}

func NewIntake(ex Exchange, cd *CooldownRegistry, op *Opener, cfg IntakeConfig) *Intake {
	return &Intake{ex: ex, cd: cd, op: op, cfg: cfg}
}

func (in *Intake) Handle(ctx context.Context, req models.SignalRequest) (d models.Disposition) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.Intake")
	span.SetTag("symbol", req.Symbol)
	defer func() {
		span.SetTag("status", string(d.Status))
		span.Finish()
		metrics.Signals.WithLabelValues(string(d.Status)).Inc()
	}()

	sig, err := in.parse(req)
	if err != nil {
		logger.Info("[SIGNAL] некорректный сигнал %+v: %v", req, err)
		return models.Disposition{Status: models.StatusError, Message: err.Error(), ClientError: true}
	}
	logger.Info("[SIGNAL] 🔔 %s %s SL источника %s%% + запас %s%% = %s%%",
		sig.Symbol, sig.Side.Upper(), sig.SourceStopPct, in.cfg.SafetyMargin, sig.StopDistPct)

	if sig.StopDistPct.GreaterThan(in.cfg.MaxStopPct) {
		msg := fmt.Sprintf("стоп %s%% больше %s%%, сигнал отклонён из-за высокого риска",
			sig.StopDistPct.StringFixed(2), in.cfg.MaxStopPct)
		logger.Info("[SIGNAL] %s: %s", sig.Symbol, msg)
		return models.Disposition{Status: models.StatusRejected, Message: msg}
	}

	if _, err := in.ex.Instrument(ctx, sig.Symbol); err != nil {
		if errors.Is(err, models.ErrNotTradable) {
			msg := fmt.Sprintf("%s не торгуется на фьючерсах, сигнал пропущен", sig.Symbol)
			logger.Info("[SIGNAL] %s", msg)
			return models.Disposition{Status: models.StatusIgnored, Message: msg}
		}
		logger.Error("[SIGNAL] %s: проверка инструмента: %v", sig.Symbol, err)
		return models.Disposition{Status: models.StatusError, Message: fmt.Sprintf("не удалось проверить %s: %v", sig.Symbol, err)}
	}

	if left, ok := in.cd.Remaining(sig.Symbol); ok {
		msg := fmt.Sprintf("%s в кулдауне, осталось %s", sig.Symbol, left.Round(time.Second))
		logger.Info("[COOLDOWN] %s", msg)
		return models.Disposition{Status: models.StatusIgnored, Message: msg}
	}

	notional := Notional(in.cfg.BaseRisk, sig.StopDistPct)
	res, err := in.op.Open(ctx, sig, notional)
	if err != nil {
		switch {
		case models.IsMarketUnavailable(err), errors.Is(err, models.ErrRiskRejected):
			return models.Disposition{Status: models.StatusRejected, Message: err.Error()}
		default:
			logger.Error("[SIGNAL] %s: открытие не удалось: %v", sig.Symbol, err)
			return models.Disposition{Status: models.StatusError, Message: fmt.Sprintf("не удалось открыть позицию по %s: %v", sig.Symbol, err)}
		}
	}

	in.cd.Mark(sig.Symbol)
	metrics.Cooldowns.Set(float64(len(in.cd.Symbols())))
	return models.Disposition{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("позиция %s открыта по %s (%s @ %s)", sig.Side, res.Symbol, res.Qty, res.Entry),
	}
}

// parse проверки формы запроса, до любых побочных эффектов.
func (in *Intake) parse(req models.SignalRequest) (models.Signal, error) {
	symbol := helper.NormSymbol(req.Symbol)
	rawSide := strings.ToLower(strings.TrimSpace(req.Side))
	if symbol == "" || rawSide == "" {
		return models.Signal{}, fmt.Errorf("нужны параметры symbol и side: %w", models.ErrValidation)
	}
	if rawSide != string(models.SideLong) && rawSide != string(models.SideShort) {
		return models.Signal{}, fmt.Errorf("side должен быть long или short, получено %q: %w", req.Side, models.ErrValidation)
	}

	source := in.cfg.DefaultStopPct
	if req.StopDistance != nil {
		source = *req.StopDistance
	}
	combined := source.Add(in.cfg.SafetyMargin)
	if !combined.IsPositive() {
		return models.Signal{}, fmt.Errorf("итоговый стоп %s%% должен быть > 0: %w", combined, models.ErrValidation)
	}

	return models.Signal{
		Symbol:        symbol,
		Side:          models.Side(rawSide),
		SourceStopPct: source,
		StopDistPct:   combined,
	}, nil
}
