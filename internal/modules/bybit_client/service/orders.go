package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ratio_bot/internal/helper"
	"ratio_bot/internal/models"
)

const (
	pathOrderCreate  = "/v5/order/create"
	pathTradingStop  = "/v5/position/trading-stop"
	retNotModified   = 34040 // стоп уже стоит на этом уровне
	oneWayPositionIx = 0
)

// PlaceMarket маркет-ордер на открытие; orderLinkId = uuid, чтобы ордер можно было найти по логам.
func (c *Client) PlaceMarket(ctx context.Context, symbol string, side models.Side, qty decimal.Decimal) (string, error) {
	if !qty.IsPositive() {
		return "", fmt.Errorf("place market %s: qty %s <= 0: %w", symbol, qty, models.ErrValidation)
	}
	body := map[string]any{
		"category":    c.category,
		"symbol":      helper.NormSymbol(symbol),
		"side":        side.OrderSide(),
		"orderType":   "Market",
		"qty":         qty.String(),
		"orderLinkId": uuid.NewString(),
		"positionIdx": oneWayPositionIx,
	}
	res, err := postJSON[orderResult](ctx, c, pathOrderCreate, body)
	if err != nil {
		return "", err
	}
	return res.OrderID, nil
}

// SetStopLoss стоп на всю позицию: триггер по последней цене, исполнение рынком.
func (c *Client) SetStopLoss(ctx context.Context, symbol string, stop decimal.Decimal) error {
	if !stop.IsPositive() {
		return fmt.Errorf("set stop %s: price %s <= 0: %w", symbol, stop, models.ErrValidation)
	}
	body := map[string]any{
		"category":    c.category,
		"symbol":      helper.NormSymbol(symbol),
		"stopLoss":    stop.String(),
		"slTriggerBy": "LastPrice",
		"tpslMode":    "Full",
		"slOrderType": "Market",
		"positionIdx": oneWayPositionIx,
	}
	_, err := postJSON[struct{}](ctx, c, pathTradingStop, body)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == retNotModified {
		return nil
	}
	return err
}
