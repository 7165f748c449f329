package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"ratio_bot/internal/helper"
	"ratio_bot/internal/models"
)

const (
	pathInstruments = "/v5/market/instruments-info"
	pathTickers     = "/v5/market/tickers"
)

// Instrument параметры контракта. Торгуемые инструменты кешируются: лот и тик меняются редко.
func (c *Client) Instrument(ctx context.Context, symbol string) (models.Instrument, error) {
	symbol = helper.NormSymbol(symbol)

	c.mu.RLock()
	inst, ok := c.instruments[symbol]
	c.mu.RUnlock()
	if ok {
		return inst, nil
	}

	q := url.Values{}
	q.Set("category", c.category)
	q.Set("symbol", symbol)
	res, err := getJSON[instrumentsResult](ctx, c, pathInstruments, q, false)
	if err != nil {
		return models.Instrument{}, err
	}
	if len(res.List) == 0 {
		return models.Instrument{}, fmt.Errorf("%s: %w", symbol, models.ErrNotTradable)
	}

	raw := res.List[0]
	scale, _ := strconv.ParseInt(raw.PriceScale, 10, 32)
	inst = models.Instrument{
		Symbol:      raw.Symbol,
		Status:      raw.Status,
		QtyStep:     dec(raw.LotSizeFilter.QtyStep),
		MinOrderQty: dec(raw.LotSizeFilter.MinOrderQty),
		MaxOrderQty: dec(raw.LotSizeFilter.MaxOrderQty),
		TickSize:    dec(raw.PriceFilter.TickSize),
		PriceScale:  int32(scale),
	}
	if !inst.Tradable() {
		return models.Instrument{}, fmt.Errorf("%s status=%s: %w", symbol, inst.Status, models.ErrNotTradable)
	}

	c.mu.Lock()
	c.instruments[symbol] = inst
	c.mu.Unlock()
	return inst, nil
}

func (c *Client) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("category", c.category)
	q.Set("symbol", helper.NormSymbol(symbol))
	res, err := getJSON[tickersResult](ctx, c, pathTickers, q, false)
	if err != nil {
		return decimal.Zero, err
	}
	if len(res.List) == 0 {
		return decimal.Zero, fmt.Errorf("ticker %s: empty list: %w", symbol, models.ErrExchange)
	}
	px := dec(res.List[0].LastPrice)
	if !px.IsPositive() {
		return decimal.Zero, fmt.Errorf("ticker %s: bad lastPrice %q: %w", symbol, res.List[0].LastPrice, models.ErrExchange)
	}
	return px, nil
}
