package service

import (
	"context"
	"net/url"

	"ratio_bot/internal/helper"
	"ratio_bot/internal/models"
)

const pathPositions = "/v5/position/list"

// Position позиция по символу; если её нет, возвращается нулевой размер без ошибки.
func (c *Client) Position(ctx context.Context, symbol string) (models.ExchangePosition, error) {
	symbol = helper.NormSymbol(symbol)
	q := url.Values{}
	q.Set("category", c.category)
	q.Set("symbol", symbol)

	list, err := c.positions(ctx, q)
	if err != nil {
		return models.ExchangePosition{}, err
	}
	for _, p := range list {
		if p.Symbol == symbol && p.Open() {
			return p, nil
		}
	}
	return models.ExchangePosition{Symbol: symbol}, nil
}

func (c *Client) OpenPositions(ctx context.Context) ([]models.ExchangePosition, error) {
	var out []models.ExchangePosition
	cursor := ""
	for {
		q := url.Values{}
		q.Set("category", c.category)
		q.Set("settleCoin", c.settleCoin)
		q.Set("limit", "200")
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		res, err := getJSON[positionsResult](ctx, c, pathPositions, q, true)
		if err != nil {
			return nil, err
		}
		for _, p := range toPositions(res) {
			if p.Open() {
				out = append(out, p)
			}
		}
		if res.NextPageCursor == "" || res.NextPageCursor == cursor {
			return out, nil
		}
		cursor = res.NextPageCursor
	}
}

func (c *Client) positions(ctx context.Context, q url.Values) ([]models.ExchangePosition, error) {
	res, err := getJSON[positionsResult](ctx, c, pathPositions, q, true)
	if err != nil {
		return nil, err
	}
	return toPositions(res), nil
}

func toPositions(res positionsResult) []models.ExchangePosition {
	out := make([]models.ExchangePosition, 0, len(res.List))
	for _, p := range res.List {
		side, _ := models.ParseSide(p.Side)
		out = append(out, models.ExchangePosition{
			Symbol:    p.Symbol,
			Side:      side,
			Size:      dec(p.Size),
			AvgPrice:  dec(p.AvgPrice),
			StopLoss:  dec(p.StopLoss),
			UpdatedAt: msTime(p.UpdatedTime),
		})
	}
	return out
}
