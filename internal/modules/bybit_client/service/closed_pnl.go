package service

import (
	"context"
	"net/url"
	"strconv"

	"ratio_bot/internal/models"
)

const pathClosedPnL = "/v5/position/closed-pnl"

// ClosedPnL последние закрытые сделки, новые первыми.
func (c *Client) ClosedPnL(ctx context.Context, limit int) ([]models.ClosedTrade, error) {
	if limit <= 0 {
		limit = 1
	}
	q := url.Values{}
	q.Set("category", c.category)
	q.Set("limit", strconv.Itoa(limit))

	res, err := getJSON[closedPnLResult](ctx, c, pathClosedPnL, q, true)
	if err != nil {
		return nil, err
	}

	out := make([]models.ClosedTrade, 0, len(res.List))
	for _, t := range res.List {
		out = append(out, models.ClosedTrade{
			ID:        t.OrderID,
			Symbol:    t.Symbol,
			Side:      t.Side,
			ClosedPnL: dec(t.ClosedPnl),
			AvgEntry:  dec(t.AvgEntryPrice),
			AvgExit:   dec(t.AvgExitPrice),
			Qty:       dec(t.Qty),
			ClosedAt:  msTime(t.UpdatedTime),
		})
	}
	return out, nil
}
