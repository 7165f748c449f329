package service

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type instrumentsResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol      string `json:"symbol"`
		Status      string `json:"status"`
		PriceScale  string `json:"priceScale"`
		PriceFilter struct {
			TickSize string `json:"tickSize"`
		} `json:"priceFilter"`
		LotSizeFilter struct {
			QtyStep     string `json:"qtyStep"`
			MinOrderQty string `json:"minOrderQty"`
			MaxOrderQty string `json:"maxOrderQty"`
		} `json:"lotSizeFilter"`
	} `json:"list"`
}

type tickersResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
		MarkPrice string `json:"markPrice"`
	} `json:"list"`
}

type positionsResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol      string `json:"symbol"`
		Side        string `json:"side"` // Buy | Sell | "" (нет позиции)
		Size        string `json:"size"`
		AvgPrice    string `json:"avgPrice"`
		StopLoss    string `json:"stopLoss"`
		PositionIdx int    `json:"positionIdx"`
		UpdatedTime string `json:"updatedTime"`
	} `json:"list"`
	NextPageCursor string `json:"nextPageCursor"`
}

type orderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

type closedPnLResult struct {
	Category string `json:"category"`
	List     []struct {
		OrderID       string `json:"orderId"`
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		Qty           string `json:"qty"`
		AvgEntryPrice string `json:"avgEntryPrice"`
		AvgExitPrice  string `json:"avgExitPrice"`
		ClosedPnl     string `json:"closedPnl"`
		UpdatedTime   string `json:"updatedTime"`
	} `json:"list"`
}

// dec пустая строка или мусор = 0 (биржа отдаёт "" для отсутствующего стопа).
func dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func msTime(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
