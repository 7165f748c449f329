package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratio_bot/internal/models"
	"ratio_bot/internal/modules/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(config.Bybit{
		BaseURL:    srv.URL,
		APIKey:     "key",
		APISecret:  "secret",
		RecvWindow: 5000,
		Category:   "linear",
		SettleCoin: "USDT",
	})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func ok(w http.ResponseWriter, result string) {
	_, _ = io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":`+result+`,"time":1700000000000}`)
}

func TestSignedRequestHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get(headerKey))
		assert.Equal(t, "1700000000000", r.Header.Get(headerTimestamp))
		assert.Equal(t, "5000", r.Header.Get(headerRecvWindow))

		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte("1700000000000" + "key" + "5000" + r.URL.RawQuery))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get(headerSign))
		ok(w, `{"list":[]}`)
	})

	_, err := c.ClosedPnL(context.Background(), 1)
	require.NoError(t, err)
}

func TestInstrumentCachedAndNotTradable(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, pathInstruments, r.URL.Path)
		switch r.URL.Query().Get("symbol") {
		case "ABCUSDT":
			ok(w, `{"category":"linear","list":[{"symbol":"ABCUSDT","status":"Trading","priceScale":"2",
				"priceFilter":{"tickSize":"0.01"},
				"lotSizeFilter":{"qtyStep":"0.1","minOrderQty":"0.1","maxOrderQty":"1000"}}]}`)
		case "OLDUSDT":
			ok(w, `{"category":"linear","list":[{"symbol":"OLDUSDT","status":"Closed","priceScale":"2",
				"priceFilter":{"tickSize":"0.01"},
				"lotSizeFilter":{"qtyStep":"0.1","minOrderQty":"0.1","maxOrderQty":"1000"}}]}`)
		default:
			ok(w, `{"category":"linear","list":[]}`)
		}
	})
	ctx := context.Background()

	inst, err := c.Instrument(ctx, "abcusdt")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.1").Equal(inst.QtyStep))
	assert.True(t, decimal.RequireFromString("0.01").Equal(inst.TickSize))
	assert.Equal(t, int32(2), inst.PriceScale)

	_, err = c.Instrument(ctx, "ABCUSDT")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup served from cache")

	_, err = c.Instrument(ctx, "OLDUSDT")
	assert.True(t, errors.Is(err, models.ErrNotTradable))
	_, err = c.Instrument(ctx, "NOPEUSDT")
	assert.True(t, errors.Is(err, models.ErrNotTradable))
}

func TestRetCodeIsExchangeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"retCode":10001,"retMsg":"params error","result":{}}`)
	})

	_, err := c.LastPrice(context.Background(), "ABCUSDT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExchange))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 10001, apiErr.Code)
}

func TestHTTPStatusIsExchangeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.OpenPositions(context.Background())
	assert.True(t, errors.Is(err, models.ErrExchange))
}

func TestOpenPositionsPaginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "USDT", r.URL.Query().Get("settleCoin"))
		if r.URL.Query().Get("cursor") == "" {
			ok(w, `{"list":[
				{"symbol":"AAAUSDT","side":"Buy","size":"1","avgPrice":"10","stopLoss":"9.8","updatedTime":"1700000000000"},
				{"symbol":"FLATUSDT","side":"","size":"0","avgPrice":"0","stopLoss":""}
			],"nextPageCursor":"p2"}`)
			return
		}
		ok(w, `{"list":[{"symbol":"BBBUSDT","side":"Sell","size":"2","avgPrice":"20","stopLoss":""}],"nextPageCursor":""}`)
	})

	got, err := c.OpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAAUSDT", got[0].Symbol)
	assert.Equal(t, models.SideLong, got[0].Side)
	assert.True(t, decimal.RequireFromString("9.8").Equal(got[0].StopLoss))
	assert.Equal(t, models.SideShort, got[1].Side)
	assert.True(t, got[1].StopLoss.IsZero())
}

func TestPositionMissingIsZeroSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ok(w, `{"list":[{"symbol":"ABCUSDT","side":"","size":"0","avgPrice":"0"}]}`)
	})
	p, err := c.Position(context.Background(), "ABCUSDT")
	require.NoError(t, err)
	assert.False(t, p.Open())
}

func TestPlaceMarketBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathOrderCreate, r.URL.Path)

		raw, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte("1700000000000" + "key" + "5000" + string(raw)))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get(headerSign))

		var body map[string]any
		assert.NoError(t, sonic.Unmarshal(raw, &body))
		assert.Equal(t, "Sell", body["side"])
		assert.Equal(t, "Market", body["orderType"])
		assert.Equal(t, "0.5", body["qty"])
		assert.Equal(t, "ABCUSDT", body["symbol"])
		assert.NotEmpty(t, body["orderLinkId"])
		ok(w, `{"orderId":"o-1","orderLinkId":"x"}`)
	})

	id, err := c.PlaceMarket(context.Background(), "abcusdt", models.SideShort, decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.Equal(t, "o-1", id)

	_, err = c.PlaceMarket(context.Background(), "ABCUSDT", models.SideLong, decimal.Zero)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestSetStopLossNotModifiedIsOK(t *testing.T) {
	var code atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathTradingStop, r.URL.Path)
		if code.Load() != 0 {
			_, _ = io.WriteString(w, `{"retCode":`+strconv.Itoa(int(code.Load()))+`,"retMsg":"x","result":{}}`)
			return
		}
		ok(w, `{}`)
	})
	ctx := context.Background()
	stop := decimal.RequireFromString("102")

	require.NoError(t, c.SetStopLoss(ctx, "ABCUSDT", stop))

	code.Store(retNotModified)
	require.NoError(t, c.SetStopLoss(ctx, "ABCUSDT", stop))

	code.Store(10001)
	assert.True(t, errors.Is(c.SetStopLoss(ctx, "ABCUSDT", stop), models.ErrExchange))
}

func TestClosedPnLNewestFirst(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		ok(w, `{"list":[{"orderId":"c-9","symbol":"ABCUSDT","side":"Sell","qty":"0.5",
			"avgEntryPrice":"100","avgExitPrice":"104","closedPnl":"1.98","updatedTime":"1700000000000"}]}`)
	})

	got, err := c.ClosedPnL(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-9", got[0].ID)
	assert.True(t, got[0].Win())
	assert.True(t, time.UnixMilli(1700000000000).Equal(got[0].ClosedAt))
}
