package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"ratio_bot/internal/models"
	"ratio_bot/internal/modules/config"
)

const (
	headerKey        = "X-BAPI-API-KEY"
	headerTimestamp  = "X-BAPI-TIMESTAMP"
	headerRecvWindow = "X-BAPI-RECV-WINDOW"
	headerSign       = "X-BAPI-SIGN"
)

// Client REST-клиент Bybit v5 (линейные USDT-контракты).
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	recvWindow string
	category   string
	settleCoin string
	now        func() time.Time

	mu          sync.RWMutex
	instruments map[string]models.Instrument
}

func NewClient(cfg config.Bybit) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	recv := cfg.RecvWindow
	if recv <= 0 {
		recv = 20000
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		recvWindow:  strconv.Itoa(recv),
		category:    cfg.Category,
		settleCoin:  cfg.SettleCoin,
		now:         time.Now,
		instruments: make(map[string]models.Instrument),
	}
}

// envelope общий конверт ответа v5.
type envelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
	Time    int64  `json:"time"`
}

// APIError retCode != 0.
type APIError struct {
	Path string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit %s: retCode=%d retMsg=%s", e.Path, e.Code, e.Msg)
}

func (e *APIError) Is(target error) bool { return target == models.ErrExchange }

// transportError сеть, HTTP-статус или битый JSON.
type transportError struct{ err error }

func (e *transportError) Error() string        { return e.err.Error() }
func (e *transportError) Unwrap() error        { return e.err }
func (e *transportError) Is(target error) bool { return target == models.ErrExchange }

func getJSON[T any](ctx context.Context, c *Client, path string, q url.Values, signed bool) (T, error) {
	var zero T
	query := q.Encode()
	target := c.baseURL + path
	if query != "" {
		target += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return zero, errors.Wrapf(err, "bybit GET %s: new request", path)
	}
	if signed {
		c.signRequest(req, query)
	}
	return doJSON[T](c, req, path)
}

func postJSON[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var zero T
	payload, err := sonic.Marshal(body)
	if err != nil {
		return zero, errors.Wrapf(err, "bybit POST %s: marshal", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return zero, errors.Wrapf(err, "bybit POST %s: new request", path)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req, string(payload))
	return doJSON[T](c, req, path)
}

func doJSON[T any](c *Client, req *http.Request, path string) (T, error) {
	var zero T
	resp, err := c.http.Do(req)
	if err != nil {
		return zero, errors.Wrapf(&transportError{err}, "bybit %s %s", req.Method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, errors.Wrapf(&transportError{err}, "bybit %s %s: read body", req.Method, path)
	}
	if resp.StatusCode/100 != 2 {
		return zero, errors.Wrapf(&transportError{fmt.Errorf("http %d: %s", resp.StatusCode, string(data))},
			"bybit %s %s", req.Method, path)
	}

	var env envelope[T]
	if err := sonic.Unmarshal(data, &env); err != nil {
		return zero, errors.Wrapf(&transportError{err}, "bybit %s %s: decode", req.Method, path)
	}
	if env.RetCode != 0 {
		return zero, &APIError{Path: path, Code: env.RetCode, Msg: env.RetMsg}
	}
	return env.Result, nil
}

// signRequest подпись v5: hex(HMAC-SHA256(ts + key + recvWindow + payload)).
// payload = query string для GET, тело для POST.
func (c *Client) signRequest(req *http.Request, payload string) {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	req.Header.Set(headerKey, c.apiKey)
	req.Header.Set(headerTimestamp, ts)
	req.Header.Set(headerRecvWindow, c.recvWindow)
	req.Header.Set(headerSign, c.sign(ts, payload))
}

func (c *Client) sign(ts, payload string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + c.apiKey + c.recvWindow + payload))
	return hex.EncodeToString(h.Sum(nil))
}
