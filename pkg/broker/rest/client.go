// Package rest implements the broker gateway against a venue's signed REST
// order API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"signalpilot/pkg/broker"
)

const (
	defaultHTTPTimeout = 10 * time.Second

	ordersPath   = "/v1/orders"
	accountPath  = "/v1/account"
	positionPath = "/v1/positions"
)

// Client is a signed REST broker gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     Signer
	nonceFn    func() int64
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient constructs a gateway client for the given venue base URL.
func NewClient(baseURL string, signer Signer, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("rest: base url is required")
	}
	if signer == nil {
		return nil, errors.New("rest: signer is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		signer:     signer,
		nonceFn:    func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// orderPayload is the signed action body for an order submission.
type orderPayload struct {
	Symbol      string  `json:"symbol" msgpack:"symbol"`
	Side        string  `json:"side" msgpack:"side"`
	NotionalUSD float64 `json:"notional_usd" msgpack:"notional_usd"`
	Leverage    int     `json:"leverage" msgpack:"leverage"`
	OrderType   string  `json:"order_type" msgpack:"order_type"`
	LimitPrice  float64 `json:"limit_price,omitempty" msgpack:"limit_price"`
	TakeProfit  float64 `json:"take_profit,omitempty" msgpack:"take_profit"`
	StopLoss    float64 `json:"stop_loss,omitempty" msgpack:"stop_loss"`
}

type orderRequest struct {
	Order     orderPayload `json:"order"`
	Nonce     int64        `json:"nonce"`
	Signature Signature    `json:"signature"`
	Address   string       `json:"address"`
}

type orderResponse struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"order_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Execute submits a signed order. The idempotency key travels as a header so
// the venue's dedup layer can reject replays; an HTTP 409 maps onto
// broker.ErrDuplicateSubmission.
func (c *Client) Execute(ctx context.Context, req broker.ExecutionRequest) (*broker.ExecutionOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := orderPayload{
		Symbol:      req.Symbol,
		Side:        string(req.Side),
		NotionalUSD: req.NotionalUSD,
		Leverage:    req.Leverage,
		OrderType:   string(req.OrderType),
		LimitPrice:  req.LimitPrice,
		TakeProfit:  req.TakeProfit,
		StopLoss:    req.StopLoss,
	}
	nonce := c.nonceFn()
	digest, err := requestDigest(payload, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := c.signer.Sign(digest)
	if err != nil {
		return nil, err
	}
	body := orderRequest{Order: payload, Nonce: nonce, Signature: *sig, Address: c.signer.Address()}

	status, respBody, err := c.post(ctx, ordersPath, req.IdempotencyKey, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		return nil, broker.ErrDuplicateSubmission
	}

	var decoded orderResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("rest: decode order response: %w", err)
	}
	if status < 200 || status >= 300 {
		// Venue-side rejection is an outcome, not a transport error.
		msg := decoded.Message
		if msg == "" {
			msg = fmt.Sprintf("http status %d", status)
		}
		return &broker.ExecutionOutcome{OK: false, Message: msg}, nil
	}
	return &broker.ExecutionOutcome{OK: decoded.OK, BrokerOrderID: decoded.OrderID, Message: decoded.Message}, nil
}

// OpenPositionCount implements broker.Gateway.
func (c *Client) OpenPositionCount(ctx context.Context) (int, error) {
	body, err := c.get(ctx, positionPath)
	if err != nil {
		return 0, err
	}
	var positions []json.RawMessage
	if err := json.Unmarshal(body, &positions); err != nil {
		return 0, fmt.Errorf("rest: decode positions: %w", err)
	}
	return len(positions), nil
}

// AccountValue implements broker.Gateway.
func (c *Client) AccountValue(ctx context.Context) (float64, error) {
	body, err := c.get(ctx, accountPath)
	if err != nil {
		return 0, err
	}
	var account struct {
		EquityUSD float64 `json:"equity_usd"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return 0, fmt.Errorf("rest: decode account: %w", err)
	}
	return account.EquityUSD, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body any) (int, []byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("rest: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, fmt.Errorf("rest: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("rest: post %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("rest: read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("rest: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rest: get %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rest: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rest: http status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Registry hook for broker.Config.
func init() {
	broker.RegisterGateway("rest", func(name string, cfg *broker.GatewayConfig) (broker.Gateway, error) {
		if cfg == nil {
			return nil, errors.New("rest: gateway config is required")
		}
		signer, err := NewPrivateKeySigner(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		opts := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return NewClient(cfg.BaseURL, signer, opts...)
	})
}
