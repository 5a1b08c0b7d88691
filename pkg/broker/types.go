package broker

import (
	"errors"
	"fmt"
	"strings"
)

// Side is the canonical order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType selects the execution style.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// ExecutionRequest is one normalized order submission. IdempotencyKey carries
// the originating signal id so gateways (or a dedup layer in front of them)
// can reject duplicate in-flight submissions.
type ExecutionRequest struct {
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	NotionalUSD    float64   `json:"notional_usd"`
	Leverage       int       `json:"leverage"`
	OrderType      OrderType `json:"order_type"`
	LimitPrice     float64   `json:"limit_price,omitempty"`
	TakeProfit     float64   `json:"take_profit,omitempty"`
	StopLoss       float64   `json:"stop_loss,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
}

// Validate rejects requests that must never reach a venue.
func (r *ExecutionRequest) Validate() error {
	if r == nil {
		return errors.New("broker: nil execution request")
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return errors.New("broker: symbol is required")
	}
	switch r.Side {
	case SideBuy, SideSell:
	default:
		return fmt.Errorf("broker: side must be buy or sell, got %q", r.Side)
	}
	if r.NotionalUSD <= 0 {
		return fmt.Errorf("broker: notional_usd must be positive, got %v", r.NotionalUSD)
	}
	if r.Leverage < 1 {
		return fmt.Errorf("broker: leverage must be at least 1, got %d", r.Leverage)
	}
	switch r.OrderType {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if r.LimitPrice <= 0 {
			return errors.New("broker: limit order requires positive limit_price")
		}
	default:
		return fmt.Errorf("broker: unknown order type %q", r.OrderType)
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return errors.New("broker: idempotency_key is required")
	}
	return nil
}

// ExecutionOutcome is the terminal result of one submission. OK=false with a
// message is a venue-side rejection; transport-level problems surface as Go
// errors from Execute instead.
type ExecutionOutcome struct {
	OK            bool   `json:"ok"`
	BrokerOrderID string `json:"broker_order_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ErrDuplicateSubmission is returned when a gateway sees the same idempotency
// key again inside its dedup window.
var ErrDuplicateSubmission = errors.New("broker: duplicate submission for idempotency key")
