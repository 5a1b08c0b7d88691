// Package sim is a paper-trading gateway that fills orders synchronously
// against in-memory mark prices. It lets the whole engine run end-to-end with
// no live venue while still enforcing the idempotency contract.
package sim

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"signalpilot/pkg/broker"
)

const (
	defaultInitialEquity = 100000.0
	defaultFallbackPrice = 100.0
	defaultDedupWindow   = 2 * time.Hour
)

// Gateway is the paper-trading broker implementation.
type Gateway struct {
	mu sync.Mutex

	nextOrderID int64

	markPx    map[string]float64
	positions map[string]*positionState

	// seen maps idempotency key to accept time for duplicate rejection.
	seen        map[string]time.Time
	dedupWindow time.Duration

	initialEquity float64
	cash          float64

	nowFn func() time.Time
}

type positionState struct {
	Symbol string
	Qty    float64 // positive long, negative short
	Entry  float64 // average entry price
}

// New constructs a simulator with default equity.
func New() *Gateway {
	return &Gateway{
		nextOrderID:   1,
		markPx:        make(map[string]float64),
		positions:     make(map[string]*positionState),
		seen:          make(map[string]time.Time),
		dedupWindow:   defaultDedupWindow,
		initialEquity: defaultInitialEquity,
		cash:          defaultInitialEquity,
		nowFn:         time.Now,
	}
}

func canonical(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// SetMarkPrice updates the reference price used for fills and unrealised PnL.
func (g *Gateway) SetMarkPrice(symbol string, price float64) error {
	if price <= 0 {
		return fmt.Errorf("sim: mark price must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markPx[canonical(symbol)] = price
	return nil
}

// Execute fills the request at the limit price (or mark price for market
// orders). Requests reusing an idempotency key inside the dedup window are
// rejected before touching any position state.
func (g *Gateway) Execute(ctx context.Context, req broker.ExecutionRequest) (*broker.ExecutionOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	if accepted, ok := g.seen[req.IdempotencyKey]; ok && now.Sub(accepted) < g.dedupWindow {
		return nil, broker.ErrDuplicateSubmission
	}

	sym := canonical(req.Symbol)
	price := req.LimitPrice
	if req.OrderType == broker.OrderTypeMarket || price <= 0 {
		price = g.resolveMarkPriceLocked(sym)
	}
	if price <= 0 {
		return &broker.ExecutionOutcome{OK: false, Message: fmt.Sprintf("no price available for %s", sym)}, nil
	}

	qty := req.NotionalUSD / price
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return &broker.ExecutionOutcome{OK: false, Message: fmt.Sprintf("invalid quantity %.8f for %s", qty, sym)}, nil
	}
	if req.Side == broker.SideSell {
		qty = -qty
	}

	realized := g.applyFillLocked(sym, price, qty)
	if realized != 0 {
		g.cash += realized
	}
	g.markPx[sym] = price
	g.seen[req.IdempotencyKey] = now

	orderID := fmt.Sprintf("sim-%d", g.nextOrderID)
	g.nextOrderID++
	return &broker.ExecutionOutcome{OK: true, BrokerOrderID: orderID}, nil
}

func (g *Gateway) applyFillLocked(sym string, price, delta float64) float64 {
	state := g.positions[sym]
	if state == nil {
		state = &positionState{Symbol: sym}
		g.positions[sym] = state
	}

	oldQty := state.Qty
	newQty := oldQty + delta

	realized := 0.0
	if oldQty != 0 && oldQty*delta < 0 {
		closeQty := math.Min(math.Abs(oldQty), math.Abs(delta))
		dir := 1.0
		if oldQty < 0 {
			dir = -1.0
		}
		realized = closeQty * (price - state.Entry) * dir
	}

	switch {
	case oldQty == 0:
		state.Entry = price
	case oldQty*delta > 0:
		state.Entry = ((oldQty * state.Entry) + (delta * price)) / newQty
	case oldQty*delta < 0:
		if newQty == 0 || oldQty*newQty < 0 {
			state.Entry = price
		}
	}

	state.Qty = newQty
	if math.Abs(state.Qty) < 1e-10 {
		state.Qty = 0
	}
	if state.Qty == 0 {
		delete(g.positions, sym)
	}
	return realized
}

// OpenPositionCount implements broker.Gateway.
func (g *Gateway) OpenPositionCount(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.positions), nil
}

// AccountValue returns cash plus unrealised PnL at current mark prices.
func (g *Gateway) AccountValue(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	equity := g.cash
	for sym, state := range g.positions {
		mark := g.resolveMarkPriceLocked(sym)
		equity += state.Qty * (mark - state.Entry)
	}
	return equity, nil
}

// DailyPnLPercent reports equity change against initial equity, used by the
// feedback loop in paper runs.
func (g *Gateway) DailyPnLPercent(ctx context.Context) (float64, error) {
	equity, err := g.AccountValue(ctx)
	if err != nil {
		return 0, err
	}
	if g.initialEquity <= 0 {
		return 0, nil
	}
	return 100 * (equity - g.initialEquity) / g.initialEquity, nil
}

func (g *Gateway) resolveMarkPriceLocked(sym string) float64 {
	if price, ok := g.markPx[sym]; ok && price > 0 {
		return price
	}
	if state, ok := g.positions[sym]; ok && state.Entry > 0 {
		return state.Entry
	}
	return defaultFallbackPrice
}

// Registry hook for broker.Config.
func init() {
	broker.RegisterGateway("sim", func(name string, cfg *broker.GatewayConfig) (broker.Gateway, error) {
		return New(), nil
	})
}
