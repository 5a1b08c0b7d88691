// Package scheduler drives the execution pipeline: every cycle it re-ranks
// the latest signal snapshot, admits at most MaxPerCycle candidates through
// the cooldown ledger and risk guard, and dispatches them to the broker
// gateway. Cycles never overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"signalpilot/pkg/broker"
	"signalpilot/pkg/guard"
	"signalpilot/pkg/journal"
	"signalpilot/pkg/ledger"
	"signalpilot/pkg/screener"
	"signalpilot/pkg/settings"
	"signalpilot/pkg/signal"
)

// Disposition classifies how a candidate left the cycle.
type Disposition string

const (
	// DispositionDispatched means the order was accepted by the gateway.
	DispositionDispatched Disposition = "dispatched"
	// DispositionSkipped is a healthy policy decline (cooldown, risk guard,
	// shutdown drain); the candidate is re-evaluated next cycle.
	DispositionSkipped Disposition = "skipped"
	// DispositionFailed is a gateway-level failure needing attention.
	DispositionFailed Disposition = "failed"
)

// Skip reasons beyond the guard's own.
const (
	reasonCooldown = "cooldown window"
	reasonDraining = "shutting down"
)

// ErrCycleOverrun is returned by RunLoop when a cycle exceeds the watchdog
// budget; this is an operational fault to surface, not to retry quietly.
var ErrCycleOverrun = errors.New("scheduler: cycle exceeded watchdog budget")

// CandidateOutcome is the terminal per-candidate record of one cycle.
type CandidateOutcome struct {
	SignalID      string
	Symbol        string
	Score         float64
	Grade         screener.Grade
	Disposition   Disposition
	Reason        string
	BrokerOrderID string
}

// CycleResult is the full per-cycle report. Cycles do not fail as a unit:
// once past the fatal-configuration stage they always complete and yield one
// outcome per considered candidate.
type CycleResult struct {
	SnapshotSize int
	Eligible     int
	Outcomes     []CandidateOutcome
	RankSkips    []screener.Skip
}

// Dispatched counts successful placements in the cycle.
func (r *CycleResult) Dispatched() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Disposition == DispositionDispatched {
			n++
		}
	}
	return n
}

// LedgerPersister saves cooldown entries durably after successful dispatch.
// Optional; a nil persister keeps the ledger process-local.
type LedgerPersister interface {
	SaveEntry(ctx context.Context, entry ledger.Entry) error
}

// pnlReporter is implemented by gateways that can report running PnL (the
// paper gateway does); used opportunistically by the feedback sync.
type pnlReporter interface {
	DailyPnLPercent(ctx context.Context) (float64, error)
}

// Scheduler owns the cycle loop and all mutable execution state. The ledger
// and guard are the only shared mutation points and are internally locked;
// everything upstream of dispatch is pure.
type Scheduler struct {
	cfg      *Config
	source   signal.Source
	ranker   *screener.Ranker
	cooldown *ledger.Cooldown
	guard    *guard.Guard
	gateway  broker.Gateway
	store    settings.Store
	journal  *journal.Writer
	persist  LedgerPersister

	nowFn func() time.Time

	cycleMu  sync.Mutex // serialises cycles; manual triggers share the loop's path
	stopChan chan struct{}
	stopOnce sync.Once
}

// Options bundles optional collaborators.
type Options struct {
	Journal *journal.Writer
	Persist LedgerPersister
}

// New constructs a scheduler. All required collaborators must be non-nil.
func New(cfg *Config, src signal.Source, rk *screener.Ranker, cd *ledger.Cooldown, g *guard.Guard, gw broker.Gateway, store settings.Store, opts Options) (*Scheduler, error) {
	if cfg == nil {
		return nil, errors.New("scheduler: config is required")
	}
	if src == nil {
		return nil, errors.New("scheduler: signal source is required")
	}
	if rk == nil {
		return nil, errors.New("scheduler: ranker is required")
	}
	if cd == nil {
		return nil, errors.New("scheduler: cooldown ledger is required")
	}
	if g == nil {
		return nil, errors.New("scheduler: risk guard is required")
	}
	if gw == nil {
		return nil, errors.New("scheduler: broker gateway is required")
	}
	if store == nil {
		return nil, errors.New("scheduler: settings store is required")
	}
	return &Scheduler{
		cfg:      cfg,
		source:   src,
		ranker:   rk,
		cooldown: cd,
		guard:    g,
		gateway:  gw,
		store:    store,
		journal:  opts.Journal,
		persist:  opts.Persist,
		nowFn:    time.Now,
		stopChan: make(chan struct{}),
	}, nil
}

// Stop requests a drain: the current cycle finishes its in-flight gateway
// calls but starts no new dispatches, and the loop exits afterwards.
func (s *Scheduler) Stop() { s.stopOnce.Do(func() { close(s.stopChan) }) }

func (s *Scheduler) draining(ctx context.Context) bool {
	select {
	case <-s.stopChan:
		return true
	default:
	}
	return ctx.Err() != nil
}

// RunLoop drives cycles at the configured cadence until ctx is cancelled or
// Stop is called. A cycle still running when the ticker fires defers the next
// firing; cycles never run concurrently. A cycle blowing through the watchdog
// budget terminates the loop with ErrCycleOverrun.
func (s *Scheduler) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()

	budget := time.Duration(s.cfg.OverrunMultiple) * s.cfg.CycleInterval

	// Run once immediately on startup.
	if err := s.timedCycle(ctx, budget); err != nil {
		if errors.Is(err, ErrCycleOverrun) {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return nil
		case <-ticker.C:
			if err := s.timedCycle(ctx, budget); err != nil {
				if errors.Is(err, ErrCycleOverrun) {
					return err
				}
				// Cycle-level failures (settings store down, source down)
				// were already logged; retry on the next tick.
			}
		}
	}
}

func (s *Scheduler) timedCycle(ctx context.Context, budget time.Duration) error {
	start := s.nowFn()
	_, err := s.RunCycle(ctx)
	if elapsed := s.nowFn().Sub(start); elapsed > budget {
		logx.WithContext(ctx).Errorf("scheduler: cycle took %s, watchdog budget is %s", elapsed, budget)
		return fmt.Errorf("%w: ran %s against budget %s", ErrCycleOverrun, elapsed, budget)
	}
	return err
}

// RunCycle executes one full rank → admit → dispatch pass. It is the single
// entry point for both the timer loop and manual triggers. A settings or
// snapshot read failure aborts the cycle before any dispatch: no order may be
// placed against unknown risk parameters.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleResult, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	st, err := s.store.Get(ctx)
	if err != nil {
		logx.WithContext(ctx).Errorf("scheduler: abort cycle, settings unavailable: %v", err)
		return nil, fmt.Errorf("scheduler: load settings: %w", err)
	}

	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		logx.WithContext(ctx).Errorf("scheduler: abort cycle, signal snapshot failed: %v", err)
		return nil, fmt.Errorf("scheduler: signal snapshot: %w", err)
	}

	eligible, rankSkips := s.ranker.Rank(snapshot)
	result := &CycleResult{
		SnapshotSize: len(snapshot),
		Eligible:     len(eligible),
		RankSkips:    rankSkips,
	}

	candidates := eligible
	if len(candidates) > s.cfg.MaxPerCycle {
		candidates = candidates[:s.cfg.MaxPerCycle]
	}

	for i := range candidates {
		result.Outcomes = append(result.Outcomes, s.dispatchOne(ctx, candidates[i], st))
	}

	s.syncFeedback(ctx)
	s.cooldown.Prune(s.nowFn())
	s.writeJournal(result)
	return result, nil
}

// dispatchOne runs the admission checks and, if both pass, submits the order.
// Check-then-act against the ledger and guard happens sequentially within the
// cycle, so admission for candidate N+1 always sees candidate N's outcome.
func (s *Scheduler) dispatchOne(ctx context.Context, c screener.RankedSignal, st settings.Settings) CandidateOutcome {
	out := CandidateOutcome{
		SignalID: c.ID,
		Symbol:   c.Symbol,
		Score:    c.CompositeScore,
		Grade:    c.Grade,
	}

	if s.draining(ctx) {
		out.Disposition = DispositionSkipped
		out.Reason = reasonDraining
		return out
	}

	now := s.nowFn()
	if !s.cooldown.IsEligible(c.ID, now) {
		out.Disposition = DispositionSkipped
		out.Reason = reasonCooldown
		logx.WithContext(ctx).Infof("scheduler: skip %s (%s): %s", c.ID, c.Symbol, reasonCooldown)
		return out
	}

	if res := s.guard.Check(s.cfg.Guard); !res.OK {
		out.Disposition = DispositionSkipped
		out.Reason = res.Reason
		logx.WithContext(ctx).Infof("scheduler: skip %s (%s): %s", c.ID, c.Symbol, res.Reason)
		return out
	}

	req, err := s.buildRequest(c, st)
	if err != nil {
		out.Disposition = DispositionFailed
		out.Reason = err.Error()
		logx.WithContext(ctx).Errorf("scheduler: build request for %s: %v", c.ID, err)
		return out
	}

	// The dispatch context is detached from the loop context on purpose:
	// shutdown is a drain, and an order already on the wire must be allowed
	// to settle. The timeout stays mandatory either way.
	dctx, cancel := context.WithTimeout(context.Background(), s.cfg.DispatchTimeout)
	defer cancel()

	outcome, err := s.gateway.Execute(dctx, *req)
	if err != nil {
		out.Disposition = DispositionFailed
		out.Reason = err.Error()
		logx.WithContext(ctx).Errorf("scheduler: dispatch %s (%s): %v", c.ID, c.Symbol, err)
		return out
	}
	if !outcome.OK {
		// Failed placements do not consume the cooldown slot; the signal
		// stays retry-eligible next cycle.
		out.Disposition = DispositionFailed
		out.Reason = outcome.Message
		logx.WithContext(ctx).Errorf("scheduler: gateway rejected %s (%s): %s", c.ID, c.Symbol, outcome.Message)
		return out
	}

	s.cooldown.Record(c.ID, now)
	s.guard.IncrementOpenPositions()
	if s.persist != nil {
		if err := s.persist.SaveEntry(ctx, ledger.Entry{SignalID: c.ID, LastExecutedAt: now}); err != nil {
			logx.WithContext(ctx).Errorf("scheduler: persist cooldown entry %s: %v", c.ID, err)
		}
	}

	out.Disposition = DispositionDispatched
	out.BrokerOrderID = outcome.BrokerOrderID
	logx.WithContext(ctx).Infof("scheduler: dispatched %s (%s) order=%s score=%.3f grade=%s",
		c.ID, c.Symbol, outcome.BrokerOrderID, c.CompositeScore, c.Grade)
	return out
}

// buildRequest assembles the normalized order for one admitted candidate.
// Signal-supplied levels win over settings-derived ones.
func (s *Scheduler) buildRequest(c screener.RankedSignal, st settings.Settings) (*broker.ExecutionRequest, error) {
	side := broker.SideBuy
	if c.Direction == signal.DirectionSell {
		side = broker.SideSell
	}

	var override *signal.Levels
	if c.HasLevels {
		lv := c.Level
		override = &lv
	}
	levels := screener.ComputeRiskLevels(c.Entry, c.Direction, screener.Mode(s.cfg.Mode), override, st)

	leverage := s.cfg.DefaultLeverage
	if st.MaxLeverage > 0 && leverage > st.MaxLeverage {
		leverage = st.MaxLeverage
	}

	req := &broker.ExecutionRequest{
		Symbol:         c.Symbol,
		Side:           side,
		NotionalUSD:    s.cfg.DefaultNotionalUSD,
		Leverage:       leverage,
		OrderType:      broker.OrderTypeLimit,
		LimitPrice:     c.Entry,
		TakeProfit:     levels.TakeProfit,
		StopLoss:       levels.StopLoss,
		IdempotencyKey: c.ID,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// syncFeedback refreshes guard state from the gateway's account view. Best
// effort: the guard keeps its previous numbers when the venue is unreachable.
func (s *Scheduler) syncFeedback(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	if count, err := s.gateway.OpenPositionCount(sctx); err == nil {
		s.guard.UpdateOpenPositions(count)
	} else {
		logx.WithContext(ctx).Errorf("scheduler: sync open positions: %v", err)
	}
	if rep, ok := s.gateway.(pnlReporter); ok {
		if pct, err := rep.DailyPnLPercent(sctx); err == nil {
			s.guard.UpdateDailyPnL(pct)
		}
	}
}

func (s *Scheduler) writeJournal(result *CycleResult) {
	if s.journal == nil {
		return
	}
	pnl, open := s.guard.State()
	rec := &journal.CycleRecord{
		SnapshotSize:  result.SnapshotSize,
		EligibleCount: result.Eligible,
		Dispatched:    result.Dispatched(),
		DailyPnLPct:   pnl,
		OpenPositions: open,
		Success:       true,
	}
	for _, o := range result.Outcomes {
		rec.Candidates = append(rec.Candidates, journal.CandidateRecord{
			SignalID:      o.SignalID,
			Symbol:        o.Symbol,
			Score:         o.Score,
			Grade:         string(o.Grade),
			Disposition:   string(o.Disposition),
			Reason:        o.Reason,
			BrokerOrderID: o.BrokerOrderID,
		})
	}
	for _, sk := range result.RankSkips {
		rec.Candidates = append(rec.Candidates, journal.CandidateRecord{
			SignalID:    sk.SignalID,
			Symbol:      sk.Symbol,
			Disposition: string(DispositionSkipped),
			Reason:      string(sk.Reason),
		})
	}
	if _, err := s.journal.WriteCycle(rec); err != nil {
		logx.Errorf("scheduler: write journal: %v", err)
	}
}
