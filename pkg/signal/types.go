package signal

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Direction is the trade side a signal argues for.
type Direction string

const (
	// DirectionBuy opens or adds to a long exposure.
	DirectionBuy Direction = "buy"
	// DirectionSell opens or adds to a short exposure.
	DirectionSell Direction = "sell"
)

// ParseDirection normalises external direction spellings ("BUY", "long", ...)
// to the canonical enum.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return DirectionBuy, nil
	case "sell", "short":
		return DirectionSell, nil
	default:
		return "", fmt.Errorf("signal: unknown direction %q", s)
	}
}

// Signal is one candidate trade as delivered by a signal source. Optional
// model outputs are pointers so that "absent" and "zero" stay distinguishable
// until normalisation.
type Signal struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Direction       Direction `json:"direction"`
	ModelConfidence *float64  `json:"model_confidence,omitempty"` // [0,1]
	RiskRewardRatio *float64  `json:"risk_reward_ratio,omitempty"`
	SpreadBps       *float64  `json:"spread_bps,omitempty"`
	Timeframe       string    `json:"timeframe,omitempty"`
	EntryPrice      *float64  `json:"entry_price,omitempty"`
	TakeProfit      *float64  `json:"take_profit,omitempty"`
	StopLoss        *float64  `json:"stop_loss,omitempty"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Validate rejects signals that are malformed beyond repair. Bad-but-plausible
// values (missing confidence, zero entry) are not errors; they get defined
// degenerate treatment downstream.
func (s *Signal) Validate() error {
	if s == nil {
		return errors.New("signal: nil signal")
	}
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("signal: id is required")
	}
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("signal %s: symbol is required", s.ID)
	}
	switch s.Direction {
	case DirectionBuy, DirectionSell:
	default:
		return fmt.Errorf("signal %s: direction must be buy or sell, got %q", s.ID, s.Direction)
	}
	if s.ModelConfidence != nil && (*s.ModelConfidence < 0 || *s.ModelConfidence > 1) {
		return fmt.Errorf("signal %s: model_confidence must be within [0,1]", s.ID)
	}
	if s.RiskRewardRatio != nil && *s.RiskRewardRatio < 0 {
		return fmt.Errorf("signal %s: risk_reward_ratio must be non-negative", s.ID)
	}
	if s.SpreadBps != nil && *s.SpreadBps < 0 {
		return fmt.Errorf("signal %s: spread_bps must be non-negative", s.ID)
	}
	return nil
}
