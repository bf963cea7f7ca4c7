// Package risk converts accepted signals into concretely sized orders and
// enforces the account-protection rules: balance-relative TP/SL targets,
// daily loss and drawdown caps, loss-streak cooldowns and position limits.
package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/instrument"
	"mtPilotBot/internal/ports"
)

// Rejection reasons surfaced to the caller. Business-rule rejections are
// normal no-trade outcomes, never errors.
const (
	ReasonCooldown          = "cooldown active"
	ReasonConsecutiveLosses = "consecutive losses"
	ReasonDailyLossLimit    = "daily loss limit"
	ReasonDrawdownLimit     = "drawdown limit"
	ReasonMaxPositions      = "max positions reached"
	ReasonDailyTradeLimit   = "daily trade limit"
)

// Config holds risk management configuration.
type Config struct {
	Mode            domain.TradingMode
	Lots            float64 // position volume per trade
	MaxDailyLossPct float64 // daily loss cap as a fraction of balance, e.g. 0.05
	MaxDrawdownPct  float64 // peak-to-trough equity cap, e.g. 0.03
	MaxTradesPerDay int     // session trade cap
}

// State tracks the mutable, process-lifetime risk counters. Mutated only by
// the scan-loop goroutine via RecordClose; daily accumulators reset exactly
// once on day rollover.
type State struct {
	ConsecutiveLosses int
	DailyLossAmount   float64
	DailyProfitAmount float64
	DailyTrades       int
	SessionPnL        float64
	PeakBalance       float64
	CooldownUntil     time.Time
	LastResetDay      time.Time
}

// Sizer sizes orders from signal decisions and live balance.
type Sizer struct {
	cfg    Config
	logger ports.Logger
	now    func() time.Time
	state  State
}

// NewSizer creates a risk sizer.
func NewSizer(cfg Config, logger ports.Logger) (*Sizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for risk sizer")
	}
	if err := cfg.Mode.Validate(); err != nil {
		return nil, err
	}
	if cfg.Lots <= 0 {
		return nil, fmt.Errorf("lots must be positive, got %f", cfg.Lots)
	}
	if cfg.MaxDailyLossPct <= 0 || cfg.MaxDailyLossPct >= 1 {
		return nil, fmt.Errorf("MaxDailyLossPct must be between 0 and 1, got %f", cfg.MaxDailyLossPct)
	}
	if cfg.MaxDrawdownPct <= 0 || cfg.MaxDrawdownPct >= 1 {
		return nil, fmt.Errorf("MaxDrawdownPct must be between 0 and 1, got %f", cfg.MaxDrawdownPct)
	}
	if cfg.MaxTradesPerDay <= 0 {
		return nil, fmt.Errorf("MaxTradesPerDay must be positive, got %d", cfg.MaxTradesPerDay)
	}
	return &Sizer{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SizeOrder converts a BUY/SELL decision into a sized OrderIntent with TP/SL
// levels derived from fractions of the current balance.
//
// A nil intent with a non-empty reason is a business-rule rejection. A
// non-nil error indicates an invariant violation (non-positive balance,
// TP/SL landing on the wrong side of entry) and should fail the run.
func (s *Sizer) SizeOrder(
	ctx context.Context,
	decision domain.SignalDecision,
	balance float64,
	entryPrice float64,
	spec instrument.Spec,
	openPositions int,
) (*domain.OrderIntent, string, error) {
	if decision.Action != domain.Buy && decision.Action != domain.Sell {
		return nil, "", fmt.Errorf("cannot size a %s decision", decision.Action)
	}
	if balance <= 0 {
		return nil, "", fmt.Errorf("invariant violation: balance must be positive, got %f", balance)
	}
	if entryPrice <= 0 {
		return nil, "", fmt.Errorf("invariant violation: entry price must be positive, got %f", entryPrice)
	}

	now := s.now()
	s.resetDailyIfNeeded(ctx, now)

	if balance > s.state.PeakBalance {
		s.state.PeakBalance = balance
	}

	if reason := s.checkLimits(now, balance, openPositions); reason != "" {
		return nil, reason, nil
	}

	tpAmount := balance * s.cfg.Mode.TPFraction
	slAmount := balance * s.cfg.Mode.SLFraction

	tpOffset, err := spec.MoneyToPriceOffset(tpAmount, s.cfg.Lots)
	if err != nil {
		return nil, "", err
	}
	slOffset, err := spec.MoneyToPriceOffset(slAmount, s.cfg.Lots)
	if err != nil {
		return nil, "", err
	}

	var tpPrice, slPrice float64
	if decision.Action == domain.Buy {
		tpPrice = roundTo(entryPrice+tpOffset, spec.Digits)
		slPrice = roundTo(entryPrice-slOffset, spec.Digits)
		if tpPrice <= entryPrice || slPrice >= entryPrice {
			return nil, "", fmt.Errorf("invariant violation: BUY levels out of order (sl=%f entry=%f tp=%f)", slPrice, entryPrice, tpPrice)
		}
	} else {
		tpPrice = roundTo(entryPrice-tpOffset, spec.Digits)
		slPrice = roundTo(entryPrice+slOffset, spec.Digits)
		if tpPrice >= entryPrice || slPrice <= entryPrice {
			return nil, "", fmt.Errorf("invariant violation: SELL levels out of order (tp=%f entry=%f sl=%f)", tpPrice, entryPrice, slPrice)
		}
	}

	return &domain.OrderIntent{
		Symbol:     spec.Symbol,
		Action:     decision.Action,
		Volume:     s.cfg.Lots,
		EntryPrice: entryPrice,
		TPPrice:    tpPrice,
		SLPrice:    slPrice,
		Confidence: decision.Confidence,
	}, "", nil
}

// checkLimits runs the ordered business-rule gates, returning the first
// rejection reason or an empty string.
func (s *Sizer) checkLimits(now time.Time, balance float64, openPositions int) string {
	if now.Before(s.state.CooldownUntil) {
		if s.state.ConsecutiveLosses >= s.cfg.Mode.MaxConsecLosses {
			return ReasonConsecutiveLosses
		}
		return ReasonCooldown
	}
	// Cooldown has been served: the streak gets a clean slate.
	if !s.state.CooldownUntil.IsZero() && s.state.ConsecutiveLosses >= s.cfg.Mode.MaxConsecLosses {
		s.state.ConsecutiveLosses = 0
		s.state.CooldownUntil = time.Time{}
	}

	if s.state.ConsecutiveLosses >= s.cfg.Mode.MaxConsecLosses {
		return ReasonConsecutiveLosses
	}
	if s.state.DailyLossAmount/balance > s.cfg.MaxDailyLossPct {
		return ReasonDailyLossLimit
	}
	if s.state.PeakBalance > 0 {
		drawdown := (s.state.PeakBalance - balance) / s.state.PeakBalance
		if drawdown >= s.cfg.MaxDrawdownPct {
			return ReasonDrawdownLimit
		}
	}
	if openPositions >= s.cfg.Mode.MaxPositions {
		return ReasonMaxPositions
	}
	if s.state.DailyTrades >= s.cfg.MaxTradesPerDay {
		return ReasonDailyTradeLimit
	}
	return ""
}

// RecordClose updates the risk state after a trade closes. A loss extends
// the streak and the daily loss accumulator; crossing the mode's streak
// limit arms the cooldown. Any profitable close resets the streak.
func (s *Sizer) RecordClose(ctx context.Context, trade *domain.Trade) {
	now := s.now()
	s.resetDailyIfNeeded(ctx, now)

	s.state.DailyTrades++
	s.state.SessionPnL += trade.PNL

	if trade.PNL >= 0 {
		s.state.DailyProfitAmount += trade.PNL
		s.state.ConsecutiveLosses = 0
		return
	}

	s.state.DailyLossAmount += math.Abs(trade.PNL)
	s.state.ConsecutiveLosses++
	if s.state.ConsecutiveLosses >= s.cfg.Mode.MaxConsecLosses {
		s.state.CooldownUntil = now.Add(s.cfg.Mode.Cooldown)
		s.logger.Warn(ctx, "Loss streak limit hit, cooling down", map[string]interface{}{
			"consecutiveLosses": s.state.ConsecutiveLosses,
			"cooldownUntil":     s.state.CooldownUntil,
		})
	}
}

// State returns a copy of the current risk counters.
func (s *Sizer) State() State {
	return s.state
}

// Restore seeds the daily counters from persisted trade history so a mid-day
// restart keeps enforcing the daily caps. Today is stamped as the last reset
// day so the rollover check does not immediately wipe the restored values.
func (s *Sizer) Restore(dailyTrades int, dailyLoss float64) {
	if dailyTrades < 0 {
		dailyTrades = 0
	}
	if dailyLoss < 0 {
		dailyLoss = 0
	}
	now := s.now()
	y, m, d := now.Date()
	s.state.LastResetDay = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	s.state.DailyTrades = dailyTrades
	s.state.DailyLossAmount = dailyLoss
}

// SetClock replaces the time source. Used by the backtester to drive risk
// time from historical kline timestamps.
func (s *Sizer) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// roundTo rounds a price to the instrument's decimal precision.
func roundTo(price float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(price*factor) / factor
}

// resetDailyIfNeeded zeroes the daily accumulators once per calendar day.
func (s *Sizer) resetDailyIfNeeded(ctx context.Context, now time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if s.state.LastResetDay.Equal(today) {
		return
	}
	if !s.state.LastResetDay.IsZero() {
		s.logger.Info(ctx, "Day rollover, resetting daily risk counters", map[string]interface{}{
			"dailyTrades": s.state.DailyTrades,
			"dailyLoss":   s.state.DailyLossAmount,
			"dailyProfit": s.state.DailyProfitAmount,
		})
	}
	s.state.LastResetDay = today
	s.state.DailyLossAmount = 0
	s.state.DailyProfitAmount = 0
	s.state.DailyTrades = 0
	s.state.ConsecutiveLosses = 0
}
