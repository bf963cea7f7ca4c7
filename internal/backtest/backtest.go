// Package backtest replays the live pipeline (indicator bank, signal scorer,
// risk sizer) over historical klines with simulated fills and produces a
// performance report.
package backtest

import (
	"context"
	"fmt"
	"time"

	"mtPilotBot/internal/analytics"
	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/instrument"
	"mtPilotBot/internal/ports"
	"mtPilotBot/internal/risk"
	"mtPilotBot/internal/signal"
	"mtPilotBot/internal/signal/indicators"
)

// Config holds parameters for one backtest run.
type Config struct {
	Symbol         string
	Mode           domain.TradingMode
	Spec           instrument.Spec
	InitialBalance float64
	Lots           float64
	RiskConfig     risk.Config
	Logger         ports.Logger
}

// Result holds the outcome of a backtest run.
type Result struct {
	Report     *analytics.Report
	Trades     []*domain.Trade
	Rejections map[string]int // sizer rejection reason counts
	BarsTested int
}

// Run replays the pipeline over klines, oldest first. Fills are simulated at
// bar close for entries; TP/SL exits use bar high/low with SL priority when
// both levels fall inside the same bar.
func Run(ctx context.Context, cfg Config, bank *indicators.Bank, klines []*domain.Kline) (*Result, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for backtest")
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive, got %f", cfg.InitialBalance)
	}
	required := bank.RequiredDataPoints()
	if len(klines) <= required {
		return nil, fmt.Errorf("not enough klines for backtest: have %d, need more than %d", len(klines), required)
	}

	sizer, err := risk.NewSizer(cfg.RiskConfig, cfg.Logger)
	if err != nil {
		return nil, err
	}
	// Risk time follows the replayed bars, not the wall clock.
	var barTime time.Time
	sizer.SetClock(func() time.Time { return barTime })

	balance := cfg.InitialBalance
	var open []*domain.Position
	var trades []*domain.Trade
	rejections := make(map[string]int)
	var nextTicket int64

	closeAt := func(pos *domain.Position, exitPrice float64, exitTime time.Time, reason domain.CloseReason) {
		pnl := cfg.Spec.ProfitFor(pos.EntryPrice, exitPrice, pos.Volume, pos.Action == domain.Buy)
		balance += pnl
		trade := &domain.Trade{
			PositionID:  pos.Ticket,
			Symbol:      pos.Symbol,
			Action:      pos.Action,
			EntryPrice:  pos.EntryPrice,
			ExitPrice:   exitPrice,
			Volume:      pos.Volume,
			TakeProfit:  pos.TakeProfit,
			StopLoss:    pos.StopLoss,
			Confidence:  pos.Confidence,
			PNL:         pnl,
			EntryTime:   pos.EntryTime,
			ExitTime:    exitTime,
			CloseReason: reason,
		}
		trades = append(trades, trade)
		sizer.RecordClose(ctx, trade)
	}

	for i := required; i < len(klines); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := klines[i]
		barTime = bar.CloseTime
		window := klines[i+1-required : i+1]

		// Exits first, against the bar's full range.
		remaining := open[:0]
		for _, pos := range open {
			exitPrice, reason, hit := exitWithinBar(pos, bar)
			if !hit {
				remaining = append(remaining, pos)
				continue
			}
			closeAt(pos, exitPrice, bar.CloseTime, reason)
		}
		open = remaining

		snapshot, err := bank.Compute(window)
		if err != nil {
			return nil, fmt.Errorf("computing indicators at bar %d: %w", i, err)
		}
		decision := signal.Score(snapshot, bar.Close, cfg.Mode)
		if decision.Action == domain.Hold {
			continue
		}
		if balance <= 0 {
			// Account blown. Stop opening, let remaining positions run out.
			continue
		}

		intent, reason, err := sizer.SizeOrder(ctx, decision, balance, bar.Close, cfg.Spec, len(open))
		if err != nil {
			return nil, fmt.Errorf("sizing at bar %d: %w", i, err)
		}
		if intent == nil {
			rejections[reason]++
			continue
		}

		nextTicket++
		open = append(open, &domain.Position{
			Ticket:     nextTicket,
			Symbol:     cfg.Symbol,
			Action:     intent.Action,
			EntryPrice: intent.EntryPrice,
			Volume:     intent.Volume,
			StopLoss:   intent.SLPrice,
			TakeProfit: intent.TPPrice,
			Confidence: intent.Confidence,
			EntryTime:  bar.CloseTime,
			Status:     domain.StatusOpen,
		})
	}

	// Anything still open settles at the final close.
	last := klines[len(klines)-1]
	for _, pos := range open {
		closeAt(pos, last.Close, last.CloseTime, domain.CloseReasonBacktest)
	}

	report := analytics.Analyze(trades, cfg.InitialBalance)
	cfg.Logger.Info(ctx, "Backtest complete", map[string]interface{}{
		"symbol":       cfg.Symbol,
		"bars":         len(klines) - required,
		"trades":       report.TotalTrades,
		"winRate":      report.WinRate,
		"totalProfit":  report.TotalProfit,
		"maxDrawdown":  report.MaxDrawdown,
		"finalBalance": report.FinalBalance,
	})
	return &Result{
		Report:     report,
		Trades:     trades,
		Rejections: rejections,
		BarsTested: len(klines) - required,
	}, nil
}

// exitWithinBar checks whether the bar's range crossed the position's SL or
// TP. When both fall inside the bar the stop is assumed to fill first.
func exitWithinBar(pos *domain.Position, bar *domain.Kline) (float64, domain.CloseReason, bool) {
	if pos.Action == domain.Buy {
		if bar.Low <= pos.StopLoss {
			return pos.StopLoss, domain.CloseReasonStopLoss, true
		}
		if bar.High >= pos.TakeProfit {
			return pos.TakeProfit, domain.CloseReasonTakeProfit, true
		}
		return 0, domain.CloseReasonUnknown, false
	}
	if bar.High >= pos.StopLoss {
		return pos.StopLoss, domain.CloseReasonStopLoss, true
	}
	if bar.Low <= pos.TakeProfit {
		return pos.TakeProfit, domain.CloseReasonTakeProfit, true
	}
	return 0, domain.CloseReasonUnknown, false
}
