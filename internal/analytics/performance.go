// Package analytics computes performance statistics over closed trades. It is
// shared by the backtester's report and the live engine's periodic snapshots.
package analytics

import (
	"math"
	"sort"
	"time"

	"mtPilotBot/internal/domain"
)

// Report holds performance metrics computed from a sequence of closed trades.
type Report struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	GrossProfit   float64
	GrossLoss     float64 // positive magnitude
	ProfitFactor  float64
	AverageWin    float64
	AverageLoss   float64 // negative or zero
	Expectancy    float64
	MaxDrawdown   float64 // fraction of peak equity
	SharpeRatio   float64
	FinalBalance  float64
	ROI           float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageDuration      time.Duration
	EquityCurve          []EquityPoint
	DailyPnL             map[string]float64 // keyed YYYY-MM-DD
}

// EquityPoint is the account equity after a trade closed.
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// Analyze computes a Report from the given trades and starting balance.
// Trades are processed in exit-time order; the input slice is not modified.
func Analyze(trades []*domain.Trade, initialBalance float64) *Report {
	report := &Report{
		FinalBalance: initialBalance,
		DailyPnL:     make(map[string]float64),
		EquityCurve:  make([]EquityPoint, 0, len(trades)),
	}
	if len(trades) == 0 {
		return report
	}

	ordered := make([]*domain.Trade, len(trades))
	copy(ordered, trades)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ExitTime.Before(ordered[j].ExitTime)
	})

	balance := initialBalance
	peak := initialBalance
	var streakWins, streakLosses int
	var totalDuration time.Duration
	returns := make([]float64, 0, len(ordered))

	for _, trade := range ordered {
		report.TotalTrades++
		if trade.PNL > 0 {
			report.WinningTrades++
			report.GrossProfit += trade.PNL
			streakWins++
			streakLosses = 0
		} else {
			report.LosingTrades++
			report.GrossLoss += -trade.PNL
			streakLosses++
			streakWins = 0
		}
		if streakWins > report.MaxConsecutiveWins {
			report.MaxConsecutiveWins = streakWins
		}
		if streakLosses > report.MaxConsecutiveLosses {
			report.MaxConsecutiveLosses = streakLosses
		}

		if balance > 0 {
			returns = append(returns, trade.PNL/balance)
		}
		balance += trade.PNL
		report.TotalProfit += trade.PNL
		report.DailyPnL[trade.ExitTime.Format("2006-01-02")] += trade.PNL
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)

		if balance > peak {
			peak = balance
		}
		drawdown := 0.0
		if peak > 0 {
			drawdown = (peak - balance) / peak
		}
		if drawdown > report.MaxDrawdown {
			report.MaxDrawdown = drawdown
		}
		report.EquityCurve = append(report.EquityCurve, EquityPoint{
			Time:     trade.ExitTime,
			Value:    balance,
			Drawdown: drawdown,
		})
	}

	report.FinalBalance = balance
	report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	if report.WinningTrades > 0 {
		report.AverageWin = report.GrossProfit / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = -report.GrossLoss / float64(report.LosingTrades)
	}
	if report.GrossLoss > 0 {
		report.ProfitFactor = report.GrossProfit / report.GrossLoss
	}
	if initialBalance > 0 {
		report.ROI = (report.FinalBalance - initialBalance) / initialBalance
	}
	report.Expectancy = report.WinRate*report.AverageWin + (1-report.WinRate)*report.AverageLoss
	report.AverageDuration = totalDuration / time.Duration(report.TotalTrades)
	report.SharpeRatio = sharpe(returns)
	return report
}

// sharpe returns the per-trade Sharpe ratio (zero risk-free rate).
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}
