// Package app wires the signal pipeline to the broker, repository and risk
// sizer, and runs the scan-compute-act loop.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mtPilotBot/internal/adapters/tradelog"
	"mtPilotBot/internal/analytics"
	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/instrument"
	"mtPilotBot/internal/metrics"
	"mtPilotBot/internal/ports"
	"mtPilotBot/internal/risk"
	"mtPilotBot/internal/signal"
	"mtPilotBot/internal/signal/indicators"
)

const (
	// predictorVetoConfidence is the model confidence required to override a
	// scored decision.
	predictorVetoConfidence = 0.5

	// snapshotEvery is the number of closed trades between performance
	// snapshots written to the trade log.
	snapshotEvery = 10

	// tradeHistoryLimit bounds the trades pulled for a snapshot report.
	tradeHistoryLimit = 1000
)

// Deps holds the collaborators of the trading engine. Predictor, TradeLog and
// Metrics are optional.
type Deps struct {
	Logger    ports.Logger
	Market    ports.MarketDataProvider
	Executor  ports.OrderExecutor
	Account   ports.AccountProvider
	PosRepo   ports.PositionRepository
	TradeRepo ports.TradeRepository
	Bank      *indicators.Bank
	Sizer     *risk.Sizer
	Predictor ports.Predictor
	TradeLog  *tradelog.Logger
	Metrics   *metrics.Recorder
}

// Config holds the engine's runtime parameters.
type Config struct {
	Symbol      string
	Mode        domain.TradingMode
	Spec        instrument.Spec
	CloseOnExit bool // market-close open positions on shutdown
}

// Engine runs the poll-compute-act loop for a single symbol.
type Engine struct {
	cfg  Config
	deps Deps

	mu        sync.Mutex
	series    *domain.PriceSeries
	positions []*domain.Position
	closed    int // trades closed since start, drives snapshot cadence
}

// NewEngine creates the trading engine.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if deps.Logger == nil || deps.Market == nil || deps.Executor == nil ||
		deps.Account == nil || deps.PosRepo == nil || deps.TradeRepo == nil ||
		deps.Bank == nil || deps.Sizer == nil {
		return nil, fmt.Errorf("missing required dependencies for engine")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if err := cfg.Mode.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Spec.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		series: domain.NewPriceSeries(domain.DefaultSeriesCapacity),
	}, nil
}

// Start runs the scan loop until ctx is canceled. It restores open positions
// from the repository first so a restart resumes TP/SL monitoring.
func (e *Engine) Start(ctx context.Context) error {
	log := e.deps.Logger
	log.Info(ctx, "Starting trading engine", map[string]interface{}{
		"symbol":       e.cfg.Symbol,
		"mode":         e.cfg.Mode.Name,
		"scanInterval": e.cfg.Mode.ScanInterval.String(),
	})

	open, err := e.deps.PosRepo.FindOpenBySymbol(ctx, e.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("restoring open positions: %w", err)
	}
	e.positions = open
	if len(open) > 0 {
		log.Info(ctx, "Restored open positions", map[string]interface{}{"count": len(open)})
	}

	tradesToday, err := e.deps.TradeRepo.CountTodayBySymbol(ctx, e.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("counting today's trades: %w", err)
	}
	lossToday, err := e.lossToday(ctx)
	if err != nil {
		return fmt.Errorf("summing today's losses: %w", err)
	}
	e.deps.Sizer.Restore(tradesToday, lossToday)
	log.Info(ctx, "Initial state synchronized", map[string]interface{}{
		"tradesToday": tradesToday,
		"lossToday":   lossToday,
	})

	ticker := time.NewTicker(e.cfg.Mode.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(context.Background(), "Scan loop stopping")
			if e.cfg.CloseOnExit {
				e.closeAll(context.Background())
			}
			return nil
		case <-ticker.C:
			started := time.Now()
			if err := e.scanOnce(ctx); err != nil {
				// A failed tick is skipped, never fatal. The next tick
				// retries from fresh data.
				log.Warn(ctx, "Scan tick skipped", map[string]interface{}{"error": err.Error()})
			}
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordTick(e.cfg.Symbol, time.Since(started))
			}
		}
	}
}

// lossToday sums the absolute realized losses recorded since local midnight,
// used to seed the sizer's daily loss accumulator on startup.
func (e *Engine) lossToday(ctx context.Context) (float64, error) {
	trades, err := e.deps.TradeRepo.FindBySymbol(ctx, e.cfg.Symbol, tradeHistoryLimit)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var loss float64
	for _, trade := range trades {
		if trade.PNL < 0 && !trade.ExitTime.Before(midnight) {
			loss -= trade.PNL
		}
	}
	return loss, nil
}

// scanOnce runs one full pipeline pass: refresh data, manage open positions,
// score, size, submit.
func (e *Engine) scanOnce(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	limit := e.deps.Bank.RequiredDataPoints()
	klines, err := e.deps.Market.GetRecentKlines(ctx, e.cfg.Symbol, limit)
	if err != nil {
		return fmt.Errorf("fetching klines: %w", err)
	}
	if len(klines) == 0 {
		return fmt.Errorf("no kline data returned")
	}
	e.series.Replace(klines)
	currentPrice := klines[len(klines)-1].Close

	e.checkExits(ctx, currentPrice)

	snapshot, err := e.deps.Bank.Compute(e.series.Klines())
	if err != nil {
		return fmt.Errorf("computing indicators: %w", err)
	}

	decision := signal.Score(snapshot, currentPrice, e.cfg.Mode)
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordSignal(e.cfg.Symbol, string(decision.Action), decision.Confidence)
	}
	if decision.Action == domain.Hold {
		return nil
	}

	e.deps.Logger.Info(ctx, "Signal scored", map[string]interface{}{
		"symbol":     e.cfg.Symbol,
		"action":     decision.Action,
		"confidence": decision.Confidence,
		"strength":   decision.Strength,
		"buyScore":   decision.Scores.BuyScore,
		"sellScore":  decision.Scores.SellScore,
	})

	if e.vetoed(ctx, snapshot, currentPrice, decision) {
		return nil
	}

	balance, err := e.deps.Account.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("fetching balance: %w", err)
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordBalance(e.cfg.Symbol, balance)
	}

	brokerOpen, err := e.deps.Account.GetOpenPositionCount(ctx, e.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("fetching open position count: %w", err)
	}
	// The broker may carry positions the local book does not (attached
	// exchange-side stops, manual trades), and vice versa during restore.
	// The position gate honors whichever count is higher.
	openCount := len(e.positions)
	if brokerOpen > openCount {
		openCount = brokerOpen
	}

	intent, reason, err := e.deps.Sizer.SizeOrder(ctx, decision, balance, currentPrice, e.cfg.Spec, openCount)
	if err != nil {
		return fmt.Errorf("sizing order: %w", err)
	}
	if intent == nil {
		e.deps.Logger.Info(ctx, "Signal rejected by risk sizer", map[string]interface{}{
			"symbol": e.cfg.Symbol,
			"reason": reason,
		})
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordRejection(e.cfg.Symbol, reason)
		}
		return nil
	}

	return e.openPosition(ctx, intent)
}

// vetoed consults the optional predictor. A confident disagreement vetoes the
// scored decision; prediction failure never blocks trading.
func (e *Engine) vetoed(ctx context.Context, snapshot *domain.IndicatorSnapshot, price float64, decision domain.SignalDecision) bool {
	if e.deps.Predictor == nil {
		return false
	}
	pred, err := e.deps.Predictor.Predict(ctx, signal.Features(snapshot, price))
	if err != nil {
		e.deps.Logger.Warn(ctx, "Predictor unavailable, proceeding on scored signal", map[string]interface{}{"error": err.Error()})
		return false
	}
	if pred.Action != decision.Action && pred.Confidence >= predictorVetoConfidence {
		e.deps.Logger.Info(ctx, "Signal vetoed by predictor", map[string]interface{}{
			"scored":         decision.Action,
			"predicted":      pred.Action,
			"predConfidence": pred.Confidence,
		})
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordRejection(e.cfg.Symbol, "predictor veto")
		}
		return true
	}
	return false
}

func (e *Engine) openPosition(ctx context.Context, intent *domain.OrderIntent) error {
	receipt, err := e.deps.Executor.SubmitOrder(ctx, intent)
	if err != nil {
		return fmt.Errorf("submitting order: %w", err)
	}

	pos := &domain.Position{
		Ticket:     receipt.Ticket,
		Symbol:     intent.Symbol,
		Action:     intent.Action,
		EntryPrice: receipt.Price,
		Volume:     receipt.Volume,
		StopLoss:   intent.SLPrice,
		TakeProfit: intent.TPPrice,
		Confidence: intent.Confidence,
		EntryTime:  receipt.Timestamp,
		Status:     domain.StatusOpen,
	}
	id, err := e.deps.PosRepo.Create(ctx, pos)
	if err != nil {
		// The broker holds a position the database does not know about.
		// Unwind it rather than run untracked exposure.
		e.deps.Logger.Error(ctx, err, "Failed to persist position, unwinding broker order", map[string]interface{}{"ticket": receipt.Ticket})
		if _, closeErr := e.deps.Executor.CloseOrder(ctx, receipt.Ticket, pos.Symbol, pos.Action, pos.Volume); closeErr != nil {
			e.deps.Logger.Error(ctx, closeErr, "Unwind failed, manual intervention required", map[string]interface{}{"ticket": receipt.Ticket})
		}
		return fmt.Errorf("persisting position: %w", err)
	}
	pos.ID = id
	e.positions = append(e.positions, pos)

	e.deps.Logger.Info(ctx, "Position opened", map[string]interface{}{
		"positionID": pos.ID,
		"ticket":     pos.Ticket,
		"action":     pos.Action,
		"entryPrice": pos.EntryPrice,
		"takeProfit": pos.TakeProfit,
		"stopLoss":   pos.StopLoss,
	})
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordOrder(e.cfg.Symbol, string(pos.Action))
		e.deps.Metrics.RecordOpenPositions(e.cfg.Symbol, len(e.positions))
	}
	if e.deps.TradeLog != nil {
		if err := e.deps.TradeLog.LogOpen(pos); err != nil {
			e.deps.Logger.Warn(ctx, "Trade log append failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// checkExits closes any tracked position whose TP or SL level the current
// price has crossed.
func (e *Engine) checkExits(ctx context.Context, price float64) {
	remaining := e.positions[:0]
	for _, pos := range e.positions {
		var reason domain.CloseReason
		switch {
		case pos.TPHit(price):
			reason = domain.CloseReasonTakeProfit
		case pos.SLHit(price):
			reason = domain.CloseReasonStopLoss
		default:
			remaining = append(remaining, pos)
			continue
		}
		if err := e.closePosition(ctx, pos, reason); err != nil {
			e.deps.Logger.Error(ctx, err, "Failed to close position, will retry next tick", map[string]interface{}{"positionID": pos.ID})
			remaining = append(remaining, pos)
		}
	}
	e.positions = remaining
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordOpenPositions(e.cfg.Symbol, len(e.positions))
	}
}

func (e *Engine) closePosition(ctx context.Context, pos *domain.Position, reason domain.CloseReason) error {
	exitPrice, err := e.deps.Executor.CloseOrder(ctx, pos.Ticket, pos.Symbol, pos.Action, pos.Volume)
	if err != nil {
		return fmt.Errorf("closing order %d: %w", pos.Ticket, err)
	}

	pnl := e.cfg.Spec.ProfitFor(pos.EntryPrice, exitPrice, pos.Volume, pos.Action == domain.Buy)
	pos.ExitPrice = exitPrice
	pos.ExitTime = time.Now().UTC()
	pos.Status = domain.StatusClosed
	pos.PNL = pnl
	pos.CloseReason = reason

	if err := e.deps.PosRepo.Update(ctx, pos); err != nil {
		return fmt.Errorf("updating closed position %d: %w", pos.ID, err)
	}

	trade := &domain.Trade{
		PositionID:  pos.ID,
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
		ExitTime:    pos.ExitTime,
		CloseReason: reason,
	}
	if _, err := e.deps.TradeRepo.CreateTrade(ctx, trade); err != nil {
		return fmt.Errorf("recording trade for position %d: %w", pos.ID, err)
	}

	e.deps.Sizer.RecordClose(ctx, trade)
	e.closed++

	e.deps.Logger.Info(ctx, "Position closed", map[string]interface{}{
		"positionID": pos.ID,
		"reason":     reason,
		"exitPrice":  exitPrice,
		"pnl":        pnl,
	})
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordClose(e.cfg.Symbol, string(reason))
	}
	if e.deps.TradeLog != nil {
		if err := e.deps.TradeLog.LogClose(trade); err != nil {
			e.deps.Logger.Warn(ctx, "Trade log append failed", map[string]interface{}{"error": err.Error()})
		}
		if e.closed%snapshotEvery == 0 {
			e.writeSnapshot(ctx)
		}
	}
	return nil
}

// writeSnapshot computes performance over recorded trades and appends it to
// the JSON performance log.
func (e *Engine) writeSnapshot(ctx context.Context) {
	trades, err := e.deps.TradeRepo.FindBySymbol(ctx, e.cfg.Symbol, tradeHistoryLimit)
	if err != nil {
		e.deps.Logger.Warn(ctx, "Snapshot skipped, trade history unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	balance, err := e.deps.Account.GetBalance(ctx)
	if err != nil {
		e.deps.Logger.Warn(ctx, "Snapshot skipped, balance unavailable", map[string]interface{}{"error": err.Error()})
		return
	}

	report := analytics.Analyze(trades, balance-sumPnL(trades))
	state := e.deps.Sizer.State()
	snap := tradelog.Snapshot{
		Symbol:       e.cfg.Symbol,
		Balance:      balance,
		TotalTrades:  report.TotalTrades,
		Wins:         report.WinningTrades,
		Losses:       report.LosingTrades,
		WinRate:      report.WinRate,
		TotalProfit:  report.TotalProfit,
		ProfitFactor: report.ProfitFactor,
		MaxDrawdown:  report.MaxDrawdown,
		SessionPnL:   state.SessionPnL,
	}
	if err := e.deps.TradeLog.LogSnapshot(snap); err != nil {
		e.deps.Logger.Warn(ctx, "Snapshot append failed", map[string]interface{}{"error": err.Error()})
	}
}

// closeAll market-closes every tracked position during shutdown.
func (e *Engine) closeAll(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pos := range e.positions {
		if err := e.closePosition(ctx, pos, domain.CloseReasonShutdown); err != nil {
			e.deps.Logger.Error(ctx, err, "Shutdown close failed", map[string]interface{}{"positionID": pos.ID})
		}
	}
	e.positions = nil
}

// OpenPositions returns a copy of the currently tracked open positions.
func (e *Engine) OpenPositions() []*domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.Position, len(e.positions))
	copy(out, e.positions)
	return out
}

func sumPnL(trades []*domain.Trade) float64 {
	var total float64
	for _, t := range trades {
		total += t.PNL
	}
	return total
}
