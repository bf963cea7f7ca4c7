// Package simulator provides an in-process substitute for a live broker:
// random-walk market data, instant order fills and a balance ledger. It
// implements ports.MarketDataProvider, ports.OrderExecutor and
// ports.AccountProvider, so the engine cannot tell it apart from the live
// backend. Runs are reproducible for a fixed seed.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"mtPilotBot/internal/domain"
	"mtPilotBot/internal/instrument"
	"mtPilotBot/internal/ports"
)

// Typical session-start prices and per-bar volatilities for the shipped
// symbols. Unknown symbols fall back to a generic 100.0 base.
var (
	basePrices = map[string]float64{
		"XAUUSD": 2650.0,
		"EURUSD": 1.0850,
		"GBPUSD": 1.2650,
		"USDJPY": 155.00,
		"BTCUSD": 95000.0,
	}
	barVolatility = map[string]float64{
		"XAUUSD": 0.0015,
		"EURUSD": 0.0008,
		"GBPUSD": 0.0009,
		"USDJPY": 0.0010,
		"BTCUSD": 0.0025,
	}
)

// Config holds configuration for the simulator.
type Config struct {
	Logger         ports.Logger
	Instruments    *instrument.Table
	Seed           int64
	InitialBalance float64
	BarInterval    time.Duration // interval one generated kline represents
}

type position struct {
	intent domain.OrderIntent
	opened time.Time
}

// Simulator is a self-contained market/broker/account triple.
type Simulator struct {
	mu          sync.Mutex
	logger      ports.Logger
	instruments *instrument.Table
	rng         *rand.Rand
	barInterval time.Duration

	balance    float64
	history    map[string][]*domain.Kline
	nextTicket int64
	open       map[int64]*position
}

// New creates a simulator.
func New(cfg Config) (*Simulator, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for simulator")
	}
	if cfg.Instruments == nil {
		return nil, fmt.Errorf("instrument table is required for simulator")
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("initial balance must be positive, got %f", cfg.InitialBalance)
	}
	interval := cfg.BarInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Simulator{
		logger:      cfg.Logger,
		instruments: cfg.Instruments,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		barInterval: interval,
		balance:     cfg.InitialBalance,
		history:     make(map[string][]*domain.Kline),
		open:        make(map[int64]*position),
		nextTicket:  1,
	}, nil
}

// --- ports.MarketDataProvider ---

// GetRecentKlines advances the symbol's random walk by one bar and returns
// the most recent window, oldest first.
func (s *Simulator) GetRecentKlines(_ context.Context, symbol string, limit int) ([]*domain.Kline, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ports.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureHistoryLocked(symbol, limit)
	s.stepLocked(symbol)

	bars := s.history[symbol]
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]*domain.Kline, len(bars))
	copy(out, bars)
	return out, nil
}

// GetTickerPrice returns the last generated price without advancing the walk.
func (s *Simulator) GetTickerPrice(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureHistoryLocked(symbol, 1)
	bars := s.history[symbol]
	return bars[len(bars)-1].Close, nil
}

// ensureHistoryLocked seeds the walk with enough bars to satisfy the window.
func (s *Simulator) ensureHistoryLocked(symbol string, limit int) {
	if len(s.history[symbol]) >= limit {
		return
	}
	missing := limit - len(s.history[symbol])
	for i := 0; i < missing; i++ {
		s.stepLocked(symbol)
	}
}

// stepLocked appends one random-walk bar for the symbol.
func (s *Simulator) stepLocked(symbol string) {
	bars := s.history[symbol]

	prevClose, ok := basePrices[symbol]
	if !ok {
		prevClose = 100.0
	}
	openTime := time.Now().Add(-time.Duration(len(bars)) * s.barInterval)
	if len(bars) > 0 {
		prevClose = bars[len(bars)-1].Close
		openTime = bars[len(bars)-1].CloseTime
	}

	vol, ok := barVolatility[symbol]
	if !ok {
		vol = 0.001
	}

	change := s.rng.NormFloat64() * vol * prevClose
	close := prevClose + change
	if close <= 0 {
		close = prevClose
	}
	high := maxF(prevClose, close) + s.rng.Float64()*vol*prevClose*0.5
	low := minF(prevClose, close) - s.rng.Float64()*vol*prevClose*0.5

	bar := &domain.Kline{
		OpenTime:  openTime,
		CloseTime: openTime.Add(s.barInterval),
		Symbol:    symbol,
		Interval:  s.barInterval.String(),
		Open:      prevClose,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    float64(100 + s.rng.Intn(900)),
		IsFinal:   true,
	}

	bars = append(bars, bar)
	if len(bars) > domain.DefaultSeriesCapacity {
		bars = bars[len(bars)-domain.DefaultSeriesCapacity:]
	}
	s.history[symbol] = bars
}

// --- ports.OrderExecutor ---

// SubmitOrder fills the order instantly at its entry price.
func (s *Simulator) SubmitOrder(ctx context.Context, intent *domain.OrderIntent) (*ports.OrderReceipt, error) {
	if intent == nil || (intent.Action != domain.Buy && intent.Action != domain.Sell) {
		return nil, fmt.Errorf("%w: intent must be a BUY or SELL order", ports.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.nextTicket
	s.nextTicket++
	s.open[ticket] = &position{intent: *intent, opened: time.Now()}

	s.logger.Debug(ctx, "Simulated order filled", map[string]interface{}{
		"ticket": ticket,
		"symbol": intent.Symbol,
		"action": intent.Action,
		"price":  intent.EntryPrice,
	})
	return &ports.OrderReceipt{
		Ticket:    ticket,
		Symbol:    intent.Symbol,
		Price:     intent.EntryPrice,
		Volume:    intent.Volume,
		Timestamp: time.Now(),
	}, nil
}

// CloseOrder market-closes the position at the current simulated price and
// settles the PnL into the balance ledger.
func (s *Simulator) CloseOrder(ctx context.Context, ticket int64, symbol string, action domain.Action, volume float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.open[ticket]
	if !ok {
		return 0, fmt.Errorf("%w: ticket %d", ports.ErrPositionNotFound, ticket)
	}
	delete(s.open, ticket)

	bars := s.history[symbol]
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: no market data for %s", ports.ErrUnknown, symbol)
	}
	exitPrice := bars[len(bars)-1].Close

	spec, err := s.instruments.Lookup(symbol)
	if err != nil {
		return 0, err
	}
	pnl := spec.ProfitFor(pos.intent.EntryPrice, exitPrice, volume, action == domain.Buy)
	s.balance += pnl

	s.logger.Debug(ctx, "Simulated position closed", map[string]interface{}{
		"ticket":    ticket,
		"exitPrice": exitPrice,
		"pnl":       pnl,
		"balance":   s.balance,
	})
	return exitPrice, nil
}

// --- ports.AccountProvider ---

// GetBalance returns the simulated account balance.
func (s *Simulator) GetBalance(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

// GetOpenPositionCount returns the number of open simulated positions for the symbol.
func (s *Simulator) GetOpenPositionCount(_ context.Context, symbol string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, pos := range s.open {
		if pos.intent.Symbol == symbol {
			count++
		}
	}
	return count, nil
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
