package domain

import "time"

// Position represents an open or closed position tracked by the engine.
type Position struct {
	ID         int64          // Unique identifier for the position (usually from DB)
	Ticket     int64          // Broker-side ticket for the opening order
	Symbol     string         // Trading symbol (e.g., "XAUUSD")
	Action     Action         // Buy or Sell
	EntryPrice float64        // Price at which the position was entered
	ExitPrice  float64        // Price at which the position was exited (0 if open)
	Volume     float64        // Lot size of the position
	StopLoss   float64        // Price level for stop-loss
	TakeProfit float64        // Price level for take-profit
	Confidence float64        // Signal confidence at entry
	EntryTime  time.Time      // Timestamp when the position was entered
	ExitTime   time.Time      // Timestamp when the position was exited (zero value if open)
	Status     PositionStatus // Current status (open, closed)
	PNL        float64        // Profit and Loss, calculated on close

	CloseReason CloseReason // Reason for closing (SL, TP, Manual, etc.)
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// TPHit reports whether the given price has crossed the take-profit level.
func (p *Position) TPHit(price float64) bool {
	if p.Action == Buy {
		return price >= p.TakeProfit
	}
	return price <= p.TakeProfit
}

// SLHit reports whether the given price has crossed the stop-loss level.
func (p *Position) SLHit(price float64) bool {
	if p.Action == Buy {
		return price <= p.StopLoss
	}
	return price >= p.StopLoss
}
