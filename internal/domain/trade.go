package domain

import "time"

// Trade represents a completed (closed) trade.
type Trade struct {
	ID          int64       // Unique identifier for the trade (usually from DB)
	PositionID  int64       // Identifier of the position this trade closed (optional)
	Symbol      string      // Trading symbol (e.g., "XAUUSD")
	Action      Action      // Side the position was opened on
	EntryPrice  float64     // Price at which the position was entered
	ExitPrice   float64     // Price at which the position was exited
	Volume      float64     // Lot size traded
	TakeProfit  float64     // TP level the position carried
	StopLoss    float64     // SL level the position carried
	Confidence  float64     // Signal confidence at entry
	PNL         float64     // Profit and Loss for this trade
	EntryTime   time.Time   // Timestamp when the position was entered
	ExitTime    time.Time   // Timestamp when the position was exited
	CloseReason CloseReason // Reason why the position was closed (SL, TP, etc.)
}
