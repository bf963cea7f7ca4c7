package domain

// Action represents the trading action produced by the signal scorer.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
	Hold Action = "HOLD"
)

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonShutdown   CloseReason = "SHUTDOWN"
	CloseReasonBacktest   CloseReason = "BACKTEST_END"
	CloseReasonUnknown    CloseReason = "Unknown"
)
