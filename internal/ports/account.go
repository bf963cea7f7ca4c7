package ports

import "context"

// AccountProvider exposes account state consumed by the risk sizer before
// accepting a new trade.
type AccountProvider interface {
	// GetBalance retrieves the current account balance in the account currency.
	GetBalance(ctx context.Context) (float64, error)

	// GetOpenPositionCount returns the number of currently open positions for
	// the symbol.
	GetOpenPositionCount(ctx context.Context, symbol string) (int, error)
}
