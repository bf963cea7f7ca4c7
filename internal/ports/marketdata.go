package ports

import (
	"context"

	"mtPilotBot/internal/domain"
)

// MarketDataProvider exposes the two read operations the core pipeline needs.
// The core does not care whether data originates from a live broker or a
// simulator.
type MarketDataProvider interface {
	// GetRecentKlines retrieves the most recent klines for the symbol,
	// oldest first, up to the given limit.
	GetRecentKlines(ctx context.Context, symbol string, limit int) ([]*domain.Kline, error)

	// GetTickerPrice retrieves the last traded price for the symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
}
