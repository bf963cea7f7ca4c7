package ports

import (
	"context"
	"time"

	"mtPilotBot/internal/domain"
)

// OrderReceipt represents the essential details returned after placing an order.
type OrderReceipt struct {
	Ticket    int64     // Broker's order/ticket ID
	Symbol    string    // Symbol for the order
	Price     float64   // Filled price
	Volume    float64   // Filled volume (lots)
	Timestamp time.Time // Time the fill was reported
}

// OrderExecutor defines the interface for submitting orders to a broker.
// Transient-failure retry and backoff policy belong to implementations of
// this interface, never to the core pipeline.
type OrderExecutor interface {
	// SubmitOrder places a market order with attached TP/SL levels.
	SubmitOrder(ctx context.Context, intent *domain.OrderIntent) (*OrderReceipt, error)

	// CloseOrder market-closes a previously opened position and returns the
	// exit price.
	CloseOrder(ctx context.Context, ticket int64, symbol string, action domain.Action, volume float64) (float64, error)
}
