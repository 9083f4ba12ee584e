// Package strategy defines the hook surface strategies implement. The
// dispatcher drives the hooks in event order on a single goroutine, so
// implementations need no locking of their own.
package strategy

import "main/internal/schema"

// PortfolioView is the read-only portfolio state exposed to strategies.
type PortfolioView interface {
	Cash() float64
	Equity() float64
	PositionQty(id schema.InstrumentID) schema.Quantity
}

// Strategy reacts to market and execution events by emitting signals.
// Returned signals enter the order path immediately, in slice order,
// before the next event is dispatched.
type Strategy interface {
	ID() uint32
	Name() string
	OnMarketData(header schema.EventHeader, data schema.MarketData, view PortfolioView) []schema.Signal
	OnFill(fill schema.Fill)
	OnOrderAck(ack schema.OrderAck)
}
