// Package router carries accepted orders to an execution venue. The
// simulated router fills synchronously from the latest market state; the
// live router hands off to a broker adapter without blocking the dispatch
// path. Both feed fills back through the same handler, so the rest of the
// engine cannot tell them apart.
package router

import (
	"errors"

	"main/internal/oms"
	"main/internal/schema"
)

var (
	ErrAdapterDisconnect = errors.New("broker adapter disconnected")
	ErrNoMarketData      = errors.New("no market state for instrument")
	ErrRouterSaturated   = errors.New("router queue full")
)

// FillHandler receives every execution a router produces.
type FillHandler func(fill schema.Fill) error

// AckHandler receives broker acknowledgments from the live path.
type AckHandler func(ack schema.OrderAck) error

// Router routes accepted orders to an execution venue.
type Router interface {
	Route(order oms.Order) error
	Cancel(orderID uint64, instrumentID schema.InstrumentID) error
}

// BrokerAdapter is the vendor-specific connection the live router drives.
// Implementations must not block in PlaceOrder or CancelOrder.
type BrokerAdapter interface {
	Connected() bool
	PlaceOrder(order oms.Order) error
	CancelOrder(orderID uint64, instrumentID schema.InstrumentID) error
}
