package oms

import "main/internal/schema"

// OrderState tracks the lifecycle of an order.
type OrderState uint16

const (
	OrderStateUnknownState OrderState = iota
	OrderStateCreated
	OrderStateSubmitted
	OrderStatePartFilled
	OrderStateFilled
	OrderStateCanceled
	OrderStateRejected
	// OrderStateUnknown marks an open order whose broker-side state is
	// unverifiable after an adapter disconnect. Fills and cancels are
	// refused until Reconcile restores a known state.
	OrderStateUnknown
)

func (s OrderState) String() string {
	switch s {
	case OrderStateCreated:
		return "created"
	case OrderStateSubmitted:
		return "submitted"
	case OrderStatePartFilled:
		return "part_filled"
	case OrderStateFilled:
		return "filled"
	case OrderStateCanceled:
		return "canceled"
	case OrderStateRejected:
		return "rejected"
	case OrderStateUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCanceled, OrderStateRejected:
		return true
	default:
		return false
	}
}

// Order is the manager's view of one order. FilledQty only ever grows and
// never exceeds Qty.
type Order struct {
	ID           uint64
	InstrumentID schema.InstrumentID
	StrategyID   uint32
	Side         schema.OrderSide
	Type         schema.OrderType
	Qty          schema.Quantity
	LimitPrice   schema.Price
	FilledQty    schema.Quantity
	AvgFillPrice schema.Price
	State        OrderState
	CreatedAt    int64
	UpdatedAt    int64
}

// LeavesQty is the unexecuted remainder of the order.
func (o *Order) LeavesQty() schema.Quantity {
	return o.Qty - o.FilledQty
}
