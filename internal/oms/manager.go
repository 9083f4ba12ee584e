// Package oms owns the order lifecycle. Every signal becomes an order
// here, every fill and broker acknowledgment is validated against the
// order's state before any downstream component sees it.
package oms

import (
	"errors"
	"sync"

	"main/internal/risk"
	"main/internal/schema"
)

var (
	ErrUnknownOrder       = errors.New("order not found")
	ErrInvalidState       = errors.New("operation not allowed in current order state")
	ErrInvalidFill        = errors.New("fill inconsistent with order")
	ErrStaleTransition    = errors.New("transition arrived after order was canceled")
	ErrInsufficientMargin = errors.New("insufficient capital for order margin")
	ErrRoutingBlocked     = errors.New("routing blocked pending order reconciliation")
	ErrInvalidOrder       = errors.New("order parameters invalid")
)

// CapitalView is the portfolio state the margin check reads.
type CapitalView interface {
	Cash() float64
	PositionQty(id schema.InstrumentID) schema.Quantity
}

// MarketView resolves a marking price for market orders.
type MarketView interface {
	ReferencePrice(id schema.InstrumentID) (schema.Price, bool)
}

// Manager validates signals into orders and keeps every order's state.
// It is safe for concurrent use; live broker callbacks and the dispatch
// path may touch the same order.
type Manager struct {
	mu       sync.Mutex
	registry *schema.Registry
	risk     *risk.Engine
	capital  CapitalView
	market   MarketView
	orders   map[uint64]*Order
	nextID   uint64

	// unknown counts open state-unknown orders per instrument. While the
	// count is positive no new order for that instrument may route.
	unknown map[schema.InstrumentID]int
}

// NewManager creates an order manager.
func NewManager(registry *schema.Registry, riskEngine *risk.Engine, capital CapitalView, market MarketView) *Manager {
	return &Manager{
		registry: registry,
		risk:     riskEngine,
		capital:  capital,
		market:   market,
		orders:   make(map[uint64]*Order),
		unknown:  make(map[schema.InstrumentID]int),
	}
}

// Submit turns a signal into an order. The margin and limit checks run
// here, before routing; a denied signal produces no order record, only
// the rejection acknowledgment to publish. While any of the instrument's
// orders are state-unknown after a disconnect, new signals are denied
// with ErrRoutingBlocked until reconciliation clears them. The returned
// error carries the rejection class.
func (m *Manager) Submit(sig schema.Signal, ts int64) (Order, schema.OrderAck, error) {
	inst, ok := m.registry.Instrument(sig.InstrumentID)
	if !ok {
		return Order{}, schema.OrderAck{}, ErrInvalidOrder
	}

	if m.routingBlocked(sig.InstrumentID) {
		return Order{}, rejectedAck(sig, schema.OrderAckReasonRoutingBlocked, ts), ErrRoutingBlocked
	}

	view := risk.View{
		Position:         m.capital.PositionQty(sig.InstrumentID),
		AvailableCapital: m.capital.Cash(),
	}
	if price, ok := m.market.ReferencePrice(sig.InstrumentID); ok {
		view.ReferencePrice = price
	}
	decision := m.risk.Evaluate(inst, sig, view)
	if !decision.Allow {
		return Order{}, rejectedAck(sig, decision.Reason, ts), rejectionError(decision.Reason)
	}

	m.mu.Lock()
	m.nextID++
	o := &Order{
		ID:           m.nextID,
		InstrumentID: sig.InstrumentID,
		StrategyID:   sig.StrategyID,
		Side:         sig.Side,
		Type:         sig.Type,
		Qty:          sig.Qty,
		LimitPrice:   sig.LimitPrice,
		State:        OrderStateCreated,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	m.orders[o.ID] = o
	snapshot := *o
	m.mu.Unlock()

	ack := schema.OrderAck{
		OrderID:      o.ID,
		InstrumentID: o.InstrumentID,
		Status:       schema.OrderAckStatusAcked,
		TsEvent:      ts,
	}
	return snapshot, ack, nil
}

func rejectedAck(sig schema.Signal, reason schema.OrderAckReason, ts int64) schema.OrderAck {
	return schema.OrderAck{
		InstrumentID: sig.InstrumentID,
		Status:       schema.OrderAckStatusRejected,
		Reason:       reason,
		TsEvent:      ts,
	}
}

func (m *Manager) routingBlocked(id schema.InstrumentID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unknown[id] > 0
}

// MarkRouted advances a freshly created order to Submitted once the
// router has accepted it. Orders already advanced by a synchronous fill
// keep their state.
func (m *Manager) MarkRouted(orderID uint64, ts int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	if o.State == OrderStateCreated {
		o.State = OrderStateSubmitted
		o.UpdatedAt = ts
	}
	return *o, nil
}

// ApplyFill validates a fill against the order and advances its state.
// Fills against canceled orders are stale, fills against filled or
// rejected orders are invalid, and the cumulative quantity may never
// exceed the order quantity.
func (m *Manager) ApplyFill(fill schema.Fill) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[fill.OrderID]
	if !ok {
		return Order{}, ErrUnknownOrder
	}

	switch o.State {
	case OrderStateCanceled:
		return *o, ErrStaleTransition
	case OrderStateFilled, OrderStateRejected:
		return *o, ErrInvalidFill
	case OrderStateUnknown:
		return *o, ErrInvalidState
	}

	if fill.Qty <= 0 || fill.InstrumentID != o.InstrumentID || fill.Side != o.Side {
		return *o, ErrInvalidFill
	}
	if o.FilledQty+fill.Qty > o.Qty {
		return *o, ErrInvalidFill
	}

	prev := float64(o.AvgFillPrice) * float64(o.FilledQty)
	o.FilledQty += fill.Qty
	o.AvgFillPrice = schema.Price((prev + float64(fill.Price)*float64(fill.Qty)) / float64(o.FilledQty))
	if o.FilledQty == o.Qty {
		o.State = OrderStateFilled
	} else {
		o.State = OrderStatePartFilled
	}
	o.UpdatedAt = fill.TsEvent
	return *o, nil
}

// Cancel moves an open order to Canceled. Terminal orders cannot be
// canceled, and state-unknown orders only leave Unknown via Reconcile.
func (m *Manager) Cancel(orderID uint64, ts int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	if o.State.Terminal() || o.State == OrderStateUnknown {
		return *o, ErrInvalidState
	}
	o.State = OrderStateCanceled
	o.UpdatedAt = ts
	return *o, nil
}

// OnAck applies a broker acknowledgment to an open order. Acks for
// terminal orders are stale and change nothing.
func (m *Manager) OnAck(ack schema.OrderAck) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[ack.OrderID]
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	if o.State.Terminal() {
		return *o, ErrStaleTransition
	}
	if o.State == OrderStateUnknown {
		return *o, ErrInvalidState
	}

	switch ack.Status {
	case schema.OrderAckStatusAcked:
		if o.State == OrderStateCreated {
			o.State = OrderStateSubmitted
		}
	case schema.OrderAckStatusRejected:
		o.State = OrderStateRejected
	case schema.OrderAckStatusCanceled:
		o.State = OrderStateCanceled
	default:
		return *o, ErrInvalidState
	}
	o.UpdatedAt = ack.TsEvent
	return *o, nil
}

// MarkUnknown flags every open order as state-unknown after an adapter
// disconnect and returns the affected order IDs. No fill or cancel is
// accepted for them, and no new order routes for their instruments,
// until Reconcile runs for each.
func (m *Manager) MarkUnknown(ts int64) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []uint64
	for _, o := range m.orders {
		if o.State.Terminal() || o.State == OrderStateUnknown {
			continue
		}
		o.State = OrderStateUnknown
		o.UpdatedAt = ts
		m.unknown[o.InstrumentID]++
		ids = append(ids, o.ID)
	}
	return ids
}

// Reconcile restores an Unknown order to the broker-confirmed state and,
// once the instrument has no unknown orders left, reopens routing for it.
func (m *Manager) Reconcile(orderID uint64, to OrderState, filledQty schema.Quantity, ts int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	if o.State != OrderStateUnknown {
		return *o, ErrInvalidState
	}
	switch to {
	case OrderStateSubmitted, OrderStatePartFilled, OrderStateFilled, OrderStateCanceled:
	default:
		return *o, ErrInvalidState
	}
	if filledQty < o.FilledQty || filledQty > o.Qty {
		return *o, ErrInvalidFill
	}
	o.State = to
	o.FilledQty = filledQty
	o.UpdatedAt = ts
	if n := m.unknown[o.InstrumentID]; n <= 1 {
		delete(m.unknown, o.InstrumentID)
	} else {
		m.unknown[o.InstrumentID] = n - 1
	}
	return *o, nil
}

// Order returns a copy of the order.
func (m *Manager) Order(id uint64) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// OpenOrders returns copies of every non-terminal order.
func (m *Manager) OpenOrders() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Order
	for _, o := range m.orders {
		if !o.State.Terminal() {
			out = append(out, *o)
		}
	}
	return out
}

func rejectionError(reason schema.OrderAckReason) error {
	switch reason {
	case schema.OrderAckReasonInsufficientMargin:
		return ErrInsufficientMargin
	case schema.OrderAckReasonRoutingBlocked:
		return ErrRoutingBlocked
	default:
		return ErrInvalidOrder
	}
}
