package router

import (
	"github.com/yanun0323/errors"

	"main/internal/book"
	"main/internal/oms"
	"main/internal/schema"
)

// Sim fills orders synchronously against the latest cached market state.
// The fill price is the reference price shifted by the instrument's
// slippage factor, the fee is the per-contract commission, and the fill
// timestamp comes from the market event that priced it. No wall clock is
// read, so a replay of the same events produces identical fills.
type Sim struct {
	registry *schema.Registry
	book     *book.Book
	onFill   FillHandler
}

// NewSim creates a simulated execution router.
func NewSim(registry *schema.Registry, marketBook *book.Book, onFill FillHandler) *Sim {
	return &Sim{registry: registry, book: marketBook, onFill: onFill}
}

// Route fills the order immediately and in full.
func (s *Sim) Route(order oms.Order) error {
	inst, ok := s.registry.Instrument(order.InstrumentID)
	if !ok {
		return errors.Wrap(ErrNoMarketData, "route").With("instrument_id", order.InstrumentID)
	}
	state, ok := s.book.Latest(order.InstrumentID)
	if !ok {
		return errors.Wrap(ErrNoMarketData, "route").
			With("instrument_id", order.InstrumentID).
			With("order_id", order.ID)
	}

	price := state.Price
	if order.Type == schema.OrderTypeLimit && order.LimitPrice > 0 {
		price = order.LimitPrice
	}

	fill := schema.Fill{
		OrderID:      order.ID,
		InstrumentID: order.InstrumentID,
		Side:         order.Side,
		Price:        inst.SlippagePrice(price, order.Side),
		Qty:          order.LeavesQty(),
		Fee:          inst.CommissionFees(order.LeavesQty()),
		TsEvent:      state.TsEvent,
	}
	return s.onFill(fill)
}

// Cancel is a no-op: simulated orders fill atomically in Route, so there
// is never an open order to cancel at the venue.
func (s *Sim) Cancel(orderID uint64, instrumentID schema.InstrumentID) error {
	return nil
}
