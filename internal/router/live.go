package router

import (
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/oms"
	"main/internal/schema"
)

// Live forwards orders to a broker adapter. Routing never waits on the
// venue: the adapter's contract is to enqueue and return, and fills come
// back later through the adapter's callback into the ingress queue.
type Live struct {
	adapter BrokerAdapter
}

// NewLive creates a live execution router over the given adapter.
func NewLive(adapter BrokerAdapter) *Live {
	return &Live{adapter: adapter}
}

// Route hands the order to the broker adapter.
func (l *Live) Route(order oms.Order) error {
	if !l.adapter.Connected() {
		return errors.Wrap(ErrAdapterDisconnect, "route").With("order_id", order.ID)
	}
	if err := l.adapter.PlaceOrder(order); err != nil {
		logs.Errorf("place order %d failed: %v", order.ID, err)
		return errors.Wrap(err, "place order").With("order_id", order.ID)
	}
	return nil
}

// Cancel forwards a cancel request to the broker adapter.
func (l *Live) Cancel(orderID uint64, instrumentID schema.InstrumentID) error {
	if !l.adapter.Connected() {
		return errors.Wrap(ErrAdapterDisconnect, "cancel").With("order_id", orderID)
	}
	if err := l.adapter.CancelOrder(orderID, instrumentID); err != nil {
		return errors.Wrap(err, "cancel order").With("order_id", orderID)
	}
	return nil
}
