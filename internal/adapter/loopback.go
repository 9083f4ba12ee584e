// Package adapter holds broker adapter implementations. Loopback is the
// built-in one: it acknowledges and fills orders against the latest
// cached market state and pushes the results back through the ingress
// queue, exactly the way a vendor adapter's callbacks would. Live-mode
// dry runs and failover tests run against it.
package adapter

import (
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/codec"
	"main/internal/oms"
	"main/internal/schema"
)

var ErrDisconnected = errors.New("loopback adapter disconnected")

// Loopback simulates a broker connection. Orders fill in full at the
// instrument's slipped reference price; fills and acks come back as
// broker-callback events on the queue, never synchronously.
type Loopback struct {
	registry  *schema.Registry
	book      *book.Book
	queue     *bus.Queue
	connected uint32
}

// NewLoopback creates a connected loopback adapter.
func NewLoopback(registry *schema.Registry, marketBook *book.Book, queue *bus.Queue) *Loopback {
	return &Loopback{
		registry:  registry,
		book:      marketBook,
		queue:     queue,
		connected: 1,
	}
}

// Connected reports the simulated link state.
func (l *Loopback) Connected() bool {
	return atomic.LoadUint32(&l.connected) != 0
}

// SetConnected toggles the simulated link, for failover drills.
func (l *Loopback) SetConnected(up bool) {
	if up {
		atomic.StoreUint32(&l.connected, 1)
	} else {
		atomic.StoreUint32(&l.connected, 0)
	}
}

// PlaceOrder enqueues a broker-callback fill for the order. It never
// blocks; if the ingress queue is full the fill is dropped and logged,
// the same loss a real vendor callback would suffer.
func (l *Loopback) PlaceOrder(order oms.Order) error {
	if !l.Connected() {
		return ErrDisconnected
	}
	inst, ok := l.registry.Instrument(order.InstrumentID)
	if !ok {
		return errors.Errorf("unknown instrument %d", order.InstrumentID)
	}
	state, ok := l.book.Latest(order.InstrumentID)
	if !ok {
		return errors.Errorf("no market state for instrument %d", order.InstrumentID)
	}

	price := state.Price
	if order.Type == schema.OrderTypeLimit && order.LimitPrice > 0 {
		price = order.LimitPrice
	}
	now := time.Now().UTC().UnixNano()
	fill := schema.Fill{
		OrderID:      order.ID,
		InstrumentID: order.InstrumentID,
		Side:         order.Side,
		Price:        inst.SlippagePrice(price, order.Side),
		Qty:          order.LeavesQty(),
		Fee:          inst.CommissionFees(order.LeavesQty()),
		TsEvent:      now,
	}
	event := bus.Event{
		Header:  schema.NewHeader(schema.EventFill, schema.SourceBrokerCallback, order.InstrumentID, 0, now, now),
		Payload: codec.EncodeFill(nil, fill),
	}
	if err := l.queue.TryPublish(event); err != nil {
		logs.Errorf("loopback fill for order %d dropped: %v", order.ID, err)
		return errors.Wrap(err, "publish fill")
	}
	return nil
}

// CancelOrder enqueues a broker-callback cancel acknowledgment.
func (l *Loopback) CancelOrder(orderID uint64, instrumentID schema.InstrumentID) error {
	if !l.Connected() {
		return ErrDisconnected
	}
	now := time.Now().UTC().UnixNano()
	ack := schema.OrderAck{
		OrderID:      orderID,
		InstrumentID: instrumentID,
		Status:       schema.OrderAckStatusCanceled,
		TsEvent:      now,
	}
	event := bus.Event{
		Header:  schema.NewHeader(schema.EventOrderAck, schema.SourceBrokerCallback, instrumentID, 0, now, now),
		Payload: codec.EncodeOrderAck(nil, ack),
	}
	if err := l.queue.TryPublish(event); err != nil {
		return errors.Wrap(err, "publish cancel ack")
	}
	return nil
}
