// Package engine wires the event path: one goroutine pulls events off the
// ingress queue and drives book, strategies, order manager, router,
// portfolio and performance tracker in a fixed order. Backtest and live
// differ only in what feeds the queue and which router is installed.
package engine

import (
	"context"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/codec"
	"main/internal/obs"
	"main/internal/oms"
	"main/internal/perf"
	"main/internal/portfolio"
	"main/internal/router"
	"main/internal/schema"
	"main/internal/strategy"
)

var ErrUndecodablePayload = errors.New("payload does not decode for event type")

// Journal persists raw ingress events before they are processed.
type Journal interface {
	TryAppend(header schema.EventHeader, payload []byte) error
}

// Dispatcher owns the single dispatch path. Dispatch must only be called
// from one goroutine; Run enforces that by consuming the queue itself.
type Dispatcher struct {
	registry   *schema.Registry
	book       *book.Book
	orders     *oms.Manager
	router     router.Router
	portfolio  *portfolio.Server
	perf       *perf.Tracker
	strategies []strategy.Strategy
	journal    Journal
	metrics    *obs.Metrics

	lastTs int64
	done   bool
}

// Config collects the dispatcher's collaborators. Journal and Metrics
// are optional.
type Config struct {
	Registry   *schema.Registry
	Book       *book.Book
	Orders     *oms.Manager
	Router     router.Router
	Portfolio  *portfolio.Server
	Perf       *perf.Tracker
	Strategies []strategy.Strategy
	Journal    Journal
	Metrics    *obs.Metrics
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		registry:   cfg.Registry,
		book:       cfg.Book,
		orders:     cfg.Orders,
		router:     cfg.Router,
		portfolio:  cfg.Portfolio,
		perf:       cfg.Perf,
		strategies: cfg.Strategies,
		journal:    cfg.Journal,
		metrics:    cfg.Metrics,
	}
}

// Run consumes the queue until the context is canceled, the queue closes,
// or an end-of-stream event arrives.
func (d *Dispatcher) Run(ctx context.Context, q *bus.Queue) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	q.Run(runCtx, func(e bus.Event) {
		d.Dispatch(e)
		if d.done {
			cancel()
		}
	})
}

// Done reports whether an end-of-stream event has been processed.
func (d *Dispatcher) Done() bool {
	return d.done
}

// Dispatch processes one event to completion: every state change it
// implies, including signals and simulated fills, lands before the next
// event is taken. One equity sample is recorded per event, so the curve
// is a pure function of the stream.
func (d *Dispatcher) Dispatch(e bus.Event) {
	d.metrics.ObserveEvent(e.Header)
	if d.journal != nil {
		if err := d.journal.TryAppend(e.Header, e.Payload); err != nil {
			logs.Errorf("journal append seq %d: %v", e.Header.Seq, err)
		}
	}

	if e.Header.TsEvent > d.lastTs {
		d.lastTs = e.Header.TsEvent
	}

	switch e.Header.Type {
	case schema.EventMarketData:
		d.onMarketData(e)
	case schema.EventSignal:
		d.onSignal(e)
	case schema.EventFill:
		d.onFill(e)
	case schema.EventOrderAck:
		d.onOrderAck(e)
	case schema.EventEndOfStream:
		d.done = true
	case schema.EventEndOfDay:
		d.onEndOfDay()
	default:
		logs.Warnf("unknown event type %d at seq %d", e.Header.Type, e.Header.Seq)
	}

	d.perf.Record(d.lastTs, d.portfolio.Equity())
}

func (d *Dispatcher) onMarketData(e bus.Event) {
	data, ok := codec.DecodeMarketData(e.Payload)
	if !ok {
		logs.Errorf("market data seq %d: %v", e.Header.Seq, ErrUndecodablePayload)
		return
	}

	if err := d.book.Update(e.Header, data); err != nil {
		if errors.Is(err, book.ErrOutOfOrder) {
			d.metrics.IncOutOfOrderDrop()
			return
		}
		logs.Errorf("book update seq %d: %v", e.Header.Seq, err)
		return
	}

	d.portfolio.OnMark(data.InstrumentID, data.ReferencePrice())

	for _, s := range d.strategies {
		for _, sig := range s.OnMarketData(e.Header, data, d.portfolio) {
			d.submit(sig, e.Header.TsEvent)
		}
	}
}

func (d *Dispatcher) onSignal(e bus.Event) {
	sig, ok := codec.DecodeSignal(e.Payload)
	if !ok {
		logs.Errorf("signal seq %d: %v", e.Header.Seq, ErrUndecodablePayload)
		return
	}
	d.submit(sig, e.Header.TsEvent)
}

// submit runs a signal through the order manager and, when accepted,
// routes it. The acknowledgment goes to strategies either way.
func (d *Dispatcher) submit(sig schema.Signal, ts int64) {
	order, ack, err := d.orders.Submit(sig, ts)
	if err != nil {
		d.metrics.IncRejection(ack.Reason)
		logs.Infof("signal for instrument %d rejected: %v", sig.InstrumentID, err)
		d.notifyAck(ack)
		return
	}
	d.notifyAck(ack)

	if err := d.router.Route(order); err != nil {
		if errors.Is(err, router.ErrAdapterDisconnect) {
			d.onAdapterDisconnect(ts)
			return
		}
		logs.Errorf("route order %d: %v", order.ID, err)
		return
	}
	if _, err := d.orders.MarkRouted(order.ID, ts); err != nil {
		logs.Errorf("mark order %d routed: %v", order.ID, err)
	}
}

func (d *Dispatcher) onFill(e bus.Event) {
	fill, ok := codec.DecodeFill(e.Payload)
	if !ok {
		logs.Errorf("fill seq %d: %v", e.Header.Seq, ErrUndecodablePayload)
		return
	}
	d.ApplyFill(fill)
}

// ApplyFill validates a fill and propagates it to portfolio, performance
// tracker and strategies. The simulated router calls this synchronously
// inside Dispatch; live fills arrive as queue events.
func (d *Dispatcher) ApplyFill(fill schema.Fill) error {
	if _, err := d.orders.ApplyFill(fill); err != nil {
		switch {
		case errors.Is(err, oms.ErrStaleTransition):
			d.metrics.IncStaleFill()
			logs.Warnf("stale fill for order %d dropped", fill.OrderID)
		case errors.Is(err, oms.ErrInvalidFill):
			d.metrics.IncInvalidFill()
			logs.Errorf("invalid fill for order %d: %v", fill.OrderID, err)
		default:
			logs.Errorf("fill for order %d: %v", fill.OrderID, err)
		}
		return err
	}

	if _, err := d.portfolio.OnFill(fill); err != nil {
		logs.Errorf("portfolio fill for order %d: %v", fill.OrderID, err)
		return err
	}
	if fill.TsEvent > d.lastTs {
		d.lastTs = fill.TsEvent
	}
	d.perf.RecordTrade(fill)
	for _, s := range d.strategies {
		s.OnFill(fill)
	}
	return nil
}

func (d *Dispatcher) onOrderAck(e bus.Event) {
	ack, ok := codec.DecodeOrderAck(e.Payload)
	if !ok {
		logs.Errorf("order ack seq %d: %v", e.Header.Seq, ErrUndecodablePayload)
		return
	}
	if _, err := d.orders.OnAck(ack); err != nil {
		if errors.Is(err, oms.ErrStaleTransition) {
			logs.Warnf("stale ack for order %d dropped", ack.OrderID)
			return
		}
		logs.Errorf("ack for order %d: %v", ack.OrderID, err)
		return
	}
	d.notifyAck(ack)
}

func (d *Dispatcher) notifyAck(ack schema.OrderAck) {
	for _, s := range d.strategies {
		s.OnOrderAck(ack)
	}
}

// onAdapterDisconnect marks every open order unverifiable. Orders stay
// frozen and their instruments stop routing until reconciliation
// restores each order's broker-confirmed state.
func (d *Dispatcher) onAdapterDisconnect(ts int64) {
	ids := d.orders.MarkUnknown(ts)
	logs.Errorf("adapter disconnected, %d open orders marked unknown", len(ids))
}

// onEndOfDay settles open futures P&L at the session close.
func (d *Dispatcher) onEndOfDay() {
	settled := d.portfolio.SettleDaily()
	logs.Infof("end of day settled %.2f", settled)
}

// Snapshot returns the portfolio snapshot at the last dispatched event
// time.
func (d *Dispatcher) Snapshot() portfolio.Snapshot {
	return d.portfolio.Snapshot(d.lastTs)
}
