package schema

// Price is a price in instrument quote units. Multipliers from the
// instrument economics convert it to cash terms.
type Price float64

// Quantity is a signed contract/share count. Sign is carried by OrderSide
// on orders and fills; positions store signed quantities directly.
type Quantity float64

// MarketDataKind describes the meaning of the market data payload.
type MarketDataKind uint16

const (
	MarketDataUnknown MarketDataKind = iota
	MarketDataBar
	MarketDataTrade
	MarketDataQuote
)

// MarketData is the payload for EventMarketData. Bar events populate OHLC;
// trade/quote events populate Last and the bid/ask fields.
type MarketData struct {
	InstrumentID InstrumentID
	Kind         MarketDataKind
	Flags        uint16
	Open         Price
	High         Price
	Low          Price
	Close        Price
	Last         Price
	Volume       Quantity
	BidPrice     Price
	BidSize      Quantity
	AskPrice     Price
	AskSize      Quantity
}

// ReferencePrice returns the price used for marking and fill simulation.
func (m MarketData) ReferencePrice() Price {
	if m.Kind == MarketDataBar {
		return m.Close
	}
	return m.Last
}

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// Signed applies the side to an unsigned quantity.
func (s OrderSide) Signed(qty Quantity) Quantity {
	if s == OrderSideSell {
		return -qty
	}
	return qty
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
)

// Signal is the payload for EventSignal, produced by a strategy and
// consumed exactly once by the order manager.
type Signal struct {
	InstrumentID InstrumentID
	StrategyID   uint32
	Side         OrderSide
	Type         OrderType
	Flags        uint16
	Qty          Quantity
	LimitPrice   Price
	AuxPrice     Price
}

// Fill is the payload for EventFill. One fill records one (partial)
// execution and is immutable once recorded.
type Fill struct {
	OrderID      uint64
	InstrumentID InstrumentID
	Side         OrderSide
	Flags        uint16
	Price        Price
	Qty          Quantity
	Fee          float64
	TsEvent      int64
}

// OrderAckStatus describes the outcome of an order acknowledgment.
type OrderAckStatus uint16

const (
	OrderAckStatusUnknown OrderAckStatus = iota
	OrderAckStatusAcked
	OrderAckStatusRejected
	OrderAckStatusCanceled
)

// OrderAckReason describes the reason for an order acknowledgment.
type OrderAckReason uint16

const (
	OrderAckReasonNone OrderAckReason = iota
	OrderAckReasonBrokerReject
	OrderAckReasonInsufficientMargin
	OrderAckReasonInvalidPrice
	OrderAckReasonInvalidQty
	OrderAckReasonRoutingBlocked
)

// OrderAck is the payload for EventOrderAck. Live broker callbacks and
// engine-side rejections both use it, so strategies observe one shape.
type OrderAck struct {
	OrderID      uint64
	InstrumentID InstrumentID
	Status       OrderAckStatus
	Reason       OrderAckReason
	Flags        uint16
	TsEvent      int64
}
