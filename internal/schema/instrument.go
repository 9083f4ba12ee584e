package schema

import "fmt"

// InstrumentID is the numeric identifier for an instrument.
type InstrumentID uint32

// SecurityType describes the instrument's contract class.
type SecurityType uint16

const (
	SecurityUnknown SecurityType = iota
	SecurityEquity
	SecurityFuture
)

// Instrument holds the contract economics and calendar data for one
// tradable instrument. Immutable after registry load; shared by reference.
type Instrument struct {
	ID           InstrumentID
	Ticker       string
	SecurityType SecurityType
	Currency     string
	Exchange     string

	// Contract economics. QuantityMultiplier is units per contract,
	// PriceMultiplier converts the quoted price to currency units.
	QuantityMultiplier  float64
	PriceMultiplier     float64
	TickSize            float64
	MinPriceFluctuation float64
	InitialMargin       float64
	MaintenanceMargin   float64
	Fees                float64
	SlippageFactor      float64

	// Calendar data.
	Calendar      string
	Continuous    bool
	ContractMonth string
}

// PointValue is the cash value of a one point price move for one contract.
func (i Instrument) PointValue() float64 {
	return i.QuantityMultiplier * i.PriceMultiplier
}

// Notional converts a quantity/price pair into cash terms.
func (i Instrument) Notional(qty Quantity, price Price) float64 {
	return float64(qty) * float64(price) * i.PointValue()
}

// CommissionFees returns the commission for an execution of the given size.
func (i Instrument) CommissionFees(qty Quantity) float64 {
	return abs(float64(qty)) * i.Fees
}

// SlippagePrice adjusts a reference price against the order direction.
func (i Instrument) SlippagePrice(price Price, side OrderSide) Price {
	switch side {
	case OrderSideBuy:
		return price + Price(i.SlippageFactor)
	case OrderSideSell:
		return price - Price(i.SlippageFactor)
	default:
		return price
	}
}

// OrderMargin returns the capital required to open an order of the given
// size: initial margin per contract for futures, full notional otherwise.
func (i Instrument) OrderMargin(qty Quantity, price Price) float64 {
	if i.SecurityType == SecurityFuture {
		return abs(float64(qty)) * i.InitialMargin
	}
	return abs(i.Notional(qty, price))
}

// Validate fails fast on missing or invalid safety-critical economics.
func (i Instrument) Validate() error {
	if i.Ticker == "" {
		return fmt.Errorf("instrument ticker is empty")
	}
	if i.SecurityType == SecurityUnknown {
		return fmt.Errorf("instrument %s: security type is unknown", i.Ticker)
	}
	if i.QuantityMultiplier <= 0 {
		return fmt.Errorf("instrument %s: quantity multiplier must be > 0", i.Ticker)
	}
	if i.PriceMultiplier <= 0 {
		return fmt.Errorf("instrument %s: price multiplier must be > 0", i.Ticker)
	}
	if i.InitialMargin < 0 {
		return fmt.Errorf("instrument %s: initial margin must be >= 0", i.Ticker)
	}
	if i.SecurityType == SecurityFuture && i.InitialMargin == 0 {
		return fmt.Errorf("instrument %s: futures require initial margin", i.Ticker)
	}
	if i.SecurityType == SecurityFuture && i.TickSize <= 0 {
		return fmt.Errorf("instrument %s: futures require tick size > 0", i.Ticker)
	}
	if i.Fees < 0 {
		return fmt.Errorf("instrument %s: fees must be >= 0", i.Ticker)
	}
	if i.SlippageFactor < 0 {
		return fmt.Errorf("instrument %s: slippage factor must be >= 0", i.Ticker)
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
