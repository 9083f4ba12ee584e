package portfolio

import "main/internal/schema"

// Position tracks one instrument's signed quantity, average entry price
// and P&L. Quantity always equals the signed sum of applied fills.
type Position struct {
	InstrumentID schema.InstrumentID
	Qty          schema.Quantity
	AvgPrice     schema.Price
	MarketPrice  schema.Price
	Realized     float64
}

// applyFill folds one execution into the position and returns the realized
// P&L produced by any reduction. pointValue converts price points to cash.
func (p *Position) applyFill(signedQty schema.Quantity, price schema.Price, pointValue float64) float64 {
	if p.Qty == 0 {
		p.Qty = signedQty
		p.AvgPrice = price
		p.MarketPrice = price
		return 0
	}

	sameDirection := (p.Qty > 0) == (signedQty > 0)
	if sameDirection {
		held := abs(float64(p.Qty))
		added := abs(float64(signedQty))
		p.AvgPrice = schema.Price((float64(p.AvgPrice)*held + float64(price)*added) / (held + added))
		p.Qty += signedQty
		p.MarketPrice = price
		return 0
	}

	// Reducing or flipping: P&L realizes on the closed portion at the
	// position's average entry price.
	closed := abs(float64(signedQty))
	if held := abs(float64(p.Qty)); closed > held {
		closed = held
	}
	direction := 1.0
	if p.Qty < 0 {
		direction = -1.0
	}
	realized := (float64(price) - float64(p.AvgPrice)) * closed * direction * pointValue

	remaining := p.Qty + signedQty
	switch {
	case remaining == 0:
		p.Qty = 0
		p.AvgPrice = 0
	case (remaining > 0) != (p.Qty > 0):
		// Flipped: the surviving exposure entered at the fill price.
		p.Qty = remaining
		p.AvgPrice = price
	default:
		p.Qty = remaining
	}
	p.MarketPrice = price
	p.Realized += realized
	return realized
}

// settle moves the open P&L into the realized book and rebases the entry
// to the current mark. The position's value is unchanged.
func (p *Position) settle(pointValue float64) float64 {
	settled := p.Unrealized(pointValue)
	p.Realized += settled
	p.AvgPrice = p.MarketPrice
	return settled
}

// Unrealized is the open P&L marked against the latest market price.
func (p *Position) Unrealized(pointValue float64) float64 {
	return (float64(p.MarketPrice) - float64(p.AvgPrice)) * float64(p.Qty) * pointValue
}

// MarketValue is the position's cash value at the latest market price.
func (p *Position) MarketValue(pointValue float64) float64 {
	return float64(p.MarketPrice) * float64(p.Qty) * pointValue
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
