// Package risk gates order submission. The order manager evaluates every
// signal against static limits and the portfolio's free capital before
// anything reaches an execution router.
package risk

import (
	"main/internal/schema"
)

// Config defines the static risk limits.
type Config struct {
	KillSwitch  bool            `json:"kill_switch"`
	MaxOrderQty schema.Quantity `json:"max_order_qty"`
	MaxPosition schema.Quantity `json:"max_position"`
}

// View is the portfolio state the evaluation runs against.
type View struct {
	Position         schema.Quantity
	AvailableCapital float64
	ReferencePrice   schema.Price
}

// Decision is the outcome of one evaluation. Reason is set on deny and
// feeds straight into the rejection acknowledgment.
type Decision struct {
	Allow  bool
	Reason schema.OrderAckReason
}

// Engine evaluates order intents against configured limits.
type Engine struct {
	cfg Config
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate checks a signal against the limits and the portfolio view.
// Orders that reduce existing exposure skip the margin check so positions
// can always be exited, even with no free capital left.
func (e *Engine) Evaluate(inst schema.Instrument, sig schema.Signal, view View) Decision {
	if e.cfg.KillSwitch {
		return Decision{Reason: schema.OrderAckReasonRoutingBlocked}
	}

	if sig.Qty <= 0 {
		return Decision{Reason: schema.OrderAckReasonInvalidQty}
	}
	if e.cfg.MaxOrderQty > 0 && sig.Qty > e.cfg.MaxOrderQty {
		return Decision{Reason: schema.OrderAckReasonInvalidQty}
	}
	if sig.Type == schema.OrderTypeLimit && sig.LimitPrice <= 0 {
		return Decision{Reason: schema.OrderAckReasonInvalidPrice}
	}

	signedQty := sig.Side.Signed(sig.Qty)
	nextPos := view.Position + signedQty
	if e.cfg.MaxPosition > 0 && absQuantity(nextPos) > e.cfg.MaxPosition {
		return Decision{Reason: schema.OrderAckReasonRoutingBlocked}
	}

	if increasesExposure(view.Position, signedQty) {
		price := sig.LimitPrice
		if price <= 0 {
			price = view.ReferencePrice
		}
		required := inst.OrderMargin(sig.Qty, price)
		if required > view.AvailableCapital {
			return Decision{Reason: schema.OrderAckReasonInsufficientMargin}
		}
	}

	return Decision{Allow: true, Reason: schema.OrderAckReasonNone}
}

// increasesExposure reports whether the signed quantity grows the absolute
// position. Flips count as increasing once past flat.
func increasesExposure(pos, signedQty schema.Quantity) bool {
	if pos == 0 {
		return true
	}
	if (pos > 0) == (signedQty > 0) {
		return true
	}
	return absQuantity(signedQty) > absQuantity(pos)
}

func absQuantity(q schema.Quantity) schema.Quantity {
	if q < 0 {
		return -q
	}
	return q
}
