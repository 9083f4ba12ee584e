// Package portfolio maintains cash, positions and equity. All mutation
// happens on the engine's dispatch path; reads take consistent snapshots.
package portfolio

import (
	"errors"
	"fmt"
	"sync"

	"main/internal/schema"
)

var ErrUnknownInstrument = errors.New("fill references unknown instrument")

// Server is the portfolio state owner. OnFill and OnMark are called by the
// dispatcher in event order; Snapshot may be called from any goroutine.
type Server struct {
	mu        sync.RWMutex
	registry  *schema.Registry
	cash      float64
	positions map[schema.InstrumentID]*Position
	fills     uint64
}

// NewServer creates a portfolio server with the given starting capital.
func NewServer(registry *schema.Registry, capital float64) *Server {
	return &Server{
		registry:  registry,
		cash:      capital,
		positions: make(map[schema.InstrumentID]*Position),
	}
}

// OnFill applies one execution atomically: cash moves by the fill's signed
// notional plus fee, and the position updates in the same step. No reader
// can observe the cash leg without the position leg.
func (s *Server) OnFill(fill schema.Fill) (realized float64, err error) {
	inst, ok := s.registry.Instrument(fill.InstrumentID)
	if !ok {
		return 0, fmt.Errorf("order %d instrument %d: %w", fill.OrderID, fill.InstrumentID, ErrUnknownInstrument)
	}

	signedQty := fill.Side.Signed(fill.Qty)

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[fill.InstrumentID]
	if !ok {
		pos = &Position{InstrumentID: fill.InstrumentID}
		s.positions[fill.InstrumentID] = pos
	}

	s.cash -= inst.Notional(signedQty, fill.Price)
	s.cash -= fill.Fee
	realized = pos.applyFill(signedQty, fill.Price, inst.PointValue())
	s.fills++
	return realized, nil
}

// OnMark updates the position's market price from the latest market event.
// Instruments with no open position are ignored.
func (s *Server) OnMark(id schema.InstrumentID, price schema.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.positions[id]; ok {
		pos.MarketPrice = price
	}
}

// SettleDaily marks every open futures position to the session's last
// price: open P&L moves into the realized book and the entry price
// rebases to the settlement price. Cash and equity do not change; the
// position's cost basis already carries the flows. Returns the total
// P&L settled.
func (s *Server) SettleDaily() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for id, pos := range s.positions {
		if pos.Qty == 0 {
			continue
		}
		inst, ok := s.registry.Instrument(id)
		if !ok || inst.SecurityType != schema.SecurityFuture {
			continue
		}
		total += pos.settle(inst.PointValue())
	}
	return total
}

// Cash returns the current cash balance.
func (s *Server) Cash() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cash
}

// Equity returns cash plus the market value of all open positions.
func (s *Server) Equity() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.equityLocked()
}

func (s *Server) equityLocked() float64 {
	equity := s.cash
	for id, pos := range s.positions {
		inst, ok := s.registry.Instrument(id)
		if !ok {
			continue
		}
		equity += pos.MarketValue(inst.PointValue())
	}
	return equity
}

// Position returns a copy of the instrument's position. The zero value is
// returned for instruments never traded.
func (s *Server) Position(id schema.InstrumentID) Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos, ok := s.positions[id]; ok {
		return *pos
	}
	return Position{InstrumentID: id}
}

// PositionQty returns the instrument's current signed quantity.
func (s *Server) PositionQty(id schema.InstrumentID) schema.Quantity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos, ok := s.positions[id]; ok {
		return pos.Qty
	}
	return 0
}

// FillCount returns the number of fills applied since start.
func (s *Server) FillCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fills
}
