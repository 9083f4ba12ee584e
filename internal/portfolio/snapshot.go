package portfolio

import (
	"sort"

	"main/internal/schema"
)

// PositionSnapshot is one open position inside a portfolio snapshot.
type PositionSnapshot struct {
	InstrumentID schema.InstrumentID
	Ticker       string
	Qty          schema.Quantity
	AvgPrice     schema.Price
	MarketPrice  schema.Price
	MarketValue  float64
	Unrealized   float64
	Realized     float64
}

// Snapshot is a consistent view of the portfolio at one event timestamp.
type Snapshot struct {
	Timestamp int64
	Cash      float64
	Equity    float64
	Positions []PositionSnapshot
}

// Snapshot captures cash, equity and every touched position under one lock
// so the result is internally consistent. Positions sort by instrument ID
// so snapshots taken at the same point compare byte for byte.
func (s *Server) Snapshot(ts int64) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Timestamp: ts,
		Cash:      s.cash,
		Equity:    s.equityLocked(),
		Positions: make([]PositionSnapshot, 0, len(s.positions)),
	}
	for id, pos := range s.positions {
		inst, ok := s.registry.Instrument(id)
		if !ok {
			continue
		}
		pv := inst.PointValue()
		snap.Positions = append(snap.Positions, PositionSnapshot{
			InstrumentID: id,
			Ticker:       inst.Ticker,
			Qty:          pos.Qty,
			AvgPrice:     pos.AvgPrice,
			MarketPrice:  pos.MarketPrice,
			MarketValue:  pos.MarketValue(pv),
			Unrealized:   pos.Unrealized(pv),
			Realized:     pos.Realized,
		})
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		return snap.Positions[i].InstrumentID < snap.Positions[j].InstrumentID
	})
	return snap
}
