// Package perf records the equity curve and trade log and computes
// summary statistics over them.
package perf

import (
	"sync"

	"main/internal/schema"
)

// Sample is one equity observation on the curve.
type Sample struct {
	Ts     int64
	Equity float64
}

// Tracker accumulates equity samples and executed trades. The dispatcher
// records exactly one sample per processed event, so the curve is a
// deterministic function of the event stream.
type Tracker struct {
	mu      sync.Mutex
	curve   []Sample
	trades  []schema.Fill
	initial float64
	hasInit bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record appends one equity sample. The first sample fixes the initial
// equity used for total return.
func (t *Tracker) Record(ts int64, equity float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasInit {
		t.initial = equity
		t.hasInit = true
	}
	t.curve = append(t.curve, Sample{Ts: ts, Equity: equity})
}

// RecordTrade appends one executed fill to the trade log.
func (t *Tracker) RecordTrade(fill schema.Fill) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, fill)
}

// Curve returns a copy of the equity curve.
func (t *Tracker) Curve() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.curve))
	copy(out, t.curve)
	return out
}

// Trades returns a copy of the trade log.
func (t *Tracker) Trades() []schema.Fill {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]schema.Fill, len(t.trades))
	copy(out, t.trades)
	return out
}
