// Package book holds the per-instrument latest market state cache.
// The portfolio server marks positions against it and the simulated
// execution router prices fills from it.
package book

import (
	"errors"
	"sync"

	"main/internal/schema"
)

var (
	ErrOutOfOrder   = errors.New("market event older than recorded state")
	ErrUnknownEvent = errors.New("market event has no instrument id")
)

// MarketState is the latest known market data for one instrument.
type MarketState struct {
	InstrumentID schema.InstrumentID
	Kind         schema.MarketDataKind
	Price        schema.Price
	BidPrice     schema.Price
	BidSize      schema.Quantity
	AskPrice     schema.Price
	AskSize      schema.Quantity
	Volume       schema.Quantity
	TsEvent      int64
}

type slot struct {
	mu    sync.RWMutex
	state MarketState
	set   bool
}

// Book caches the latest market state per instrument. Latest is safe to
// call concurrently with Update; contention is limited to one instrument's
// slot.
type Book struct {
	mu    sync.RWMutex
	slots map[schema.InstrumentID]*slot
}

// New creates an empty book.
func New() *Book {
	return &Book{slots: make(map[schema.InstrumentID]*slot)}
}

// Update records a market event. Events whose timestamp precedes the
// instrument's last recorded timestamp fail with ErrOutOfOrder; the caller
// drops them without touching any state.
func (b *Book) Update(header schema.EventHeader, data schema.MarketData) error {
	id := data.InstrumentID
	if id == 0 {
		id = header.InstrumentID
	}
	if id == 0 {
		return ErrUnknownEvent
	}

	s := b.slot(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set && header.TsEvent < s.state.TsEvent {
		return ErrOutOfOrder
	}

	s.state = MarketState{
		InstrumentID: id,
		Kind:         data.Kind,
		Price:        data.ReferencePrice(),
		BidPrice:     data.BidPrice,
		BidSize:      data.BidSize,
		AskPrice:     data.AskPrice,
		AskSize:      data.AskSize,
		Volume:       data.Volume,
		TsEvent:      header.TsEvent,
	}
	s.set = true
	return nil
}

// Latest returns a copy of the instrument's current market state.
func (b *Book) Latest(id schema.InstrumentID) (MarketState, bool) {
	b.mu.RLock()
	s, ok := b.slots[id]
	b.mu.RUnlock()
	if !ok {
		return MarketState{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return MarketState{}, false
	}
	return s.state, true
}

// ReferencePrice returns the instrument's marking price, if any event has
// been seen for it.
func (b *Book) ReferencePrice(id schema.InstrumentID) (schema.Price, bool) {
	state, ok := b.Latest(id)
	if !ok {
		return 0, false
	}
	return state.Price, true
}

// LastUpdated returns the most recent event timestamp across all slots.
func (b *Book) LastUpdated() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var last int64
	for _, s := range b.slots {
		s.mu.RLock()
		if s.set && s.state.TsEvent > last {
			last = s.state.TsEvent
		}
		s.mu.RUnlock()
	}
	return last
}

func (b *Book) slot(id schema.InstrumentID) *slot {
	b.mu.RLock()
	s, ok := b.slots[id]
	b.mu.RUnlock()
	if ok {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok = b.slots[id]; ok {
		return s
	}
	s = &slot{}
	b.slots[id] = s
	return s
}
