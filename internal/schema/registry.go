package schema

import "fmt"

// Registry stores the immutable instrument catalog. It is built once at
// startup by the config loader; no mutation happens after load.
type Registry struct {
	instruments []Instrument
	byTicker    map[string]InstrumentID
	byID        map[InstrumentID]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTicker: make(map[string]InstrumentID),
		byID:     make(map[InstrumentID]int),
	}
}

// AddInstrument registers an instrument and returns its ID. An ID of zero
// is assigned sequentially. Duplicate tickers or IDs and invalid economics
// fail fast so no partial registry is ever exposed.
func (r *Registry) AddInstrument(inst Instrument) (InstrumentID, error) {
	if err := inst.Validate(); err != nil {
		return 0, err
	}
	if _, ok := r.byTicker[inst.Ticker]; ok {
		return 0, fmt.Errorf("instrument already exists: %s", inst.Ticker)
	}
	if inst.ID == 0 {
		inst.ID = InstrumentID(len(r.instruments) + 1)
	}
	if _, ok := r.byID[inst.ID]; ok {
		return 0, fmt.Errorf("instrument id already exists: %d", inst.ID)
	}
	r.byID[inst.ID] = len(r.instruments)
	r.instruments = append(r.instruments, inst)
	r.byTicker[inst.Ticker] = inst.ID
	return inst.ID, nil
}

// Instrument returns the instrument by ID.
func (r *Registry) Instrument(id InstrumentID) (Instrument, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Instrument{}, false
	}
	return r.instruments[idx], true
}

// InstrumentByTicker returns the instrument by ticker.
func (r *Registry) InstrumentByTicker(ticker string) (Instrument, bool) {
	id, ok := r.byTicker[ticker]
	if !ok {
		return Instrument{}, false
	}
	return r.Instrument(id)
}

// IDByTicker returns the instrument ID for a ticker.
func (r *Registry) IDByTicker(ticker string) (InstrumentID, bool) {
	id, ok := r.byTicker[ticker]
	return id, ok
}

// Count returns the number of registered instruments.
func (r *Registry) Count() int {
	return len(r.instruments)
}

// At returns the instrument by zero-based index, in registration order.
func (r *Registry) At(index int) (Instrument, bool) {
	if index < 0 || index >= len(r.instruments) {
		return Instrument{}, false
	}
	return r.instruments[index], true
}
