// Package mdg generates synthetic market data for dry runs. A random
// walk over the registry's instruments feeds the ingress queue the same
// way a vendor feed would, so the full live path can run without a
// market connection.
package mdg

import (
	"context"
	"math/rand"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
	"main/internal/codec"
	"main/internal/schema"
)

// Config controls the synthetic feed.
type Config struct {
	Seed      int64
	BasePrice float64
	StepTicks int
	Interval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Seed == 0 {
		c.Seed = time.Now().UTC().UnixNano()
	}
	if c.BasePrice <= 0 {
		c.BasePrice = 100
	}
	if c.StepTicks <= 0 {
		c.StepTicks = 4
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	return c
}

// Feed publishes random-walk bars for every registry instrument.
type Feed struct {
	cfg    Config
	rng    *rand.Rand
	queue  *bus.Queue
	order  []schema.InstrumentID
	prices map[schema.InstrumentID]float64
	steps  map[schema.InstrumentID]float64
}

// NewFeed creates a synthetic feed over the registry's instruments.
func NewFeed(cfg Config, registry *schema.Registry, queue *bus.Queue) *Feed {
	cfg = cfg.withDefaults()
	f := &Feed{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		queue:  queue,
		prices: make(map[schema.InstrumentID]float64),
		steps:  make(map[schema.InstrumentID]float64),
	}
	for i := 0; i < registry.Count(); i++ {
		inst, ok := registry.At(i)
		if !ok {
			continue
		}
		f.order = append(f.order, inst.ID)
		f.prices[inst.ID] = cfg.BasePrice
		step := inst.TickSize
		if step <= 0 {
			step = cfg.BasePrice / 10000
		}
		f.steps[inst.ID] = step * float64(cfg.StepTicks)
	}
	return f
}

// Run emits one bar per instrument per interval until the context is done
// or shutdown is signaled. Publishing is non-blocking; a full queue drops
// the bar and the walk continues.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		case <-ticker.C:
			f.emitAll()
		}
	}
}

// emitAll walks the instruments in registration order so that a given
// seed produces the same bar sequence on every run.
func (f *Feed) emitAll() {
	now := time.Now().UTC().UnixNano()
	for _, id := range f.order {
		if err := f.queue.TryPublish(f.nextBar(id, now)); err != nil {
			logs.Errorf("synthetic bar for instrument %d dropped: %v", id, err)
		}
	}
}

// nextBar advances the instrument's walk one step and builds the event.
func (f *Feed) nextBar(id schema.InstrumentID, now int64) bus.Event {
	prev := f.prices[id]
	step := f.steps[id]
	next := prev + step*float64(f.rng.Intn(2*f.cfg.StepTicks+1)-f.cfg.StepTicks)
	if next <= step {
		next = prev
	}
	f.prices[id] = next

	high, low := prev, prev
	if next > high {
		high = next
	}
	if next < low {
		low = next
	}
	payload := codec.EncodeMarketData(nil, schema.MarketData{
		InstrumentID: id,
		Kind:         schema.MarketDataBar,
		Open:         schema.Price(prev),
		High:         schema.Price(high),
		Low:          schema.Price(low),
		Close:        schema.Price(next),
		Volume:       schema.Quantity(1 + f.rng.Intn(100)),
	})
	return bus.Event{
		Header:  schema.NewHeader(schema.EventMarketData, schema.SourceLiveFeed, id, 0, now, now),
		Payload: payload,
	}
}
