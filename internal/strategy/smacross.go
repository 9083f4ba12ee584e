package strategy

import "main/internal/schema"

// SMACrossConfig configures the moving average crossover strategy.
type SMACrossConfig struct {
	StrategyID   uint32
	InstrumentID schema.InstrumentID
	FastWindow   int
	SlowWindow   int
	OrderQty     schema.Quantity
}

// SMACross trades a fast/slow moving average crossover on bar closes.
// A fast average crossing above the slow targets a long position of
// OrderQty; crossing below targets the same size short. Orders are sized
// to reach the target from the current position, so repeated signals in
// the same direction are no-ops.
type SMACross struct {
	cfg  SMACrossConfig
	fast *rollingMean
	slow *rollingMean

	prevDiff float64
	primed   bool
}

// NewSMACross creates the strategy. SlowWindow must exceed FastWindow.
func NewSMACross(cfg SMACrossConfig) *SMACross {
	if cfg.FastWindow <= 0 {
		cfg.FastWindow = 10
	}
	if cfg.SlowWindow <= cfg.FastWindow {
		cfg.SlowWindow = cfg.FastWindow * 3
	}
	if cfg.OrderQty <= 0 {
		cfg.OrderQty = 1
	}
	return &SMACross{
		cfg:  cfg,
		fast: newRollingMean(cfg.FastWindow),
		slow: newRollingMean(cfg.SlowWindow),
	}
}

func (s *SMACross) ID() uint32   { return s.cfg.StrategyID }
func (s *SMACross) Name() string { return "sma_cross" }

// OnMarketData consumes bar closes and emits a signal when the averages
// cross.
func (s *SMACross) OnMarketData(header schema.EventHeader, data schema.MarketData, view PortfolioView) []schema.Signal {
	if data.InstrumentID != s.cfg.InstrumentID || data.Kind != schema.MarketDataBar {
		return nil
	}

	close := float64(data.Close)
	s.fast.push(close)
	s.slow.push(close)
	if !s.slow.full() {
		return nil
	}

	diff := s.fast.mean() - s.slow.mean()
	defer func() {
		s.prevDiff = diff
		s.primed = true
	}()
	if !s.primed {
		return nil
	}

	var target schema.Quantity
	switch {
	case s.prevDiff <= 0 && diff > 0:
		target = s.cfg.OrderQty
	case s.prevDiff >= 0 && diff < 0:
		target = -s.cfg.OrderQty
	default:
		return nil
	}

	delta := target - view.PositionQty(s.cfg.InstrumentID)
	if delta == 0 {
		return nil
	}
	side := schema.OrderSideBuy
	if delta < 0 {
		side = schema.OrderSideSell
		delta = -delta
	}
	return []schema.Signal{{
		InstrumentID: s.cfg.InstrumentID,
		StrategyID:   s.cfg.StrategyID,
		Side:         side,
		Type:         schema.OrderTypeMarket,
		Qty:          delta,
	}}
}

func (s *SMACross) OnFill(schema.Fill)         {}
func (s *SMACross) OnOrderAck(schema.OrderAck) {}

// rollingMean is a fixed-window running average.
type rollingMean struct {
	buf  []float64
	next int
	n    int
	sum  float64
}

func newRollingMean(window int) *rollingMean {
	return &rollingMean{buf: make([]float64, window)}
}

func (r *rollingMean) push(v float64) {
	if r.n == len(r.buf) {
		r.sum -= r.buf[r.next]
	} else {
		r.n++
	}
	r.buf[r.next] = v
	r.sum += v
	r.next = (r.next + 1) % len(r.buf)
}

func (r *rollingMean) full() bool { return r.n == len(r.buf) }

func (r *rollingMean) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}
