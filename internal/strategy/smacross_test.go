package strategy

import (
	"testing"

	"main/internal/schema"
)

type fixedView struct {
	qty schema.Quantity
}

func (v fixedView) Cash() float64                                   { return 1e6 }
func (v fixedView) Equity() float64                                 { return 1e6 }
func (v fixedView) PositionQty(schema.InstrumentID) schema.Quantity { return v.qty }

func feed(s *SMACross, view PortfolioView, closes ...float64) []schema.Signal {
	var out []schema.Signal
	for i, c := range closes {
		header := schema.NewHeader(schema.EventMarketData, schema.SourceHistorical, 1, uint64(i+1), int64(i+1)*1000, int64(i+1)*1000)
		sigs := s.OnMarketData(header, schema.MarketData{
			InstrumentID: 1,
			Kind:         schema.MarketDataBar,
			Close:        schema.Price(c),
		}, view)
		out = append(out, sigs...)
	}
	return out
}

func TestCrossUpEmitsBuy(t *testing.T) {
	s := NewSMACross(SMACrossConfig{StrategyID: 1, InstrumentID: 1, FastWindow: 2, SlowWindow: 4, OrderQty: 2})

	// Falling prices prime the averages with fast below slow, then a
	// sharp rise crosses the fast average over the slow.
	sigs := feed(s, fixedView{}, 50, 49, 48, 47, 46, 52, 55)
	if len(sigs) != 1 {
		t.Fatalf("expected one signal, got %d", len(sigs))
	}
	sig := sigs[0]
	if sig.Side != schema.OrderSideBuy || sig.Qty != 2 {
		t.Fatalf("expected buy 2, got side=%d qty=%v", sig.Side, sig.Qty)
	}
}

func TestCrossDownTargetsShort(t *testing.T) {
	s := NewSMACross(SMACrossConfig{StrategyID: 1, InstrumentID: 1, FastWindow: 2, SlowWindow: 4, OrderQty: 2})

	// Already long 2 when the fast average drops through the slow:
	// the order flips the position to short 2, so it sells 4.
	sigs := feed(s, fixedView{qty: 2}, 50, 51, 52, 53, 54, 48, 45)
	if len(sigs) != 1 {
		t.Fatalf("expected one signal, got %d", len(sigs))
	}
	sig := sigs[0]
	if sig.Side != schema.OrderSideSell || sig.Qty != 4 {
		t.Fatalf("expected sell 4, got side=%d qty=%v", sig.Side, sig.Qty)
	}
}

func TestNoSignalBeforeWindowsFill(t *testing.T) {
	s := NewSMACross(SMACrossConfig{StrategyID: 1, InstrumentID: 1, FastWindow: 2, SlowWindow: 4})
	if sigs := feed(s, fixedView{}, 50, 60, 70); len(sigs) != 0 {
		t.Fatalf("windows not full yet, got %d signals", len(sigs))
	}
}

func TestIgnoresOtherInstrumentsAndKinds(t *testing.T) {
	s := NewSMACross(SMACrossConfig{StrategyID: 1, InstrumentID: 1, FastWindow: 2, SlowWindow: 4})

	header := schema.NewHeader(schema.EventMarketData, schema.SourceHistorical, 2, 1, 1000, 1000)
	if sigs := s.OnMarketData(header, schema.MarketData{InstrumentID: 2, Kind: schema.MarketDataBar, Close: 50}, fixedView{}); sigs != nil {
		t.Fatal("other instrument must be ignored")
	}
	header = schema.NewHeader(schema.EventMarketData, schema.SourceLiveFeed, 1, 2, 2000, 2000)
	if sigs := s.OnMarketData(header, schema.MarketData{InstrumentID: 1, Kind: schema.MarketDataTrade, Last: 50}, fixedView{}); sigs != nil {
		t.Fatal("trade events must be ignored")
	}
}
