package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/book"
	"main/internal/oms"
	"main/internal/schema"
)

func simFixture(t *testing.T) (*schema.Registry, *book.Book) {
	t.Helper()
	reg := schema.NewRegistry()
	_, err := reg.AddInstrument(schema.Instrument{
		Ticker:             "HE.n.0",
		SecurityType:       schema.SecurityFuture,
		QuantityMultiplier: 40000,
		PriceMultiplier:    0.01,
		TickSize:           0.00025,
		InitialMargin:      4950,
		Fees:               0.85,
		SlippageFactor:     0.0005,
	})
	require.NoError(t, err)

	b := book.New()
	err = b.Update(
		schema.NewHeader(schema.EventMarketData, schema.SourceHistorical, 1, 1, 1_000_000, 1_000_001),
		schema.MarketData{InstrumentID: 1, Kind: schema.MarketDataBar, Close: 50.0},
	)
	require.NoError(t, err)
	return reg, b
}

func TestSimFillsWithSlippageAndFees(t *testing.T) {
	reg, b := simFixture(t)

	var got schema.Fill
	sim := NewSim(reg, b, func(fill schema.Fill) error {
		got = fill
		return nil
	})

	err := sim.Route(oms.Order{
		ID:           7,
		InstrumentID: 1,
		Side:         schema.OrderSideBuy,
		Type:         schema.OrderTypeMarket,
		Qty:          2,
		State:        oms.OrderStateSubmitted,
	})
	require.NoError(t, err)

	require.Equal(t, uint64(7), got.OrderID)
	require.InDelta(t, 50.0005, float64(got.Price), 1e-12)
	require.Equal(t, schema.Quantity(2), got.Qty)
	require.InDelta(t, 1.70, got.Fee, 1e-12)
	// Fill time comes from the bar that priced it, not the wall clock.
	require.Equal(t, int64(1_000_000), got.TsEvent)
}

func TestSimSellSlippageIsAdverse(t *testing.T) {
	reg, b := simFixture(t)

	var got schema.Fill
	sim := NewSim(reg, b, func(fill schema.Fill) error {
		got = fill
		return nil
	})

	err := sim.Route(oms.Order{ID: 8, InstrumentID: 1, Side: schema.OrderSideSell, Type: schema.OrderTypeMarket, Qty: 1})
	require.NoError(t, err)
	require.InDelta(t, 49.9995, float64(got.Price), 1e-12)
}

func TestSimNoMarketData(t *testing.T) {
	reg, _ := simFixture(t)
	sim := NewSim(reg, book.New(), func(schema.Fill) error { return nil })

	err := sim.Route(oms.Order{ID: 9, InstrumentID: 1, Side: schema.OrderSideBuy, Qty: 1})
	require.ErrorIs(t, err, ErrNoMarketData)
}

type stubAdapter struct {
	connected bool
	placed    []oms.Order
	canceled  []uint64
}

func (a *stubAdapter) Connected() bool { return a.connected }
func (a *stubAdapter) PlaceOrder(o oms.Order) error {
	a.placed = append(a.placed, o)
	return nil
}
func (a *stubAdapter) CancelOrder(id uint64, _ schema.InstrumentID) error {
	a.canceled = append(a.canceled, id)
	return nil
}

func TestLiveRoutesThroughAdapter(t *testing.T) {
	adapter := &stubAdapter{connected: true}
	live := NewLive(adapter)

	require.NoError(t, live.Route(oms.Order{ID: 1, InstrumentID: 1, Qty: 1}))
	require.Len(t, adapter.placed, 1)

	require.NoError(t, live.Cancel(1, 1))
	require.Equal(t, []uint64{1}, adapter.canceled)
}

func TestLiveDisconnected(t *testing.T) {
	live := NewLive(&stubAdapter{connected: false})

	err := live.Route(oms.Order{ID: 1, InstrumentID: 1, Qty: 1})
	require.ErrorIs(t, err, ErrAdapterDisconnect)

	err = live.Cancel(1, 1)
	require.ErrorIs(t, err, ErrAdapterDisconnect)
}
