package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/portfolio"
	"main/internal/schema"
)

func sampleSnapshot() Snapshot {
	return FromPortfolio(portfolio.Snapshot{
		Timestamp: 5000,
		Cash:      59_998.30,
		Equity:    99_998.30,
		Positions: []portfolio.PositionSnapshot{{
			InstrumentID: 1,
			Ticker:       "HE.n.0",
			Qty:          2,
			AvgPrice:     50.0,
			Realized:     0,
		}},
	})
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "positions.json")
	want := sampleSnapshot()
	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.NoError(t, Compare(want, got))
}

func TestCompareDetectsDrift(t *testing.T) {
	base := sampleSnapshot()

	cashDrift := base
	cashDrift.Cash += 0.01
	require.Error(t, Compare(base, cashDrift))

	qtyDrift := sampleSnapshot()
	qtyDrift.Positions[0].Qty = 3
	require.Error(t, Compare(base, qtyDrift))

	extra := sampleSnapshot()
	extra.Positions = append(extra.Positions, PositionEntry{InstrumentID: 2, Qty: 1})
	require.Error(t, Compare(base, extra))

	wrongInstrument := sampleSnapshot()
	wrongInstrument.Positions[0].InstrumentID = 9
	require.Error(t, Compare(base, wrongInstrument))
}

func TestCompareToleratesFloatNoise(t *testing.T) {
	base := sampleSnapshot()
	noisy := sampleSnapshot()
	noisy.Equity += 1e-12
	noisy.Positions[0].AvgPrice = schema.Price(float64(noisy.Positions[0].AvgPrice) + 1e-12)
	require.NoError(t, Compare(base, noisy))
}
