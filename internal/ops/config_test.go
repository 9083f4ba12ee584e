package ops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

const sampleConfig = `{
  "mode": "sim",
  "capital": "100000",
  "riskFreeRate": "0.05",
  "instruments": [
    {
      "ticker": "HE.n.0",
      "securityType": "future",
      "currency": "USD",
      "exchange": "CME",
      "quantityMultiplier": "40000",
      "priceMultiplier": "0.01",
      "tickSize": "0.00025",
      "minPriceFluctuation": "10",
      "initialMargin": "4950",
      "maintenanceMargin": "4500",
      "fees": "0.85",
      "slippageFactor": "0",
      "calendar": "CMEGlobex_Lean_Hog",
      "continuous": true
    }
  ],
  "risk": {"max_order_qty": 10, "max_position": 20},
  "strategy": {"strategyId": 1, "ticker": "HE.n.0", "fastWindow": 10, "slowWindow": 30, "orderQty": 2},
  "journal": {"dir": "/tmp/journal"}
}`

func TestParseSampleConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, ModeSim, cfg.Mode)
	require.InDelta(t, 100_000.0, cfg.Capital, 1e-9)
	require.InDelta(t, 0.05, cfg.RiskFreeRate, 1e-12)
	require.Equal(t, 65536, cfg.QueueSize)

	inst, ok := cfg.Registry.InstrumentByTicker("HE.n.0")
	require.True(t, ok)
	require.Equal(t, schema.SecurityFuture, inst.SecurityType)
	require.InDelta(t, 40000.0, inst.QuantityMultiplier, 1e-9)
	require.InDelta(t, 0.01, inst.PriceMultiplier, 1e-12)
	require.InDelta(t, 400.0, inst.PointValue(), 1e-9)

	require.Equal(t, inst.ID, cfg.Strategy.InstrumentID)
	require.Equal(t, schema.Quantity(2), cfg.Strategy.OrderQty)
	require.Equal(t, schema.Quantity(10), cfg.Risk.MaxOrderQty)
}

func TestParseRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"no instruments", `{"capital":"1000","instruments":[]}`},
		{"zero capital", `{"capital":"0","instruments":[{"ticker":"A","securityType":"equity","quantityMultiplier":"1","priceMultiplier":"1"}],"strategy":{"ticker":"A"}}`},
		{"unknown mode", `{"mode":"paper","capital":"1000"}`},
		{"unknown security type", `{"capital":"1000","instruments":[{"ticker":"A","securityType":"bond","quantityMultiplier":"1","priceMultiplier":"1"}],"strategy":{"ticker":"A"}}`},
		{"future without margin", `{"capital":"1000","instruments":[{"ticker":"A","securityType":"future","quantityMultiplier":"1","priceMultiplier":"1","tickSize":"0.01"}],"strategy":{"ticker":"A"}}`},
		{"strategy ticker missing", `{"capital":"1000","instruments":[{"ticker":"A","securityType":"equity","quantityMultiplier":"1","priceMultiplier":"1"}],"strategy":{"ticker":"B"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.json))
			require.Error(t, err)
		})
	}
}

func TestParseDefaultsModeToSim(t *testing.T) {
	cfg, err := Parse([]byte(`{
      "capital": "1000",
      "instruments": [{"ticker":"A","securityType":"equity","quantityMultiplier":"1","priceMultiplier":"1"}],
      "strategy": {"ticker":"A"}
    }`))
	require.NoError(t, err)
	require.Equal(t, ModeSim, cfg.Mode)
}
