package perf

import "math"

// tradingPeriods is the annualization base for period statistics.
const tradingPeriods = 252

// Statistics summarizes an equity curve. Ratios are per period, not
// annualized; AnnualStdDev scales the period deviation by sqrt(252).
type Statistics struct {
	Samples      int
	Trades       int
	BeginEquity  float64
	EndEquity    float64
	NetProfit    float64
	TotalReturn  float64
	StdDev       float64
	AnnualStdDev float64
	MaxDrawdown  float64
	Sharpe       float64
	Sortino      float64
}

// Statistics computes summary statistics over the recorded curve with the
// given per-year risk-free rate. Fewer than two samples yields zeroes for
// every ratio.
func (t *Tracker) Statistics(riskFreeRate float64) Statistics {
	curve := t.Curve()
	trades := t.Trades()

	stats := Statistics{Samples: len(curve), Trades: len(trades)}
	if len(curve) == 0 {
		return stats
	}
	stats.BeginEquity = curve[0].Equity
	stats.EndEquity = curve[len(curve)-1].Equity
	stats.NetProfit = stats.EndEquity - stats.BeginEquity
	if len(curve) < 2 {
		return stats
	}

	returns := periodReturns(curve)
	stats.TotalReturn = cumulativeReturn(returns)
	stats.StdDev = stdDev(returns)
	stats.AnnualStdDev = stats.StdDev * math.Sqrt(tradingPeriods)
	stats.MaxDrawdown = maxDrawdown(returns)

	periodRate := riskFreeRate / tradingPeriods
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - periodRate
	}
	if sd := stdDev(excess); sd > 0 {
		stats.Sharpe = mean(excess) / sd
	}
	if dd := downsideDeviation(excess); dd > 0 {
		stats.Sortino = mean(excess) / dd
	}
	return stats
}

// periodReturns is the simple return between consecutive samples.
func periodReturns(curve []Sample) []float64 {
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (curve[i].Equity-prev)/prev)
	}
	return out
}

// cumulativeReturn compounds period returns into a total return.
func cumulativeReturn(returns []float64) float64 {
	acc := 1.0
	for _, r := range returns {
		acc *= 1 + r
	}
	return acc - 1
}

// maxDrawdown is the deepest drop of the compounded curve below its
// running peak, as a negative fraction.
func maxDrawdown(returns []float64) float64 {
	acc := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		acc *= 1 + r
		if acc > peak {
			peak = acc
		}
		dd := acc/peak - 1
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the sample standard deviation (n-1 denominator).
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// downsideDeviation is the sample deviation of the negative excess
// returns only.
func downsideDeviation(excess []float64) float64 {
	var downside []float64
	for _, x := range excess {
		if x < 0 {
			downside = append(downside, x)
		}
	}
	return stdDev(downside)
}
