package valuation

import "math"

// DistributionStats summarizes the filtered multiples of a ticker set at one
// time index. When Count is zero every other field is nil; consumers must
// check Count before trusting the rest.
type DistributionStats struct {
	Count            int      `json:"count"`
	Mean             *float64 `json:"mean"`
	Median           *float64 `json:"median"`
	P25              *float64 `json:"p25"`
	P75              *float64 `json:"p75"`
	Min              *float64 `json:"min"`
	Max              *float64 `json:"max"`
	TickerPercentile *float64 `json:"ticker_percentile"`
}

// Percentile computes the p-th percentile (0 <= p <= 1) of an ascending
// sorted slice by linear interpolation between order statistics. An empty
// slice returns 0 by convention; a single element returns itself.
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	i := float64(len(sorted)-1) * p
	lo := int(math.Floor(i))
	hi := int(math.Ceil(i))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(i-float64(lo))
}

// ComputeDistribution filters the multiples for one lens and ticker set and
// returns the stats bundle. When tickerValue is non-nil the subject's
// percentile rank (share of values at or below it, in percent) is included.
func ComputeDistribution(d *Dataset, mt MetricType, di int, tickers []string, tickerValue *float64) DistributionStats {
	vals := FilterMultiples(d, mt, di, tickers)
	if len(vals) == 0 {
		return DistributionStats{}
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}

	stats := DistributionStats{
		Count:  len(vals),
		Mean:   ptr(sum / float64(len(vals))),
		Median: ptr(Percentile(vals, 0.5)),
		P25:    ptr(Percentile(vals, 0.25)),
		P75:    ptr(Percentile(vals, 0.75)),
		Min:    ptr(vals[0]),
		Max:    ptr(vals[len(vals)-1]),
	}

	if tickerValue != nil {
		belowOrEqual := 0
		for _, v := range vals {
			if v <= *tickerValue {
				belowOrEqual++
			}
		}
		stats.TickerPercentile = ptr(float64(belowOrEqual) / float64(len(vals)) * 100)
	}

	return stats
}

func ptr(v float64) *float64 { return &v }
