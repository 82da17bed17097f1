package valuation

// Baseline is the arithmetic average of per-period regressions across every
// time index where a fit was computable. Periods with too few usable points
// are skipped, not zero-filled.
type Baseline struct {
	AvgSlope     float64 `json:"avg_slope"`
	AvgIntercept float64 `json:"avg_intercept"`
	AvgR2        float64 `json:"avg_r2"`
	AvgN         float64 `json:"avg_n"`
	PeriodCount  int     `json:"period_count"`
}

// Predict evaluates the averaged line at a growth input in percent.
func (b *Baseline) Predict(growthPct float64) float64 {
	return b.AvgSlope*growthPct + b.AvgIntercept
}

// Stats returns the averaged fit in Regression form for response assembly.
func (b *Baseline) Stats() *Regression {
	return &Regression{Slope: b.AvgSlope, Intercept: b.AvgIntercept, R2: b.AvgR2, N: b.AvgN}
}

// ComputeBaseline fits a cross-sectional regression at every time index in
// the dataset and averages the results over the periods that produced one.
// Returns nil only when no period was valid.
func ComputeBaseline(d *Dataset, mt MetricType, tickers []string) *Baseline {
	var slope, intercept, r2, n float64
	periods := 0

	for di := range d.Dates {
		reg := SpotRegression(d, mt, di, tickers)
		if reg == nil {
			continue
		}
		slope += reg.Slope
		intercept += reg.Intercept
		r2 += reg.R2
		n += reg.N
		periods++
	}

	if periods < 1 {
		return nil
	}

	p := float64(periods)
	return &Baseline{
		AvgSlope:     slope / p,
		AvgIntercept: intercept / p,
		AvgR2:        r2 / p,
		AvgN:         n / p,
		PeriodCount:  periods,
	}
}
