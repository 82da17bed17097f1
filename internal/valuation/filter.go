package valuation

import "sort"

// ScatterPoint is one usable (growth%, multiple) observation for a ticker at
// a single time index. Growth is expressed in percent; the multiple keeps its
// raw scale.
type ScatterPoint struct {
	Growth   float64 `json:"x"`
	Multiple float64 `json:"y"`
	Ticker   string  `json:"t"`
}

// epsQualityOK applies the EPS-quality gate for the Price/EPS lens: forward
// EPS must be present and above 0.5, and EPS growth must be present and in
// (-0.75, 2.0]. Tickers failing the gate are excluded from both the
// regression and distribution sets regardless of their multiple.
func epsQualityOK(d *Dataset, ticker string, di int) bool {
	fe := d.Value(ticker, CodeForwardEPS, di)
	if fe == nil || *fe <= minForwardEPS {
		return false
	}
	xg := d.Value(ticker, CodeEPSGrowth, di)
	if xg == nil || *xg <= minEPSGrowth || *xg > maxEPSGrowth {
		return false
	}
	return true
}

// multipleInBounds applies the per-lens sanity cap shared by both filter
// outputs. The zero lower bound for EV lenses applies to distribution sets
// only.
func multipleInBounds(mt MetricType, m float64, forDistribution bool) bool {
	switch mt {
	case PriceEPS:
		if m > maxPEMultiple {
			return false
		}
	case EVRevenue:
		if m > maxEVRevMultiple {
			return false
		}
		if forDistribution && m < 0 {
			return false
		}
	case EVGP:
		if m > maxEVGPMultiple {
			return false
		}
		if forDistribution && m < 0 {
			return false
		}
	}
	return true
}

// FilterPoints selects the (growth%, multiple) pairs usable for a
// cross-sectional regression at one time index. Growth is converted to
// percent here; distribution filtering never applies that conversion.
func FilterPoints(d *Dataset, mt MetricType, di int, tickers []string) []ScatterPoint {
	mk := mt.MultipleCode()
	gk := mt.GrowthCode()

	var pts []ScatterPoint
	for _, t := range tickers {
		if !d.HasTicker(t) {
			continue
		}
		m := d.Value(t, mk, di)
		g := d.Value(t, gk, di)
		if m == nil || g == nil {
			continue
		}
		if mt == PriceEPS && !epsQualityOK(d, t, di) {
			continue
		}
		if !multipleInBounds(mt, *m, false) {
			continue
		}
		pts = append(pts, ScatterPoint{Growth: *g * 100, Multiple: *m, Ticker: t})
	}
	return pts
}

// FilterMultiples selects the bare multiples usable for distribution
// statistics at one time index, sorted ascending.
func FilterMultiples(d *Dataset, mt MetricType, di int, tickers []string) []float64 {
	mk := mt.MultipleCode()

	var vals []float64
	for _, t := range tickers {
		if !d.HasTicker(t) {
			continue
		}
		m := d.Value(t, mk, di)
		if m == nil {
			continue
		}
		if mt == PriceEPS && !epsQualityOK(d, t, di) {
			continue
		}
		if !multipleInBounds(mt, *m, true) {
			continue
		}
		vals = append(vals, *m)
	}
	sort.Float64s(vals)
	return vals
}
