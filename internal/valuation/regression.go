package valuation

import "math"

// Regression is a fitted line multiple = Slope*growth% + Intercept over a
// cross-section of tickers, with fit quality R2 and point count N.
type Regression struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	N         float64 `json:"n"`
}

// Predict evaluates the fitted line at a growth input expressed in percent.
func (r *Regression) Predict(growthPct float64) float64 {
	return r.Slope*growthPct + r.Intercept
}

// LinearRegression fits an ordinary-least-squares line over the points via
// the closed-form normal equations. It returns nil, not an error, when fewer
// than three points are supplied or the x distribution is numerically
// degenerate. R2 is 0 for a zero-variance y sample.
func LinearRegression(pts []ScatterPoint) *Regression {
	n := float64(len(pts))
	if len(pts) < minRegressionPoints {
		return nil
	}

	var sx, sy, sxy, sx2, sy2 float64
	for _, p := range pts {
		sx += p.Growth
		sy += p.Multiple
		sxy += p.Growth * p.Multiple
		sx2 += p.Growth * p.Growth
		sy2 += p.Multiple * p.Multiple
	}

	d := n*sx2 - sx*sx
	if math.Abs(d) < regressionEpsilon {
		return nil
	}

	slope := (n*sxy - sx*sy) / d
	intercept := (sy - slope*sx) / n
	sst := sy2 - sy*sy/n

	var sse float64
	for _, p := range pts {
		resid := p.Multiple - (slope*p.Growth + intercept)
		sse += resid * resid
	}

	r2 := 0.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	return &Regression{Slope: slope, Intercept: intercept, R2: r2, N: n}
}

// SpotRegression runs the cross-sectional filter and OLS fit at a single
// time index.
func SpotRegression(d *Dataset, mt MetricType, di int, tickers []string) *Regression {
	return LinearRegression(FilterPoints(d, mt, di, tickers))
}
