package valuation

// f returns a pointer to v for building nullable metric slots in tests.
func f(v float64) *float64 { return &v }

// seriesOf builds a single-period metric series from one value per code.
// Pass nil to leave a slot null.
func seriesOf(er, eg, pe, rg, xg, fe *float64) MetricSeries {
	return MetricSeries{
		CodeEVRevenue:  {er},
		CodeEVGP:       {eg},
		CodePE:         {pe},
		CodeRevGrowth:  {rg},
		CodeEPSGrowth:  {xg},
		CodeForwardEPS: {fe},
	}
}

// threeTickerDataset is the minimal perfectly collinear single-period
// universe used across regression and orchestration tests:
// (rg, er) = (0.10, 5.0), (0.20, 8.0), (0.30, 11.0).
func threeTickerDataset() *Dataset {
	return &Dataset{
		Dates:   []string{"2024-03-31"},
		Tickers: []string{"AAA", "BBB", "CCC"},
		Industries: map[string]string{
			"AAA": "Software",
			"BBB": "Software",
			"CCC": "Semis",
		},
		Metrics: map[string]MetricSeries{
			"AAA": seriesOf(f(5.0), f(9.0), f(20.0), f(0.10), f(0.12), f(4.0)),
			"BBB": seriesOf(f(8.0), f(14.0), f(25.0), f(0.20), f(0.18), f(6.5)),
			"CCC": seriesOf(f(11.0), f(19.0), f(30.0), f(0.30), f(0.25), f(2.2)),
		},
	}
}
