package valuation

// MetricSeries holds the per-metric time series for a single ticker. Each
// slice is aligned with the snapshot's date axis; a nil element is a missing
// observation.
type MetricSeries map[MetricCode][]*float64

// Dataset is a point-in-time snapshot of valuation data for a ticker
// universe. It is produced by ingestion (workbook parsing) and treated as
// read-only for the duration of a computation: no function in this package
// mutates it.
type Dataset struct {
	// Dates is the shared period axis, strictly increasing. A position in
	// this slice is a time index.
	Dates []string `json:"dates"`

	// Tickers is the universe present in the snapshot.
	Tickers []string `json:"tickers"`

	// Industries maps ticker to industry label; not every ticker has one.
	Industries map[string]string `json:"industries"`

	// Metrics maps ticker to its six data arrays. A ticker absent from this
	// map, or an absent/short array, reads as all-null.
	Metrics map[string]MetricSeries `json:"fm"`
}

// LatestIndex returns the highest valid time index, or -1 for an empty axis.
func (d *Dataset) LatestIndex() int {
	return len(d.Dates) - 1
}

// HasTicker reports whether the ticker has any metric data in the snapshot.
func (d *Dataset) HasTicker(ticker string) bool {
	_, ok := d.Metrics[ticker]
	return ok
}

// Value returns the observation for one ticker, metric and time index, or
// nil when the ticker, the array, or the slot is missing. Out-of-range
// indices read as null rather than panicking, so a snapshot with ragged
// arrays degrades instead of failing.
func (d *Dataset) Value(ticker string, code MetricCode, di int) *float64 {
	series, ok := d.Metrics[ticker]
	if !ok {
		return nil
	}
	arr := series[code]
	if di < 0 || di >= len(arr) {
		return nil
	}
	return arr[di]
}

// Industry returns the industry label for a ticker, or "" when unknown.
func (d *Dataset) Industry(ticker string) string {
	return d.Industries[ticker]
}

// IndustryPeers returns every ticker in the universe sharing the given
// industry label, preserving universe order.
func (d *Dataset) IndustryPeers(industry string) []string {
	if industry == "" {
		return nil
	}
	var peers []string
	for _, t := range d.Tickers {
		if d.Industries[t] == industry {
			peers = append(peers, t)
		}
	}
	return peers
}
