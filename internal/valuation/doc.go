// Package valuation implements the composite equity valuation engine.
//
// Given a cross-sectional snapshot of valuation multiples and growth rates
// for a ticker universe, it answers what multiple or price a given security
// should trade at by combining three independent views:
//
//  1. Cross-sectional regression: an OLS fit of valuation multiple against
//     growth rate across peers, both at the latest period ("spot") and
//     averaged across every period in the snapshot ("historical baseline").
//  2. DCF projection: a multi-phase EPS projection with a linear growth-fade
//     schedule, Gordon-growth terminal value, derived implied P/E, and a
//     discount-rate x terminal-growth sensitivity grid.
//  3. Distribution statistics: percentile-based peer and industry context
//     for the subject's current multiples.
//
// # Architecture
//
//   - types.go: metric lenses, data codes, and the filter's sanity bounds
//   - dataset.go: read-only snapshot structure and accessors
//   - filter.go: cross-sectional point and multiple selection
//   - regression.go: OLS fit via closed-form normal equations
//   - baseline.go: per-period regression averaging
//   - distribution.go: percentiles and stats bundles
//   - dcf.go: projection, terminal value, sensitivity grid
//   - estimate.go: orchestration into one composite result
//
// Every function here is a deterministic pure function of its explicit
// inputs: no I/O, no caching, no shared mutable state. Sub-computations that
// cannot produce a result (too few points, degenerate inputs, non-viable
// assumptions) return nil rather than an error; the only surfaced failure is
// ErrTickerNotFound.
package valuation
