package valuation

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrTickerNotFound signals that the requested ticker is absent from the
// snapshot's metric map. It is the only failure the orchestrator surfaces;
// every other missing sub-result degrades to a nil field in the output.
var ErrTickerNotFound = errors.New("ticker not found in snapshot")

// EstimateRequest carries the caller's growth assumptions and optional
// overrides. Explicit overrides always win over values resolved from the
// snapshot.
type EstimateRequest struct {
	Ticker             string
	RevenueGrowth      float64 // decimal, 0.08 = 8%
	EPSGrowth          float64 // decimal; DCF fallback when no explicit estimates
	EPSGrowthEstimates []float64
	ForwardEPS         *float64
	CurrentPE          *float64
	CurrentEVRevenue   *float64
	CurrentEVGP        *float64
	DiscountRate       float64
	TerminalGrowth     float64
	FadePeriod         int
}

// RegressionPrediction is the per-lens regression block of a composite
// estimate: the historical-baseline and spot fits, the implied multiple each
// predicts at the caller's growth input, and the deviation of the ticker's
// actual multiple from each prediction.
type RegressionPrediction struct {
	MetricType             MetricType  `json:"metric_type"`
	MetricLabel            string      `json:"metric_label"`
	GrowthInputPct         float64     `json:"growth_input_pct"`
	HistoricalPredicted    *float64    `json:"historical_predicted"`
	HistoricalStats        *Regression `json:"historical_stats"`
	HistoricalPeriodCount  *int        `json:"historical_period_count"`
	SpotPredicted          *float64    `json:"spot_predicted"`
	SpotStats              *Regression `json:"spot_stats"`
	CurrentActual          *float64    `json:"current_actual"`
	HistoricalDeviationPct *float64    `json:"historical_deviation_pct"`
	SpotDeviationPct       *float64    `json:"spot_deviation_pct"`
}

// MetricDistribution annotates a distribution stats bundle with the lens it
// was computed for, and the industry label for industry-scoped context.
type MetricDistribution struct {
	MetricType  MetricType `json:"metric_type"`
	MetricLabel string     `json:"metric_label"`
	DistributionStats
	Industry string `json:"industry,omitempty"`
}

// EstimateResult is the composite valuation estimate for one request.
type EstimateResult struct {
	Ticker          string                 `json:"ticker,omitempty"`
	Industry        string                 `json:"industry,omitempty"`
	DateCount       int                    `json:"date_count"`
	Regression      []RegressionPrediction `json:"regression"`
	DCF             *DCFResult             `json:"dcf"`
	PeerContext     []MetricDistribution   `json:"peer_context"`
	IndustryContext []MetricDistribution   `json:"industry_context,omitempty"`
}

// Estimate combines cross-sectional regression, the DCF projection, and
// peer/industry distribution statistics into one composite result. It is a
// pure function of the dataset and request: no hidden state, no I/O, and the
// dataset is never mutated.
func Estimate(d *Dataset, req EstimateRequest) (*EstimateResult, error) {
	if req.Ticker != "" && !d.HasTicker(req.Ticker) {
		return nil, fmt.Errorf("%w: %q", ErrTickerNotFound, req.Ticker)
	}

	latest := d.LatestIndex()

	// Resolve actuals from the snapshot for fields the caller left unset.
	actuals := map[MetricCode]*float64{
		CodeEVRevenue: req.CurrentEVRevenue,
		CodeEVGP:      req.CurrentEVGP,
		CodePE:        req.CurrentPE,
	}
	forwardEPS := req.ForwardEPS
	currentPE := req.CurrentPE
	industry := ""

	if req.Ticker != "" {
		industry = d.Industry(req.Ticker)
		if forwardEPS == nil {
			forwardEPS = d.Value(req.Ticker, CodeForwardEPS, latest)
		}
		if currentPE == nil {
			currentPE = d.Value(req.Ticker, CodePE, latest)
			actuals[CodePE] = currentPE
		}
		if actuals[CodeEVRevenue] == nil {
			actuals[CodeEVRevenue] = d.Value(req.Ticker, CodeEVRevenue, latest)
		}
		if actuals[CodeEVGP] == nil {
			actuals[CodeEVGP] = d.Value(req.Ticker, CodeEVGP, latest)
		}
	}

	result := &EstimateResult{
		Ticker:      req.Ticker,
		Industry:    industry,
		DateCount:   len(d.Dates),
		Regression:  make([]RegressionPrediction, len(MetricTypes)),
		PeerContext: make([]MetricDistribution, len(MetricTypes)),
	}

	// The per-lens computations are independent; each goroutine writes its
	// own slice slot, so the merged result is identical to sequential
	// execution.
	var g errgroup.Group
	for i, mt := range MetricTypes {
		g.Go(func() error {
			result.Regression[i] = regressionBlock(d, mt, latest, req, actuals[mt.MultipleCode()])
			result.PeerContext[i] = MetricDistribution{
				MetricType:        mt,
				MetricLabel:       mt.Label(),
				DistributionStats: ComputeDistribution(d, mt, latest, d.Tickers, actuals[mt.MultipleCode()]),
			}
			return nil
		})
	}

	g.Go(func() error {
		result.DCF = dcfBlock(req, forwardEPS, currentPE)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if req.Ticker != "" && industry != "" {
		peers := d.IndustryPeers(industry)
		result.IndustryContext = make([]MetricDistribution, len(MetricTypes))
		for i, mt := range MetricTypes {
			result.IndustryContext[i] = MetricDistribution{
				MetricType:        mt,
				MetricLabel:       mt.Label(),
				DistributionStats: ComputeDistribution(d, mt, latest, peers, actuals[mt.MultipleCode()]),
				Industry:          industry,
			}
		}
	}

	return result, nil
}

// regressionBlock assembles the historical-baseline and spot regression
// views for one lens.
func regressionBlock(d *Dataset, mt MetricType, latest int, req EstimateRequest, actual *float64) RegressionPrediction {
	growth := req.RevenueGrowth
	if mt.GrowthCode() == CodeEPSGrowth {
		growth = req.EPSGrowth
	}
	growthPct := growth * 100

	block := RegressionPrediction{
		MetricType:     mt,
		MetricLabel:    mt.Label(),
		GrowthInputPct: growthPct,
		CurrentActual:  actual,
	}

	if hist := ComputeBaseline(d, mt, d.Tickers); hist != nil {
		block.HistoricalPredicted = ptr(hist.Predict(growthPct))
		block.HistoricalStats = hist.Stats()
		periods := hist.PeriodCount
		block.HistoricalPeriodCount = &periods
	}

	if spot := SpotRegression(d, mt, latest, d.Tickers); spot != nil {
		block.SpotPredicted = ptr(spot.Predict(growthPct))
		block.SpotStats = spot
	}

	// Deviations only against a strictly positive prediction; a zero or
	// negative implied multiple makes the ratio meaningless.
	if actual != nil {
		if p := block.HistoricalPredicted; p != nil && *p > 0 {
			block.HistoricalDeviationPct = ptr((*actual - *p) / *p * 100)
		}
		if p := block.SpotPredicted; p != nil && *p > 0 {
			block.SpotDeviationPct = ptr((*actual - *p) / *p * 100)
		}
	}

	return block
}

// dcfBlock runs the DCF projection when a usable forward EPS is known,
// defaulting the explicit schedule to the single eps_growth input repeated
// once. A nil return is the expected "unavailable" case.
func dcfBlock(req EstimateRequest, forwardEPS, currentPE *float64) *DCFResult {
	if forwardEPS == nil || *forwardEPS <= 0 {
		return nil
	}

	estimates := req.EPSGrowthEstimates
	if len(estimates) == 0 {
		estimates = []float64{req.EPSGrowth}
	}

	in := DCFInputs{
		ForwardEPS:      *forwardEPS,
		GrowthEstimates: estimates,
		DiscountRate:    req.DiscountRate,
		TerminalGrowth:  req.TerminalGrowth,
		FadePeriod:      req.FadePeriod,
	}

	result := ComputeDCF(in, currentPE)
	if result == nil {
		return nil
	}

	sens := ComputeSensitivity(in)
	result.Sensitivity = sens.ImpliedPE
	result.SensitivityDiscountRates = sens.DiscountRates
	result.SensitivityTerminalGrowths = sens.TerminalGrowths
	return result
}
