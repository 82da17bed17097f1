package valuation

// MetricCode identifies one of the six per-ticker data arrays in a snapshot.
type MetricCode string

const (
	// Valuation multiples
	CodeEVRevenue MetricCode = "er" // EV / Forward Revenue
	CodeEVGP      MetricCode = "eg" // EV / Forward Gross Profit
	CodePE        MetricCode = "pe" // Price / Forward EPS

	// Growth drivers (decimals, 0.08 = 8%)
	CodeRevGrowth MetricCode = "rg"
	CodeEPSGrowth MetricCode = "xg"

	// Absolute values
	CodeForwardEPS MetricCode = "fe"
)

// AllMetricCodes lists every array a ticker carries in a snapshot.
var AllMetricCodes = []MetricCode{
	CodeEVRevenue, CodeEVGP, CodePE, CodeRevGrowth, CodeEPSGrowth, CodeForwardEPS,
}

// MetricType is one of the three valuation lenses, each pairing a multiple
// with the growth driver it is regressed against.
type MetricType string

const (
	EVRevenue MetricType = "evRev"
	EVGP      MetricType = "evGP"
	PriceEPS  MetricType = "pEPS"
)

// MetricTypes lists the lenses in the order they appear in every response.
var MetricTypes = []MetricType{EVRevenue, EVGP, PriceEPS}

// MultipleCode returns the multiple array the lens reads.
func (mt MetricType) MultipleCode() MetricCode {
	switch mt {
	case EVRevenue:
		return CodeEVRevenue
	case EVGP:
		return CodeEVGP
	case PriceEPS:
		return CodePE
	default:
		return ""
	}
}

// GrowthCode returns the growth array the lens regresses against.
func (mt MetricType) GrowthCode() MetricCode {
	if mt == PriceEPS {
		return CodeEPSGrowth
	}
	return CodeRevGrowth
}

// Label returns the human-readable name of the lens.
func (mt MetricType) Label() string {
	switch mt {
	case EVRevenue:
		return "EV / Revenue"
	case EVGP:
		return "EV / Gross Profit"
	case PriceEPS:
		return "Price / EPS"
	default:
		return "unknown"
	}
}

// IsValid reports whether the metric type is one of the three known lenses.
func (mt MetricType) IsValid() bool {
	switch mt {
	case EVRevenue, EVGP, PriceEPS:
		return true
	}
	return false
}

// Sanity bounds applied by the cross-sectional filter. These are fixed
// configuration constants calibrated against observed vendor data errors
// (near-zero denominators produce explosive multiples); changing them changes
// which points enter every downstream fit and statistic.
const (
	maxPEMultiple    = 200.0
	maxEVRevMultiple = 80.0
	maxEVGPMultiple  = 120.0

	// EPS-quality gate for the Price/EPS lens. Lower growth bound is
	// exclusive, upper bound inclusive.
	minForwardEPS = 0.5
	minEPSGrowth  = -0.75
	maxEPSGrowth  = 2.0
)

// regressionEpsilon guards the normal-equation denominator against a
// numerically degenerate x distribution.
const regressionEpsilon = 1e-12

// minRegressionPoints is the smallest cross-section an OLS fit is attempted on.
const minRegressionPoints = 3
