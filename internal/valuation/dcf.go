package valuation

import "math"

// DCFInputs are the assumptions a projection is built from.
type DCFInputs struct {
	ForwardEPS      float64   `json:"forward_eps"`
	GrowthEstimates []float64 `json:"eps_growth_estimates"`
	DiscountRate    float64   `json:"discount_rate"`
	TerminalGrowth  float64   `json:"terminal_growth"`
	FadePeriod      int       `json:"fade_period"`
}

// Viable reports whether a projection can be computed at all: positive
// starting EPS, discount rate strictly above terminal growth, and at least
// one explicit growth estimate.
func (in DCFInputs) Viable() bool {
	return in.ForwardEPS > 0 &&
		in.DiscountRate > in.TerminalGrowth &&
		len(in.GrowthEstimates) > 0
}

// YearProjection is one discrete projection step.
type YearProjection struct {
	Year           int     `json:"year"`
	GrowthRate     float64 `json:"growth_rate"`
	EPS            float64 `json:"eps"`
	DiscountFactor float64 `json:"discount_factor"`
	PresentValue   float64 `json:"present_value"`
}

// SensitivityTable is the implied P/E recomputed on a fixed grid of discount
// rate and terminal growth offsets around the base assumptions. Grid cells
// are nil where the offset combination is non-viable.
type SensitivityTable struct {
	DiscountRates   []float64    `json:"discount_rates"`
	TerminalGrowths []float64    `json:"terminal_growths"`
	ImpliedPE       [][]*float64 `json:"implied_pe_grid"`
}

// DCFResult is the full projection: per-year detail, summary aggregates, the
// optional comparison against a current P/E, and the sensitivity grid.
type DCFResult struct {
	Inputs           DCFInputs        `json:"inputs"`
	Projections      []YearProjection `json:"projections"`
	SumPVEPS         float64          `json:"sum_pv_eps"`
	TerminalEPS      float64          `json:"terminal_eps"`
	TerminalValue    float64          `json:"terminal_value"`
	PVTerminalValue  float64          `json:"pv_terminal_value"`
	TotalPVPerShare  float64          `json:"total_pv_per_share"`
	ImpliedPE        float64          `json:"implied_pe"`
	TerminalValuePct float64          `json:"terminal_value_pct"`
	CurrentPE        *float64         `json:"current_pe,omitempty"`
	DeviationPct     *float64         `json:"deviation_pct,omitempty"`

	Sensitivity                [][]*float64 `json:"sensitivity,omitempty"`
	SensitivityDiscountRates   []float64    `json:"sensitivity_discount_rates,omitempty"`
	SensitivityTerminalGrowths []float64    `json:"sensitivity_terminal_growths,omitempty"`
}

// FadeGrowthRate interpolates linearly from the last explicit growth rate
// toward the terminal rate across the fade window. Year is 1-based within
// the window: year 0 returns the initial rate, year >= fadePeriod returns
// exactly the terminal rate, and a non-positive fade period collapses to the
// terminal rate immediately.
func FadeGrowthRate(year int, initial, terminal float64, fadePeriod int) float64 {
	if fadePeriod <= 0 {
		return terminal
	}
	if year <= 0 {
		return initial
	}
	if year >= fadePeriod {
		return terminal
	}
	t := float64(year) / float64(fadePeriod)
	return initial*(1-t) + terminal*t
}

// ComputeDCF projects EPS through the explicit and fade phases, discounts
// each year, and caps the horizon with a Gordon-growth terminal value. It
// returns nil for non-viable inputs; the caller treats that as an absent
// block, never as a failure. currentPE, when supplied and positive, adds a
// deviation comparison to the result.
func ComputeDCF(in DCFInputs, currentPE *float64) *DCFResult {
	if !in.Viable() {
		return nil
	}

	nExplicit := len(in.GrowthEstimates)
	totalYears := nExplicit + in.FadePeriod
	lastExplicit := in.GrowthEstimates[nExplicit-1]

	eps := in.ForwardEPS
	var sumPV float64
	projections := make([]YearProjection, 0, totalYears)

	for y := 1; y <= totalYears; y++ {
		var rate float64
		if y <= nExplicit {
			rate = in.GrowthEstimates[y-1]
		} else {
			rate = FadeGrowthRate(y-nExplicit, lastExplicit, in.TerminalGrowth, in.FadePeriod)
		}

		eps *= 1 + rate
		factor := math.Pow(1+in.DiscountRate, -float64(y))
		pv := eps * factor
		sumPV += pv

		projections = append(projections, YearProjection{
			Year:           y,
			GrowthRate:     rate,
			EPS:            eps,
			DiscountFactor: factor,
			PresentValue:   pv,
		})
	}

	// Gordon growth perpetuity at the end of the combined horizon.
	terminalEPS := eps * (1 + in.TerminalGrowth)
	terminalValue := terminalEPS / (in.DiscountRate - in.TerminalGrowth)
	pvTerminal := terminalValue * math.Pow(1+in.DiscountRate, -float64(totalYears))

	totalPV := sumPV + pvTerminal
	impliedPE := totalPV / in.ForwardEPS

	result := &DCFResult{
		Inputs:           in,
		Projections:      projections,
		SumPVEPS:         sumPV,
		TerminalEPS:      terminalEPS,
		TerminalValue:    terminalValue,
		PVTerminalValue:  pvTerminal,
		TotalPVPerShare:  totalPV,
		ImpliedPE:        impliedPE,
		TerminalValuePct: pvTerminal / totalPV * 100,
	}

	if currentPE != nil && *currentPE > 0 {
		result.CurrentPE = currentPE
		result.DeviationPct = ptr((impliedPE - *currentPE) / *currentPE * 100)
	}

	return result
}

// sensitivityOffsets is the fixed offset axis applied to both the discount
// rate and the terminal growth when building the sensitivity grid.
var sensitivityOffsets = []float64{-0.02, -0.01, 0, 0.01, 0.02}

// ComputeSensitivity recomputes the full DCF on a 5x5 grid of discount rate
// and terminal growth offsets around the base inputs, reporting implied P/E
// per cell.
func ComputeSensitivity(in DCFInputs) SensitivityTable {
	drs := make([]float64, len(sensitivityOffsets))
	tgs := make([]float64, len(sensitivityOffsets))
	for i, o := range sensitivityOffsets {
		drs[i] = in.DiscountRate + o
		tgs[i] = in.TerminalGrowth + o
	}

	grid := make([][]*float64, len(drs))
	for i, dr := range drs {
		row := make([]*float64, len(tgs))
		for j, tg := range tgs {
			cell := in
			cell.DiscountRate = dr
			cell.TerminalGrowth = tg
			if res := ComputeDCF(cell, nil); res != nil {
				row[j] = ptr(res.ImpliedPE)
			}
		}
		grid[i] = row
	}

	return SensitivityTable{DiscountRates: drs, TerminalGrowths: tgs, ImpliedPE: grid}
}
