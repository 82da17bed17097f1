package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFadeGrowthRate(t *testing.T) {
	const g0, gT = 0.20, 0.02

	t.Run("boundaries", func(t *testing.T) {
		assert.Equal(t, g0, FadeGrowthRate(0, g0, gT, 5))
		assert.Equal(t, gT, FadeGrowthRate(5, g0, gT, 5))
		assert.Equal(t, gT, FadeGrowthRate(9, g0, gT, 5))
	})

	t.Run("interior values lie strictly between", func(t *testing.T) {
		for y := 1; y < 5; y++ {
			rate := FadeGrowthRate(y, g0, gT, 5)
			assert.Greater(t, rate, gT, "year %d", y)
			assert.Less(t, rate, g0, "year %d", y)
		}
	})

	t.Run("linear midpoint", func(t *testing.T) {
		assert.InDelta(t, (g0+gT)/2, FadeGrowthRate(2, g0, gT, 4), 1e-12)
	})

	t.Run("non-positive fade period returns terminal immediately", func(t *testing.T) {
		assert.Equal(t, gT, FadeGrowthRate(0, g0, gT, 0))
		assert.Equal(t, gT, FadeGrowthRate(1, g0, gT, -3))
	})
}

func TestComputeDCF(t *testing.T) {
	base := DCFInputs{
		ForwardEPS:      10.0,
		GrowthEstimates: []float64{0.10, 0.08},
		DiscountRate:    0.10,
		TerminalGrowth:  0.02,
		FadePeriod:      5,
	}

	t.Run("non-viable inputs return nil", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(in *DCFInputs)
		}{
			{"non-positive forward EPS", func(in *DCFInputs) { in.ForwardEPS = 0 }},
			{"discount rate equal to terminal growth", func(in *DCFInputs) { in.DiscountRate = in.TerminalGrowth }},
			{"discount rate below terminal growth", func(in *DCFInputs) { in.DiscountRate = 0.01 }},
			{"empty growth estimates", func(in *DCFInputs) { in.GrowthEstimates = nil }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := base
				tt.mutate(&in)
				assert.Nil(t, ComputeDCF(in, nil))
			})
		}
	})

	t.Run("projection schedule", func(t *testing.T) {
		res := ComputeDCF(base, nil)
		require.NotNil(t, res)
		require.Len(t, res.Projections, 7) // 2 explicit + 5 fade years

		// Explicit years use the caller's estimates verbatim.
		assert.Equal(t, 0.10, res.Projections[0].GrowthRate)
		assert.Equal(t, 0.08, res.Projections[1].GrowthRate)

		// Fade drifts from the last explicit rate to terminal growth.
		last := res.Projections[1].GrowthRate
		for i := 2; i < 7; i++ {
			assert.Less(t, res.Projections[i].GrowthRate, last)
			last = res.Projections[i].GrowthRate
		}
		assert.InDelta(t, base.TerminalGrowth, res.Projections[6].GrowthRate, 1e-12)

		// EPS compounds year over year.
		assert.InDelta(t, 11.0, res.Projections[0].EPS, 1e-9)
		assert.InDelta(t, 11.88, res.Projections[1].EPS, 1e-9)
	})

	t.Run("terminal value identity", func(t *testing.T) {
		res := ComputeDCF(base, nil)
		require.NotNil(t, res)
		assert.InDelta(t, res.SumPVEPS+res.PVTerminalValue, res.TotalPVPerShare, 1e-9)
		assert.InDelta(t, res.TotalPVPerShare/base.ForwardEPS, res.ImpliedPE, 1e-9)

		finalEPS := res.Projections[len(res.Projections)-1].EPS
		assert.InDelta(t, finalEPS*(1+base.TerminalGrowth), res.TerminalEPS, 1e-9)
		assert.InDelta(t, res.TerminalEPS/(base.DiscountRate-base.TerminalGrowth), res.TerminalValue, 1e-9)
	})

	t.Run("smoke test with zero fade period", func(t *testing.T) {
		res := ComputeDCF(DCFInputs{
			ForwardEPS:      10,
			GrowthEstimates: []float64{0.10},
			DiscountRate:    0.10,
			TerminalGrowth:  0.02,
			FadePeriod:      0,
		}, nil)
		require.NotNil(t, res)
		require.Len(t, res.Projections, 1)
		assert.False(t, math.IsInf(res.ImpliedPE, 0))
		assert.False(t, math.IsNaN(res.ImpliedPE))
		assert.Greater(t, res.ImpliedPE, 0.0)
		assert.Greater(t, res.TerminalValuePct, 0.0)
		assert.Less(t, res.TerminalValuePct, 100.0)
	})

	t.Run("deviation against current PE", func(t *testing.T) {
		res := ComputeDCF(base, f(20.0))
		require.NotNil(t, res)
		require.NotNil(t, res.CurrentPE)
		require.NotNil(t, res.DeviationPct)
		assert.InDelta(t, (res.ImpliedPE-20.0)/20.0*100, *res.DeviationPct, 1e-9)

		// Non-positive current PE suppresses the comparison.
		res = ComputeDCF(base, f(0.0))
		require.NotNil(t, res)
		assert.Nil(t, res.CurrentPE)
		assert.Nil(t, res.DeviationPct)
	})
}

func TestComputeSensitivity(t *testing.T) {
	in := DCFInputs{
		ForwardEPS:      10.0,
		GrowthEstimates: []float64{0.10},
		DiscountRate:    0.04,
		TerminalGrowth:  0.02,
		FadePeriod:      3,
	}

	table := ComputeSensitivity(in)
	require.Len(t, table.DiscountRates, 5)
	require.Len(t, table.TerminalGrowths, 5)
	require.Len(t, table.ImpliedPE, 5)

	assert.InDelta(t, 0.02, table.DiscountRates[0], 1e-12)
	assert.InDelta(t, 0.06, table.DiscountRates[4], 1e-12)
	assert.InDelta(t, 0.0, table.TerminalGrowths[0], 1e-12)
	assert.InDelta(t, 0.04, table.TerminalGrowths[4], 1e-12)

	for i, dr := range table.DiscountRates {
		require.Len(t, table.ImpliedPE[i], 5)
		for j, tg := range table.TerminalGrowths {
			cell := table.ImpliedPE[i][j]
			if dr <= tg {
				assert.Nil(t, cell, "dr=%.2f tg=%.2f must be non-viable", dr, tg)
			} else {
				require.NotNil(t, cell, "dr=%.2f tg=%.2f must be viable", dr, tg)
				assert.Greater(t, *cell, 0.0)
			}
		}
	}

	t.Run("center cell matches the base computation", func(t *testing.T) {
		base := ComputeDCF(in, nil)
		require.NotNil(t, base)
		require.NotNil(t, table.ImpliedPE[2][2])
		assert.InDelta(t, base.ImpliedPE, *table.ImpliedPE[2][2], 1e-9)
	})
}
