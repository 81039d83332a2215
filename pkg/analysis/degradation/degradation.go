// Package degradation fits the per-stint linear pace decay model.
package degradation

import (
	"fmt"

	"github.com/aarondl/opt/null"

	"github.com/pitlap/race-analytics-service-go/pkg/analysis/quicklap"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

type Config struct {
	// MinSamples is the minimum number of quick laps required for a fit.
	MinSamples int
	// QuickQuantile is passed through to the quick lap selection.
	QuickQuantile float64
}

func DefaultConfig() Config {
	return Config{MinSamples: 3, QuickQuantile: 0.75}
}

// Fit runs an ordinary least squares regression of lap time against the
// 0-based lap offset within the stint over the quick laps. The slope is
// reported unclamped; a negative slope (improving pace) is a valid fit.
// With fewer than MinSamples quick laps the numeric fields stay absent and
// the fit carries an insufficient-data message; this is not an error.
func Fit(s model.Stint, stintLaps []model.LapRecord, cfg Config) model.DegradationFit {
	ret := model.DegradationFit{
		Compound: s.Compound,
		LapStart: s.LapStart,
		LapEnd:   s.LapEnd,
	}
	ret.BestLapS = bestLap(stintLaps)

	quick := quicklap.Filter(stintLaps, quicklap.Config{
		QuickQuantile:    cfg.QuickQuantile,
		ExcludeInOutLaps: true,
	})
	ret.LapsUsed = len(quick)
	if len(quick) < cfg.MinSamples {
		ret.Message = fmt.Sprintf("insufficient data for fit (need %d, got %d)",
			cfg.MinSamples, len(quick))
		return ret
	}

	slope, intercept, r2 := leastSquares(s, quick)
	ret.SlopeSecPerLap = null.From(slope)
	ret.InterceptS = null.From(intercept)
	ret.R2 = null.From(r2)
	ret.Message = "OK"
	return ret
}

func bestLap(laps []model.LapRecord) null.Val[float64] {
	best := null.FromPtr[float64](nil)
	for i := range laps {
		if laps[i].PitIn || laps[i].PitOut {
			continue
		}
		if !best.IsValue() || laps[i].LapTime < best.MustGet() {
			best = null.From(laps[i].LapTime)
		}
	}
	return best
}

//nolint:nonamedreturns // readability
func leastSquares(s model.Stint, quick []model.LapRecord) (
	slope, intercept, r2 float64,
) {
	n := float64(len(quick))
	var sumX, sumY float64
	for i := range quick {
		sumX += float64(quick[i].Lap - s.LapStart)
		sumY += quick[i].LapTime
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for i := range quick {
		dx := float64(quick[i].Lap-s.LapStart) - meanX
		sxx += dx * dx
		sxy += dx * (quick[i].LapTime - meanY)
	}
	// sxx is zero only for a single sample which MinSamples already rules out
	slope = sxy / sxx
	intercept = meanY - slope*meanX

	var ssRes, ssTot float64
	for i := range quick {
		x := float64(quick[i].Lap - s.LapStart)
		resid := quick[i].LapTime - (slope*x + intercept)
		ssRes += resid * resid
		dy := quick[i].LapTime - meanY
		ssTot += dy * dy
	}
	if ssTot == 0 {
		// all quick laps identical: flat, perfect fit
		return 0, meanY, 1
	}
	return slope, intercept, 1 - ssRes/ssTot
}
