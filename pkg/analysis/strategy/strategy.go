// Package strategy turns degradation fits into pit recommendations and
// classifies the pace effect of observed pit stops.
package strategy

import (
	"fmt"
	"slices"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/pitlap/race-analytics-service-go/pkg/analysis/degradation"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/quicklap"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/stint"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

type (
	Config struct {
		// DegradationThresholdSecPerLap: slopes above it trigger a window.
		DegradationThresholdSecPerLap float64
		// QuickQuantile for the degradation fits and stint pace.
		QuickQuantile float64
		// MinLaps is the minimum quick lap count for a fit.
		MinLaps int
		// PitEffectWindowLaps is the window size on both sides of a stop
		// and the length of the suggested pit window.
		PitEffectWindowLaps int
		// EpsilonS is the tolerance below which a pit effect is neutral.
		EpsilonS float64
	}

	// StintSummary is the per-stint part of a driver report.
	StintSummary struct {
		model.DegradationFit
		PaceMedianQuickS null.Val[float64] `json:"pace_median_quick_s"`
		SuggestedWindow  *model.PitWindow  `json:"suggested_pit_window,omitempty"`
	}

	// DriverReport is the full strategy analysis for one driver.
	DriverReport struct {
		Driver     string            `json:"driver"`
		PitLaps    []int             `json:"pit_laps"`
		Stints     []StintSummary    `json:"stints"`
		PitEffects []model.PitEffect `json:"pit_effects"`
	}

	Advisor struct {
		cfg Config
	}
)

func DefaultConfig() Config {
	return Config{
		DegradationThresholdSecPerLap: 0.06,
		QuickQuantile:                 0.75,
		MinLaps:                       3,
		PitEffectWindowLaps:           3,
		EpsilonS:                      0.05,
	}
}

func NewAdvisor(cfg Config) *Advisor {
	return &Advisor{cfg: cfg}
}

// AnalyzeDriver segments the driver's laps and produces the strategy report.
func (a *Advisor) AnalyzeDriver(driver string, laps []model.LapRecord) (
	*DriverReport, error,
) {
	stints, err := stint.Segment(laps)
	if err != nil {
		return nil, fmt.Errorf("driver %s: %w", driver, err)
	}
	ret := &DriverReport{
		Driver:  driver,
		PitLaps: pitLaps(stints),
		Stints:  make([]StintSummary, 0, len(stints)),
	}
	for _, s := range stints {
		stintLaps := stint.LapsOf(s, laps)
		fit := degradation.Fit(s, stintLaps, degradation.Config{
			MinSamples:    a.cfg.MinLaps,
			QuickQuantile: a.cfg.QuickQuantile,
		})
		summary := StintSummary{
			DegradationFit:   fit,
			PaceMedianQuickS: a.stintPace(stintLaps),
			SuggestedWindow:  a.SuggestPitWindow(s, fit),
		}
		ret.Stints = append(ret.Stints, summary)
	}
	ret.PitEffects = a.PitEffects(stints, laps)
	return ret, nil
}

// SuggestPitWindow emits a window covering the final PitEffectWindowLaps laps
// of the stint when the fitted slope exceeds the threshold. No window without
// a fit or at/below threshold.
func (a *Advisor) SuggestPitWindow(s model.Stint, fit model.DegradationFit) *model.PitWindow {
	if !fit.HasFit() {
		return nil
	}
	slope := fit.SlopeSecPerLap.MustGet()
	if slope <= a.cfg.DegradationThresholdSecPerLap {
		return nil
	}
	from := s.LapEnd - a.cfg.PitEffectWindowLaps + 1
	if from < s.LapStart {
		from = s.LapStart
	}
	return &model.PitWindow{
		Compound: s.Compound,
		FromLap:  from,
		ToLap:    s.LapEnd,
		Reason: fmt.Sprintf("degradation slope %.3f sec/lap exceeds threshold %.3f",
			slope, a.cfg.DegradationThresholdSecPerLap),
	}
}

// PitEffects classifies the pace effect of every observed pit stop by
// comparing mean pace over the laps right before and right after the stop.
func (a *Advisor) PitEffects(
	stints []model.Stint, laps []model.LapRecord,
) []model.PitEffect {
	ret := make([]model.PitEffect, 0, len(stints))
	for i, s := range stints {
		if !s.PitLap.IsValue() {
			continue
		}
		pitLap := s.PitLap.MustGet()
		pre := a.windowPace(laps, s, pitLap-a.cfg.PitEffectWindowLaps, pitLap-1)
		post := null.FromPtr[float64](nil)
		if i+1 < len(stints) {
			next := stints[i+1]
			post = a.windowPace(laps, next, pitLap+1, pitLap+a.cfg.PitEffectWindowLaps)
		}
		ret = append(ret, a.classify(pitLap, pre, post))
	}
	return ret
}

func (a *Advisor) classify(pitLap int, pre, post null.Val[float64]) model.PitEffect {
	effect := model.PitEffect{
		PitLap:          pitLap,
		PreWindowPaceS:  pre,
		PostWindowPaceS: post,
		Label:           model.PitEffectNeutral,
	}
	if !pre.IsValue() || !post.IsValue() {
		effect.Note = "not enough quick laps around the stop to judge the effect"
		return effect
	}
	gain := pre.MustGet() - post.MustGet()
	effect.PaceGainS = null.From(gain)
	switch {
	case gain > a.cfg.EpsilonS:
		effect.Label = model.PitEffectUndercutGain
		effect.Note = "positive pace gain suggests fresher tyre benefit"
	case gain < -a.cfg.EpsilonS:
		effect.Label = model.PitEffectOvercutLoss
		effect.Note = "pace dropped after the stop"
	default:
		effect.Note = fmt.Sprintf("pace change within ±%.2fs tolerance", a.cfg.EpsilonS)
	}
	return effect
}

// windowPace is the mean lap time of the non-in/out laps in [fromLap,toLap]
// clamped to the given stint. Absent with fewer than 2 such laps; the window
// is too short for a quantile cut, so only the in/out exclusion applies.
func (a *Advisor) windowPace(
	laps []model.LapRecord, s model.Stint, fromLap, toLap int,
) null.Val[float64] {
	window := lo.Filter(laps, func(l model.LapRecord, _ int) bool {
		return l.Lap >= fromLap && l.Lap <= toLap &&
			s.Contains(l.Lap) && !l.PitIn && !l.PitOut
	})
	if len(window) < 2 {
		return null.FromPtr[float64](nil)
	}
	sum := lo.SumBy(window, func(l model.LapRecord) float64 { return l.LapTime })
	return null.From(sum / float64(len(window)))
}

// stintPace is the median quick lap time, the robust pace estimate shown in
// the stint summaries.
func (a *Advisor) stintPace(stintLaps []model.LapRecord) null.Val[float64] {
	quick := quicklap.Filter(stintLaps, quicklap.Config{
		QuickQuantile:    a.cfg.QuickQuantile,
		ExcludeInOutLaps: true,
		MinLaps:          1,
	})
	if len(quick) == 0 {
		return null.FromPtr[float64](nil)
	}
	times := lo.Map(quick, func(l model.LapRecord, _ int) float64 { return l.LapTime })
	return null.From(median(times))
}

func median(vals []float64) float64 {
	work := slices.Clone(vals)
	slices.Sort(work)
	n := len(work)
	if n%2 == 1 {
		return work[n/2]
	}
	return (work[n/2-1] + work[n/2]) / 2
}

func pitLaps(stints []model.Stint) []int {
	ret := make([]int, 0, len(stints))
	for _, s := range stints {
		if s.PitLap.IsValue() {
			ret = append(ret, s.PitLap.MustGet())
		}
	}
	return ret
}
