package model

import "github.com/aarondl/opt/null"

// Stint is a contiguous run of laps on one compound. Stints of a session
// partition all recorded laps: no gaps, no overlaps.
type Stint struct {
	Compound Compound      `json:"compound"`
	LapStart int           `json:"lap_start"`
	LapEnd   int           `json:"lap_end"`
	PitLap   null.Val[int] `json:"pit_lap"` // absent when the stint ended without a stop
}

func (s Stint) Laps() int { return s.LapEnd - s.LapStart + 1 }

// Contains reports whether lap is within the stint range.
func (s Stint) Contains(lap int) bool { return lap >= s.LapStart && lap <= s.LapEnd }

// DegradationFit is the result of the per-stint pace decay regression.
// Slope/Intercept/R2 are absent when too few quick laps were available;
// LapsUsed and Message describe that condition.
type DegradationFit struct {
	Compound       Compound          `json:"compound"`
	LapStart       int               `json:"lap_start"`
	LapEnd         int               `json:"lap_end"`
	LapsUsed       int               `json:"laps_used"`
	BestLapS       null.Val[float64] `json:"best_lap_s"`
	SlopeSecPerLap null.Val[float64] `json:"slope_sec_per_lap"`
	InterceptS     null.Val[float64] `json:"intercept_s"`
	R2             null.Val[float64] `json:"r2"`
	Message        string            `json:"message"`
}

// HasFit reports whether the regression produced usable coefficients.
func (d DegradationFit) HasFit() bool { return d.SlopeSecPerLap.IsValue() }

// PitWindow is a suggested lap range for a pit stop within a stint.
type PitWindow struct {
	Compound Compound `json:"compound"`
	FromLap  int      `json:"from_lap"`
	ToLap    int      `json:"to_lap"`
	Reason   string   `json:"reason"`
}

const (
	PitEffectUndercutGain = "undercut-like gain"
	PitEffectOvercutLoss  = "overcut-like loss"
	PitEffectNeutral      = "neutral"
)

// PitEffect compares pace just before and just after a pit stop.
// Positive PaceGainS means the car went faster after stopping.
type PitEffect struct {
	PitLap          int               `json:"pit_lap"`
	PreWindowPaceS  null.Val[float64] `json:"pre_window_pace_s"`
	PostWindowPaceS null.Val[float64] `json:"post_window_pace_s"`
	PaceGainS       null.Val[float64] `json:"pace_gain_s"`
	Label           string            `json:"label"`
	Note            string            `json:"note"`
}
