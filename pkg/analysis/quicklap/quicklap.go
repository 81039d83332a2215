// Package quicklap selects the laps of a stint usable for pace modeling.
package quicklap

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

type Config struct {
	// QuickQuantile keeps the fastest fraction of the remaining laps,
	// e.g. 0.6 keeps the fastest 60%. Must be in (0,1].
	QuickQuantile float64
	// ExcludeInOutLaps drops pit-in and pit-out laps before the quantile cut.
	ExcludeInOutLaps bool
	// MinLaps is the minimum number of laps after exclusions; below it the
	// result is empty (insufficient data, not zero laps of pace).
	MinLaps int
}

func DefaultConfig() Config {
	return Config{QuickQuantile: 0.75, ExcludeInOutLaps: true, MinLaps: 3}
}

// Filter returns the quick laps of a stint in lap order.
func Filter(laps []model.LapRecord, cfg Config) []model.LapRecord {
	work := laps
	if cfg.ExcludeInOutLaps {
		work = lo.Filter(laps, func(l model.LapRecord, _ int) bool {
			return !l.PitIn && !l.PitOut
		})
	}
	if len(work) < cfg.MinLaps {
		return []model.LapRecord{}
	}
	keep := int(math.Ceil(cfg.QuickQuantile * float64(len(work))))
	if keep < 1 {
		keep = 1
	}
	if keep > len(work) {
		keep = len(work)
	}
	byPace := slices.Clone(work)
	slices.SortStableFunc(byPace, func(a, b model.LapRecord) int {
		switch {
		case a.LapTime < b.LapTime:
			return -1
		case a.LapTime > b.LapTime:
			return 1
		default:
			return a.Lap - b.Lap
		}
	})
	kept := byPace[:keep]
	ret := slices.Clone(kept)
	slices.SortFunc(ret, func(a, b model.LapRecord) int { return a.Lap - b.Lap })
	return ret
}
