// Package trackevo computes the track evolution index of a session: the
// trend of representative pace over lap-number buckets across all drivers.
package trackevo

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

type (
	Config struct {
		// BucketLaps is the bucket width in laps.
		BucketLaps int
		// QuickQuantile keeps the fastest fraction of the pooled laps
		// before bucketing, to avoid slow-lap contamination.
		QuickQuantile float64
		// MinLapsPerBucket: buckets with fewer usable laps are skipped.
		MinLapsPerBucket int
	}

	Bucket struct {
		FromLap       int     `json:"from_lap"`
		ToLap         int     `json:"to_lap"`
		LapsUsed      int     `json:"laps_used"`
		MedianPaceS   float64 `json:"median_pace_s"`
		DeltaToFirstS float64 `json:"delta_to_first_s"` // negative: track got faster
	}

	Index struct {
		Buckets []Bucket `json:"buckets"`
		Message string   `json:"message"`
	}
)

func DefaultConfig() Config {
	return Config{BucketLaps: 5, QuickQuantile: 0.60, MinLapsPerBucket: 2}
}

// Compute pools the laps of all drivers and reports the per-bucket median
// pace relative to the first bucket. With fewer than 2 usable buckets the
// index is empty and carries an insufficient-data message; not an error.
func Compute(lapsByDriver map[string][]model.LapRecord, cfg Config) Index {
	pooled := make([]model.LapRecord, 0, 128)
	for _, laps := range lapsByDriver {
		pooled = append(pooled, lo.Filter(laps, func(l model.LapRecord, _ int) bool {
			return !l.PitIn && !l.PitOut
		})...)
	}
	if len(pooled) == 0 {
		return Index{Buckets: []Bucket{}, Message: "no usable laps in session"}
	}

	// global quick cut: keep the fastest fraction of all pooled laps
	keep := int(math.Ceil(cfg.QuickQuantile * float64(len(pooled))))
	if keep < 1 {
		keep = 1
	}
	slices.SortStableFunc(pooled, func(a, b model.LapRecord) int {
		switch {
		case a.LapTime < b.LapTime:
			return -1
		case a.LapTime > b.LapTime:
			return 1
		default:
			return a.Lap - b.Lap
		}
	})
	quick := pooled[:keep]

	byBucket := lo.GroupBy(quick, func(l model.LapRecord) int {
		return (l.Lap - 1) / cfg.BucketLaps
	})
	keys := lo.Keys(byBucket)
	slices.Sort(keys)

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		laps := byBucket[k]
		if len(laps) < cfg.MinLapsPerBucket {
			continue
		}
		times := lo.Map(laps, func(l model.LapRecord, _ int) float64 { return l.LapTime })
		slices.Sort(times)
		med := times[len(times)/2]
		if len(times)%2 == 0 {
			med = (times[len(times)/2-1] + times[len(times)/2]) / 2
		}
		buckets = append(buckets, Bucket{
			FromLap:     k*cfg.BucketLaps + 1,
			ToLap:       (k + 1) * cfg.BucketLaps,
			LapsUsed:    len(laps),
			MedianPaceS: med,
		})
	}
	if len(buckets) < 2 {
		return Index{
			Buckets: []Bucket{},
			Message: "not enough usable lap buckets to compute an evolution trend",
		}
	}
	first := buckets[0].MedianPaceS
	for i := range buckets {
		buckets[i].DeltaToFirstS = buckets[i].MedianPaceS - first
	}
	return Index{Buckets: buckets, Message: "OK"}
}
