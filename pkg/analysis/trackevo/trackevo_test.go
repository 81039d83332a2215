package trackevo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

func rubberingInSession(drivers int, laps int) map[string][]model.LapRecord {
	// every driver gets 0.05s faster per lap as the track rubbers in
	ret := make(map[string][]model.LapRecord)
	for d := 0; d < drivers; d++ {
		name := string(rune('A' + d))
		records := make([]model.LapRecord, 0, laps)
		for i := 1; i <= laps; i++ {
			records = append(records, model.LapRecord{
				Lap:      i,
				LapTime:  95.0 + float64(d)*0.2 - 0.05*float64(i),
				Compound: model.CompoundSoft,
			})
		}
		ret[name] = records
	}
	return ret
}

func TestComputeRubberingIn(t *testing.T) {
	idx := Compute(rubberingInSession(3, 20), Config{
		BucketLaps: 5, QuickQuantile: 1.0, MinLapsPerBucket: 2,
	})
	require.Equal(t, "OK", idx.Message)
	require.Len(t, idx.Buckets, 4)

	assert.Equal(t, 1, idx.Buckets[0].FromLap)
	assert.Equal(t, 5, idx.Buckets[0].ToLap)
	assert.InDelta(t, 0, idx.Buckets[0].DeltaToFirstS, 1e-9)

	// deltas decrease monotonically on a rubbering-in track
	for i := 1; i < len(idx.Buckets); i++ {
		assert.Less(t, idx.Buckets[i].DeltaToFirstS, idx.Buckets[i-1].DeltaToFirstS)
	}
}

func TestComputeSkipsThinBuckets(t *testing.T) {
	laps := map[string][]model.LapRecord{
		"A": {
			{Lap: 1, LapTime: 90, Compound: model.CompoundSoft},
			{Lap: 2, LapTime: 90, Compound: model.CompoundSoft},
			{Lap: 3, LapTime: 90, Compound: model.CompoundSoft},
			// a single stray lap far out: its bucket is skipped
			{Lap: 42, LapTime: 89, Compound: model.CompoundSoft},
		},
		"B": {
			{Lap: 6, LapTime: 89.5, Compound: model.CompoundSoft},
			{Lap: 7, LapTime: 89.5, Compound: model.CompoundSoft},
		},
	}
	idx := Compute(laps, Config{BucketLaps: 5, QuickQuantile: 1.0, MinLapsPerBucket: 2})
	require.Equal(t, "OK", idx.Message)
	require.Len(t, idx.Buckets, 2)
	assert.Equal(t, 1, idx.Buckets[0].FromLap)
	assert.Equal(t, 6, idx.Buckets[1].FromLap)
}

func TestComputeInsufficientData(t *testing.T) {
	laps := map[string][]model.LapRecord{
		"A": {
			{Lap: 1, LapTime: 90, Compound: model.CompoundSoft},
			{Lap: 2, LapTime: 90, Compound: model.CompoundSoft},
		},
	}
	idx := Compute(laps, DefaultConfig())
	assert.Empty(t, idx.Buckets)
	assert.NotEmpty(t, idx.Message)

	empty := Compute(map[string][]model.LapRecord{}, DefaultConfig())
	assert.Empty(t, empty.Buckets)
}

func TestComputeExcludesInOutLaps(t *testing.T) {
	laps := rubberingInSession(2, 10)
	for d := range laps {
		laps[d][4].PitIn = true
		laps[d][5].PitOut = true
	}
	idx := Compute(laps, Config{BucketLaps: 5, QuickQuantile: 1.0, MinLapsPerBucket: 2})
	require.Equal(t, "OK", idx.Message)
	// bucket 1 lost its pit-in laps, bucket 2 its out laps
	assert.Equal(t, 8, idx.Buckets[0].LapsUsed)
	assert.Equal(t, 8, idx.Buckets[1].LapsUsed)
}
