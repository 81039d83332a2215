package stint

import (
	"errors"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

func lap(num int, compound model.Compound, pitIn, pitOut bool) model.LapRecord {
	return model.LapRecord{
		Lap: num, LapTime: 90, Compound: compound, PitIn: pitIn, PitOut: pitOut,
	}
}

//nolint:funlen // table driven
func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		laps []model.LapRecord
		want []model.Stint
	}{
		{
			name: "empty",
			laps: []model.LapRecord{},
			want: []model.Stint{},
		},
		{
			name: "single stint no stop",
			laps: []model.LapRecord{
				lap(1, model.CompoundSoft, false, false),
				lap(2, model.CompoundSoft, false, false),
				lap(3, model.CompoundSoft, false, false),
			},
			want: []model.Stint{
				{Compound: model.CompoundSoft, LapStart: 1, LapEnd: 3},
			},
		},
		{
			name: "pit stop with compound change",
			laps: []model.LapRecord{
				lap(1, model.CompoundSoft, false, false),
				lap(2, model.CompoundSoft, false, false),
				lap(3, model.CompoundSoft, true, false),
				lap(4, model.CompoundMedium, false, true),
				lap(5, model.CompoundMedium, false, false),
			},
			want: []model.Stint{
				{
					Compound: model.CompoundSoft, LapStart: 1, LapEnd: 3,
					PitLap: null.From(3),
				},
				{Compound: model.CompoundMedium, LapStart: 4, LapEnd: 5},
			},
		},
		{
			name: "compound change without pit flag",
			laps: []model.LapRecord{
				lap(1, model.CompoundSoft, false, false),
				lap(2, model.CompoundMedium, false, false),
			},
			want: []model.Stint{
				{Compound: model.CompoundSoft, LapStart: 1, LapEnd: 1},
				{Compound: model.CompoundMedium, LapStart: 2, LapEnd: 2},
			},
		},
		{
			name: "pit stop without compound change",
			laps: []model.LapRecord{
				lap(1, model.CompoundHard, false, false),
				lap(2, model.CompoundHard, true, false),
				lap(3, model.CompoundHard, false, true),
				lap(4, model.CompoundHard, false, false),
			},
			want: []model.Stint{
				{
					Compound: model.CompoundHard, LapStart: 1, LapEnd: 2,
					PitLap: null.From(2),
				},
				{Compound: model.CompoundHard, LapStart: 3, LapEnd: 4},
			},
		},
		{
			name: "session ends on pit-in lap",
			laps: []model.LapRecord{
				lap(1, model.CompoundSoft, false, false),
				lap(2, model.CompoundSoft, true, false),
			},
			want: []model.Stint{
				{
					Compound: model.CompoundSoft, LapStart: 1, LapEnd: 2,
					PitLap: null.From(2),
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Segment(tt.laps)
			assert.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Segment() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSegmentPartitionProperty(t *testing.T) {
	// alternating compounds and random-looking pit stops; the stints must
	// cover every lap exactly once
	laps := make([]model.LapRecord, 0, 50)
	compound := model.CompoundSoft
	for i := 1; i <= 50; i++ {
		pitIn := i%13 == 0
		laps = append(laps, lap(i, compound, pitIn, false))
		if pitIn {
			compound = model.CompoundMedium
		}
	}
	stints, err := Segment(laps)
	assert.NoError(t, err)

	total := 0
	for i, s := range stints {
		total += s.Laps()
		if i > 0 {
			assert.Equal(t, stints[i-1].LapEnd+1, s.LapStart,
				"stint %d does not start right after its predecessor", i)
		}
	}
	assert.Equal(t, len(laps), total)
	assert.Equal(t, 1, stints[0].LapStart)
	assert.Equal(t, 50, stints[len(stints)-1].LapEnd)
}

func TestSegmentNonContiguous(t *testing.T) {
	laps := []model.LapRecord{
		lap(1, model.CompoundSoft, false, false),
		lap(3, model.CompoundSoft, false, false),
	}
	_, err := Segment(laps)
	assert.True(t, errors.Is(err, ErrNonContiguousLaps))
}

func TestLapsOf(t *testing.T) {
	laps := []model.LapRecord{
		lap(1, model.CompoundSoft, false, false),
		lap(2, model.CompoundSoft, false, false),
		lap(3, model.CompoundSoft, false, false),
	}
	s := model.Stint{Compound: model.CompoundSoft, LapStart: 2, LapEnd: 3}
	got := LapsOf(s, laps)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Lap)
	assert.Equal(t, 3, got[1].Lap)
}
