// Package stint reconstructs tyre stints from an ordered lap sequence.
package stint

import (
	"errors"
	"fmt"

	"github.com/aarondl/opt/null"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

// ErrNonContiguousLaps signals corrupt upstream data. Lap sequences must be
// strictly consecutive; they are never repaired here.
var ErrNonContiguousLaps = errors.New("lap numbers are not contiguous")

// Segment partitions laps into stints. A new stint starts after a pit-in lap
// or on a compound change; the pit lap is recorded on the stint it closes.
// The returned stints cover every lap exactly once.
func Segment(laps []model.LapRecord) ([]model.Stint, error) {
	if len(laps) == 0 {
		return []model.Stint{}, nil
	}
	ret := make([]model.Stint, 0, 4)
	cur := model.Stint{
		Compound: laps[0].Compound,
		LapStart: laps[0].Lap,
		LapEnd:   laps[0].Lap,
	}
	for i := 1; i < len(laps); i++ {
		prev := laps[i-1]
		lap := laps[i]
		if lap.Lap != prev.Lap+1 {
			return nil, fmt.Errorf("%w: lap %d followed by lap %d",
				ErrNonContiguousLaps, prev.Lap, lap.Lap)
		}
		if prev.PitIn || lap.Compound != cur.Compound {
			cur.LapEnd = prev.Lap
			if prev.PitIn {
				cur.PitLap = null.From(prev.Lap)
			}
			ret = append(ret, cur)
			cur = model.Stint{Compound: lap.Compound, LapStart: lap.Lap}
		}
		cur.LapEnd = lap.Lap
	}
	if laps[len(laps)-1].PitIn {
		cur.PitLap = null.From(laps[len(laps)-1].Lap)
	}
	ret = append(ret, cur)
	return ret, nil
}

// LapsOf returns the lap records belonging to s, assuming laps is the ordered
// session sequence s was segmented from.
func LapsOf(s model.Stint, laps []model.LapRecord) []model.LapRecord {
	ret := make([]model.LapRecord, 0, s.Laps())
	for i := range laps {
		if s.Contains(laps[i].Lap) {
			ret = append(ret, laps[i])
		}
	}
	return ret
}
