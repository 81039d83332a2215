// Package basedata provides synthetic sample data used by database and
// service tests.
package basedata

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
	eventrepos "github.com/pitlap/race-analytics-service-go/pkg/repository/event"
	laprepos "github.com/pitlap/race-analytics-service-go/pkg/repository/lap"
)

const (
	SampleSeason  = 2025
	SampleRound   = 14
	SampleSession = "R"
	SampleDriver  = "HAM"
)

func SampleEvent() *model.Event {
	return &model.Event{
		Season: SampleSeason,
		Round:  SampleRound,
		Name:   "Italian Grand Prix",
	}
}

// SampleLaps builds a two stint race with a pit stop on lap 8 and mild
// degradation on both stints.
func SampleLaps() []model.LapRecord {
	ret := make([]model.LapRecord, 0, 16)
	for i := 1; i <= 16; i++ {
		l := model.LapRecord{
			Lap:      i,
			Compound: model.CompoundSoft,
			LapTime:  92.0 + 0.08*float64(i),
		}
		switch {
		case i == 8:
			l.PitIn = true
			l.LapTime += 20
		case i == 9:
			l.PitOut = true
			l.LapTime += 12
		}
		if i >= 9 {
			l.Compound = model.CompoundHard
		}
		ret = append(ret, l)
	}
	return ret
}

func SampleStandings() []model.Entrant {
	return []model.Entrant{
		{ID: "NOR", Team: "McLaren", AccruedPoints: 300},
		{ID: "VER", Team: "Red Bull", AccruedPoints: 290},
		{ID: "LEC", Team: "Ferrari", AccruedPoints: 240},
	}
}

func SampleForecast(round int) *model.RoundForecast {
	return &model.RoundForecast{
		Season:   SampleSeason,
		Round:    round,
		Complete: true,
		Entrants: []model.EntrantForecast{
			{EntrantID: "NOR", Team: "McLaren", PWin: 0.5, PTop3: 0.9, PPole: 0.4},
			{EntrantID: "VER", Team: "Red Bull", PWin: 0.3, PTop3: 0.8, PPole: 0.4},
			{EntrantID: "LEC", Team: "Ferrari", PWin: 0.2, PTop3: 0.7, PPole: 0.2},
		},
	}
}

// CreateSampleEvent stores the sample event with the sample driver's laps.
func CreateSampleEvent(pool *pgxpool.Pool) *model.Event {
	ctx := context.Background()
	event := SampleEvent()
	if err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if err := eventrepos.Create(ctx, tx, event); err != nil {
			return err
		}
		return laprepos.Save(
			ctx, tx, event.ID, SampleSession, SampleDriver, SampleLaps())
	}); err != nil {
		log.Fatalf("CreateSampleEvent: %v\n", err)
	}
	return event
}
