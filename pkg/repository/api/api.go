// Package api declares the persistence boundary of the service. Only input
// data (events, laps, standings, imported forecasts) is stored; computed
// analytics are derived per request and never persisted.
package api

import (
	"context"
	"errors"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

var ErrNoRows = errors.New("no rows in result set")

type Repositories interface {
	Event() EventRepository
	Lap() LapRepository
	Standings() StandingsRepository
	Forecast() ForecastRepository
}

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	LoadBySeasonRound(ctx context.Context, season, round int) (*model.Event, error)
	LoadBySeason(ctx context.Context, season int) ([]*model.Event, error)
	DeleteByID(ctx context.Context, id int) (int, error)
}

type LapRepository interface {
	Save(
		ctx context.Context,
		eventID int,
		session, driver string,
		laps []model.LapRecord,
	) error
	LoadByDriver(
		ctx context.Context,
		eventID int,
		session, driver string,
	) ([]model.LapRecord, error)
	LoadBySession(
		ctx context.Context,
		eventID int,
		session string,
	) (map[string][]model.LapRecord, error)
	Drivers(ctx context.Context, eventID int, session string) ([]string, error)
	DeleteByEventID(ctx context.Context, eventID int) (int, error)
}

type StandingsRepository interface {
	Upsert(ctx context.Context, season int, entrants []model.Entrant) error
	LoadBySeason(ctx context.Context, season int) ([]model.Entrant, error)
}

type ForecastRepository interface {
	Save(ctx context.Context, forecast *model.RoundForecast) error
	LoadByRound(ctx context.Context, season, round int) (*model.RoundForecast, error)
	// Rounds returns the rounds of a season that have a stored forecast.
	Rounds(ctx context.Context, season int) ([]int, error)
}
