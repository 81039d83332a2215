// Package impl wires the function-style entity repositories to the
// api.Repositories interface. A separate package keeps the entity packages
// free of the interface declarations and avoids import cycles.
package impl

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
	eventrepos "github.com/pitlap/race-analytics-service-go/pkg/repository/event"
	forecastrepos "github.com/pitlap/race-analytics-service-go/pkg/repository/forecast"
	laprepos "github.com/pitlap/race-analytics-service-go/pkg/repository/lap"
	standingsrepos "github.com/pitlap/race-analytics-service-go/pkg/repository/standings"
)

func NewRepositories(pool *pgxpool.Pool) api.Repositories {
	return &repositories{pool: pool}
}

type repositories struct {
	pool *pgxpool.Pool
}

func (r *repositories) Event() api.EventRepository {
	return &eventRepository{pool: r.pool}
}

func (r *repositories) Lap() api.LapRepository {
	return &lapRepository{pool: r.pool}
}

func (r *repositories) Standings() api.StandingsRepository {
	return &standingsRepository{pool: r.pool}
}

func (r *repositories) Forecast() api.ForecastRepository {
	return &forecastRepository{pool: r.pool}
}

// mapError translates driver errors to the api package sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return api.ErrNoRows
	}
	return err
}

type eventRepository struct {
	pool *pgxpool.Pool
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return mapError(eventrepos.Create(ctx, r.pool, event))
}

func (r *eventRepository) LoadBySeasonRound(
	ctx context.Context, season, round int,
) (*model.Event, error) {
	ret, err := eventrepos.LoadBySeasonRound(ctx, r.pool, season, round)
	return ret, mapError(err)
}

func (r *eventRepository) LoadBySeason(
	ctx context.Context, season int,
) ([]*model.Event, error) {
	ret, err := eventrepos.LoadBySeason(ctx, r.pool, season)
	return ret, mapError(err)
}

func (r *eventRepository) DeleteByID(ctx context.Context, id int) (int, error) {
	ret, err := eventrepos.DeleteByID(ctx, r.pool, id)
	return ret, mapError(err)
}

type lapRepository struct {
	pool *pgxpool.Pool
}

func (r *lapRepository) Save(
	ctx context.Context, eventID int, session, driver string, laps []model.LapRecord,
) error {
	return mapError(laprepos.Save(ctx, r.pool, eventID, session, driver, laps))
}

func (r *lapRepository) LoadByDriver(
	ctx context.Context, eventID int, session, driver string,
) ([]model.LapRecord, error) {
	ret, err := laprepos.LoadByDriver(ctx, r.pool, eventID, session, driver)
	return ret, mapError(err)
}

func (r *lapRepository) LoadBySession(
	ctx context.Context, eventID int, session string,
) (map[string][]model.LapRecord, error) {
	ret, err := laprepos.LoadBySession(ctx, r.pool, eventID, session)
	return ret, mapError(err)
}

func (r *lapRepository) Drivers(
	ctx context.Context, eventID int, session string,
) ([]string, error) {
	ret, err := laprepos.Drivers(ctx, r.pool, eventID, session)
	return ret, mapError(err)
}

func (r *lapRepository) DeleteByEventID(
	ctx context.Context, eventID int,
) (int, error) {
	ret, err := laprepos.DeleteByEventID(ctx, r.pool, eventID)
	return ret, mapError(err)
}

type standingsRepository struct {
	pool *pgxpool.Pool
}

func (r *standingsRepository) Upsert(
	ctx context.Context, season int, entrants []model.Entrant,
) error {
	return mapError(standingsrepos.Upsert(ctx, r.pool, season, entrants))
}

func (r *standingsRepository) LoadBySeason(
	ctx context.Context, season int,
) ([]model.Entrant, error) {
	ret, err := standingsrepos.LoadBySeason(ctx, r.pool, season)
	return ret, mapError(err)
}

type forecastRepository struct {
	pool *pgxpool.Pool
}

func (r *forecastRepository) Save(
	ctx context.Context, fc *model.RoundForecast,
) error {
	return mapError(forecastrepos.Save(ctx, r.pool, fc))
}

func (r *forecastRepository) LoadByRound(
	ctx context.Context, season, round int,
) (*model.RoundForecast, error) {
	ret, err := forecastrepos.LoadByRound(ctx, r.pool, season, round)
	return ret, mapError(err)
}

func (r *forecastRepository) Rounds(
	ctx context.Context, season int,
) ([]int, error) {
	ret, err := forecastrepos.Rounds(ctx, r.pool, season)
	return ret, mapError(err)
}
