package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
)

// StoreProvider serves forecasts previously imported into the database.
// Quali and race forecasts share one stored distribution per round.
type StoreProvider struct {
	repos api.ForecastRepository
	l     *log.Logger
}

func NewStoreProvider(repos api.ForecastRepository) *StoreProvider {
	return &StoreProvider{repos: repos, l: log.Default().Named("forecast.store")}
}

func (p *StoreProvider) RaceForecast(
	ctx context.Context, season, round int,
) (*model.RoundForecast, error) {
	return p.load(ctx, season, round)
}

func (p *StoreProvider) QualiForecast(
	ctx context.Context, season, round int,
) (*model.RoundForecast, error) {
	return p.load(ctx, season, round)
}

func (p *StoreProvider) load(
	ctx context.Context, season, round int,
) (*model.RoundForecast, error) {
	ret, err := p.repos.LoadByRound(ctx, season, round)
	if err != nil {
		if errors.Is(err, api.ErrNoRows) {
			return nil, fmt.Errorf("%w: no stored forecast for season %d round %d",
				ErrUnavailable, season, round)
		}
		return nil, err
	}
	if len(ret.Entrants) == 0 {
		return nil, fmt.Errorf("%w: no stored forecast for season %d round %d",
			ErrUnavailable, season, round)
	}
	if err := ret.Validate(); err != nil {
		p.l.Warn("stored forecast failed validation",
			log.Int("season", season), log.Int("round", round), log.ErrorField(err))
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	return ret, nil
}
