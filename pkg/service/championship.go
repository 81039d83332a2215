//nolint:whitespace // can't make both editor and linter happy
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/forecast"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
	"github.com/pitlap/race-analytics-service-go/pkg/sim/championship"
)

type (
	ChampionshipOption func(*ChampionshipService)

	// ChampionshipService collects standings and forecasts for a season and
	// feeds them into the Monte Carlo simulator.
	ChampionshipService struct {
		repos    api.Repositories
		provider forecast.Provider
		sim      *championship.Simulator
		deadline time.Duration
		workers  int
		l        *log.Logger
	}

	SimulateRequest struct {
		Season int
		Mode   model.SimMode
		// Trials 0 uses the simulator default.
		Trials int
		// UptoRound limits the simulation to rounds <= UptoRound (0 = all).
		UptoRound int
		// Seed 0 draws a random seed.
		Seed uint64
	}

	SimulationResult struct {
		RunID string `json:"run_id"`
		model.ChampionshipProjection
	}
)

func WithSimulator(sim *championship.Simulator) ChampionshipOption {
	return func(s *ChampionshipService) { s.sim = sim }
}

// WithDeadline bounds a single simulation run. Zero disables the bound.
func WithDeadline(d time.Duration) ChampionshipOption {
	return func(s *ChampionshipService) { s.deadline = d }
}

func WithWorkers(n int) ChampionshipOption {
	return func(s *ChampionshipService) { s.workers = n }
}

func NewChampionshipService(
	repos api.Repositories, provider forecast.Provider, opts ...ChampionshipOption,
) *ChampionshipService {
	ret := &ChampionshipService{
		repos:    repos,
		provider: provider,
		sim:      championship.NewSimulator(),
		l:        log.Default().Named("service.championship"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *ChampionshipService) Simulate(
	ctx context.Context, req SimulateRequest,
) (*SimulationResult, error) {
	ctx, span := tracer.Start(ctx, "championship.simulate")
	defer span.End()

	entrants, err := s.repos.Standings().LoadBySeason(ctx, req.Season)
	if err != nil {
		return nil, err
	}
	if len(entrants) == 0 {
		return nil, fmt.Errorf("%w: no standings for season %d",
			api.ErrNoRows, req.Season)
	}
	rounds, err := s.remainingRounds(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deadline)
		defer cancel()
	}
	runID := uuid.Must(uuid.NewV4()).String()
	s.l.Info("starting simulation",
		log.String("runId", runID),
		log.Int("season", req.Season),
		log.String("mode", string(req.Mode)),
		log.Int("rounds", len(rounds)),
		log.Int("trials", req.Trials))

	projection, err := s.sim.Run(ctx, championship.Params{
		Season:   req.Season,
		Entrants: entrants,
		Rounds:   rounds,
		Scheme:   model.DefaultPointsScheme,
		Mode:     req.Mode,
		Trials:   req.Trials,
		Seed:     req.Seed,
		Workers:  s.workers,
	})
	if projection == nil {
		return nil, err
	}
	// a TimeoutError still carries a partial projection
	return &SimulationResult{
		RunID:                  runID,
		ChampionshipProjection: *projection,
	}, err
}

// remainingRounds resolves which rounds to simulate and fetches their
// forecasts. A forecast exists exactly for the rounds not yet run.
func (s *ChampionshipService) remainingRounds(
	ctx context.Context, req SimulateRequest,
) ([]championship.RoundInput, error) {
	rounds, err := s.repos.Forecast().Rounds(ctx, req.Season)
	if err != nil {
		return nil, err
	}
	ret := make([]championship.RoundInput, 0, len(rounds))
	for _, round := range rounds {
		if req.UptoRound > 0 && round > req.UptoRound {
			continue
		}
		fc, err := s.provider.RaceForecast(ctx, req.Season, round)
		if err != nil {
			return nil, err
		}
		ret = append(ret, championship.RoundInput{Round: round, Forecast: fc})
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("%w: no remaining rounds for season %d",
			forecast.ErrUnavailable, req.Season)
	}
	return ret, nil
}
