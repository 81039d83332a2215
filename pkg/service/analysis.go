//nolint:whitespace // can't make both editor and linter happy
package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/degradation"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/stint"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/strategy"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/trackevo"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
	"github.com/pitlap/race-analytics-service-go/pkg/utils/cache"
	"github.com/pitlap/race-analytics-service-go/pkg/utils/cache/loadercache"
)

var tracer = otel.Tracer("ras")

// RaceSession is the session identifier of the race itself.
const RaceSession = "R"

type (
	eventKey struct {
		season int
		round  int
	}

	// AnalysisService loads session data and runs the lap analytics on it.
	// Computed results are never cached or persisted, only the event lookup
	// is served from a read-through cache.
	AnalysisService struct {
		repos  api.Repositories
		events cache.Cache[eventKey, model.Event]
		l      *log.Logger
	}

	DriverStints struct {
		Driver    string        `json:"driver"`
		Stints    []model.Stint `json:"stints"`
		TotalLaps int           `json:"total_laps"`
	}

	TyreStintsResult struct {
		Season  int            `json:"season"`
		Round   int            `json:"round"`
		Session string         `json:"session"`
		Drivers []DriverStints `json:"drivers"`
	}

	DegradationResult struct {
		Season  int                   `json:"season"`
		Round   int                   `json:"round"`
		Session string                `json:"session"`
		Driver  string                `json:"driver"`
		Fits    []model.DegradationFit `json:"fits"`
	}

	StrategyResult struct {
		Season  int                      `json:"season"`
		Round   int                      `json:"round"`
		Drivers []*strategy.DriverReport `json:"drivers"`
	}

	TrackEvolutionResult struct {
		Season  int    `json:"season"`
		Round   int    `json:"round"`
		Session string `json:"session"`
		trackevo.Index
	}
)

func NewAnalysisService(repos api.Repositories) *AnalysisService {
	ret := &AnalysisService{
		repos: repos,
		l:     log.Default().Named("service.analysis"),
	}
	ret.events = loadercache.New[eventKey, model.Event](
		loadercache.WithLoader[eventKey, model.Event](
			func(key eventKey) (*model.Event, error) {
				ctx, cancel := context.WithTimeout(
					context.Background(), 5*time.Second)
				defer cancel()
				return repos.Event().LoadBySeasonRound(ctx, key.season, key.round)
			}),
		loadercache.WithExpiration[eventKey, model.Event](10*time.Minute),
		loadercache.WithLogger[eventKey, model.Event](ret.l.Named("events")),
	)
	return ret
}

func (s *AnalysisService) TyreStints(
	ctx context.Context, key model.SessionKey,
) (*TyreStintsResult, error) {
	ctx, span := tracer.Start(ctx, "analysis.tyreStints")
	defer span.End()
	span.SetAttributes(
		attribute.Int("season", key.Season),
		attribute.Int("round", key.Round),
		attribute.String("session", key.Session))

	lapsByDriver, err := s.sessionLaps(ctx, key)
	if err != nil {
		return nil, err
	}
	ret := &TyreStintsResult{
		Season:  key.Season,
		Round:   key.Round,
		Session: key.Session,
		Drivers: make([]DriverStints, 0, len(lapsByDriver)),
	}
	for _, driver := range sortedDrivers(lapsByDriver) {
		laps := lapsByDriver[driver]
		stints, err := stint.Segment(laps)
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", driver, err)
		}
		ret.Drivers = append(ret.Drivers, DriverStints{
			Driver:    driver,
			Stints:    stints,
			TotalLaps: len(laps),
		})
	}
	return ret, nil
}

func (s *AnalysisService) Degradation(
	ctx context.Context, key model.SessionKey, driver string, cfg degradation.Config,
) (*DegradationResult, error) {
	ctx, span := tracer.Start(ctx, "analysis.degradation")
	defer span.End()
	span.SetAttributes(attribute.String("driver", driver))

	event, err := s.resolveEvent(ctx, key.Season, key.Round)
	if err != nil {
		return nil, err
	}
	laps, err := s.repos.Lap().LoadByDriver(ctx, event.ID, key.Session, driver)
	if err != nil {
		return nil, err
	}
	if len(laps) == 0 {
		return nil, fmt.Errorf("%w: driver %s has no laps in %s",
			api.ErrNoRows, driver, key.Session)
	}
	stints, err := stint.Segment(laps)
	if err != nil {
		return nil, fmt.Errorf("driver %s: %w", driver, err)
	}
	ret := &DegradationResult{
		Season:  key.Season,
		Round:   key.Round,
		Session: key.Session,
		Driver:  driver,
		Fits:    make([]model.DegradationFit, 0, len(stints)),
	}
	for _, st := range stints {
		ret.Fits = append(ret.Fits, degradation.Fit(st, stint.LapsOf(st, laps), cfg))
	}
	return ret, nil
}

// Strategy analyzes the race session of a round for every driver.
func (s *AnalysisService) Strategy(
	ctx context.Context, season, round int, cfg strategy.Config,
) (*StrategyResult, error) {
	ctx, span := tracer.Start(ctx, "analysis.strategy")
	defer span.End()

	key := model.SessionKey{Season: season, Round: round, Session: RaceSession}
	lapsByDriver, err := s.sessionLaps(ctx, key)
	if err != nil {
		return nil, err
	}
	advisor := strategy.NewAdvisor(cfg)
	ret := &StrategyResult{
		Season:  season,
		Round:   round,
		Drivers: make([]*strategy.DriverReport, 0, len(lapsByDriver)),
	}
	for _, driver := range sortedDrivers(lapsByDriver) {
		report, err := advisor.AnalyzeDriver(driver, lapsByDriver[driver])
		if err != nil {
			return nil, err
		}
		ret.Drivers = append(ret.Drivers, report)
	}
	return ret, nil
}

func (s *AnalysisService) TrackEvolution(
	ctx context.Context, key model.SessionKey, cfg trackevo.Config,
) (*TrackEvolutionResult, error) {
	ctx, span := tracer.Start(ctx, "analysis.trackEvolution")
	defer span.End()

	lapsByDriver, err := s.sessionLaps(ctx, key)
	if err != nil {
		return nil, err
	}
	return &TrackEvolutionResult{
		Season:  key.Season,
		Round:   key.Round,
		Session: key.Session,
		Index:   trackevo.Compute(lapsByDriver, cfg),
	}, nil
}

func sortedDrivers(lapsByDriver map[string][]model.LapRecord) []string {
	ret := lo.Keys(lapsByDriver)
	slices.Sort(ret)
	return ret
}

func (s *AnalysisService) resolveEvent(
	ctx context.Context, season, round int,
) (*model.Event, error) {
	ret, err := s.events.Get(ctx, eventKey{season: season, round: round})
	if err != nil {
		return nil, fmt.Errorf("season %d round %d: %w", season, round, err)
	}
	return ret, nil
}

func (s *AnalysisService) sessionLaps(
	ctx context.Context, key model.SessionKey,
) (map[string][]model.LapRecord, error) {
	event, err := s.resolveEvent(ctx, key.Season, key.Round)
	if err != nil {
		return nil, err
	}
	ret, err := s.repos.Lap().LoadBySession(ctx, event.ID, key.Session)
	if err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("%w: no laps for session %s", api.ErrNoRows, key.Session)
	}
	return ret, nil
}
