package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitlap/race-analytics-service-go/pkg/analysis/degradation"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/strategy"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/trackevo"
	"github.com/pitlap/race-analytics-service-go/pkg/forecast"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
)

type memRepos struct {
	events    map[string]*model.Event
	laps      map[string]map[string][]model.LapRecord // eventID/session -> driver
	standings map[int][]model.Entrant
	forecasts map[string]*model.RoundForecast
}

func newMemRepos() *memRepos {
	return &memRepos{
		events:    map[string]*model.Event{},
		laps:      map[string]map[string][]model.LapRecord{},
		standings: map[int][]model.Entrant{},
		forecasts: map[string]*model.RoundForecast{},
	}
}

func (m *memRepos) Event() api.EventRepository         { return (*memEventRepo)(m) }
func (m *memRepos) Lap() api.LapRepository             { return (*memLapRepo)(m) }
func (m *memRepos) Standings() api.StandingsRepository { return (*memStandingsRepo)(m) }
func (m *memRepos) Forecast() api.ForecastRepository   { return (*memForecastRepo)(m) }

type memEventRepo memRepos

func (m *memEventRepo) Create(ctx context.Context, event *model.Event) error {
	event.ID = len(m.events) + 1
	m.events[fmt.Sprintf("%d/%d", event.Season, event.Round)] = event
	return nil
}

func (m *memEventRepo) LoadBySeasonRound(
	ctx context.Context, season, round int,
) (*model.Event, error) {
	ret, ok := m.events[fmt.Sprintf("%d/%d", season, round)]
	if !ok {
		return nil, api.ErrNoRows
	}
	return ret, nil
}

func (m *memEventRepo) LoadBySeason(
	ctx context.Context, season int,
) ([]*model.Event, error) {
	ret := []*model.Event{}
	for _, e := range m.events {
		if e.Season == season {
			ret = append(ret, e)
		}
	}
	return ret, nil
}

func (m *memEventRepo) DeleteByID(ctx context.Context, id int) (int, error) {
	return 0, errors.New("not implemented")
}

type memLapRepo memRepos

func (m *memLapRepo) key(eventID int, session string) string {
	return fmt.Sprintf("%d/%s", eventID, session)
}

func (m *memLapRepo) Save(
	ctx context.Context, eventID int, session, driver string, laps []model.LapRecord,
) error {
	key := m.key(eventID, session)
	if m.laps[key] == nil {
		m.laps[key] = map[string][]model.LapRecord{}
	}
	m.laps[key][driver] = laps
	return nil
}

func (m *memLapRepo) LoadByDriver(
	ctx context.Context, eventID int, session, driver string,
) ([]model.LapRecord, error) {
	return m.laps[m.key(eventID, session)][driver], nil
}

func (m *memLapRepo) LoadBySession(
	ctx context.Context, eventID int, session string,
) (map[string][]model.LapRecord, error) {
	return m.laps[m.key(eventID, session)], nil
}

func (m *memLapRepo) Drivers(
	ctx context.Context, eventID int, session string,
) ([]string, error) {
	ret := []string{}
	for driver := range m.laps[m.key(eventID, session)] {
		ret = append(ret, driver)
	}
	return ret, nil
}

func (m *memLapRepo) DeleteByEventID(ctx context.Context, eventID int) (int, error) {
	return 0, errors.New("not implemented")
}

type memStandingsRepo memRepos

func (m *memStandingsRepo) Upsert(
	ctx context.Context, season int, entrants []model.Entrant,
) error {
	m.standings[season] = entrants
	return nil
}

func (m *memStandingsRepo) LoadBySeason(
	ctx context.Context, season int,
) ([]model.Entrant, error) {
	return m.standings[season], nil
}

type memForecastRepo memRepos

func (m *memForecastRepo) Save(ctx context.Context, fc *model.RoundForecast) error {
	m.forecasts[fmt.Sprintf("%d/%d", fc.Season, fc.Round)] = fc
	return nil
}

func (m *memForecastRepo) LoadByRound(
	ctx context.Context, season, round int,
) (*model.RoundForecast, error) {
	ret, ok := m.forecasts[fmt.Sprintf("%d/%d", season, round)]
	if !ok {
		return nil, api.ErrNoRows
	}
	return ret, nil
}

func (m *memForecastRepo) Rounds(ctx context.Context, season int) ([]int, error) {
	ret := []int{}
	for _, fc := range m.forecasts {
		if fc.Season == season {
			ret = append(ret, fc.Round)
		}
	}
	sort.Ints(ret)
	return ret, nil
}

// raceLaps builds two stints split by a pit stop on lap 6.
func raceLaps() []model.LapRecord {
	ret := make([]model.LapRecord, 0, 12)
	for i := 1; i <= 12; i++ {
		l := model.LapRecord{
			Lap:      i,
			LapTime:  92.0 + 0.1*float64(i),
			Compound: model.CompoundSoft,
		}
		if i > 6 {
			l.Compound = model.CompoundHard
		}
		switch i {
		case 6:
			l.PitIn = true
		case 7:
			l.PitOut = true
		}
		ret = append(ret, l)
	}
	return ret
}

func setupAnalysisData(t *testing.T) *memRepos {
	t.Helper()
	repos := newMemRepos()
	ctx := context.Background()
	event := &model.Event{Season: 2025, Round: 14, Name: "Italian Grand Prix"}
	require.NoError(t, repos.Event().Create(ctx, event))
	require.NoError(t,
		repos.Lap().Save(ctx, event.ID, RaceSession, "HAM", raceLaps()))
	require.NoError(t,
		repos.Lap().Save(ctx, event.ID, RaceSession, "VER", raceLaps()))
	return repos
}

func TestAnalysisServiceTyreStints(t *testing.T) {
	s := NewAnalysisService(setupAnalysisData(t))

	ret, err := s.TyreStints(context.Background(),
		model.SessionKey{Season: 2025, Round: 14, Session: RaceSession})
	require.NoError(t, err)
	require.Len(t, ret.Drivers, 2)
	assert.Equal(t, "HAM", ret.Drivers[0].Driver)
	assert.Equal(t, "VER", ret.Drivers[1].Driver)
	require.Len(t, ret.Drivers[0].Stints, 2)
	assert.Equal(t, 12, ret.Drivers[0].TotalLaps)
	assert.Equal(t, model.CompoundSoft, ret.Drivers[0].Stints[0].Compound)
	assert.Equal(t, model.CompoundHard, ret.Drivers[0].Stints[1].Compound)
}

func TestAnalysisServiceUnknownRound(t *testing.T) {
	s := NewAnalysisService(setupAnalysisData(t))

	_, err := s.TyreStints(context.Background(),
		model.SessionKey{Season: 2025, Round: 99, Session: RaceSession})
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestAnalysisServiceUnknownSession(t *testing.T) {
	s := NewAnalysisService(setupAnalysisData(t))

	_, err := s.TyreStints(context.Background(),
		model.SessionKey{Season: 2025, Round: 14, Session: "Q"})
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestAnalysisServiceDegradation(t *testing.T) {
	s := NewAnalysisService(setupAnalysisData(t))

	ret, err := s.Degradation(context.Background(),
		model.SessionKey{Season: 2025, Round: 14, Session: RaceSession},
		"HAM", degradation.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, ret.Fits, 2)
	// laps are on an exact line, the fit recovers the slope
	require.True(t, ret.Fits[0].HasFit())
	assert.InDelta(t, 0.1, ret.Fits[0].SlopeSecPerLap.MustGet(), 1e-9)

	_, err = s.Degradation(context.Background(),
		model.SessionKey{Season: 2025, Round: 14, Session: RaceSession},
		"BOT", degradation.DefaultConfig())
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestAnalysisServiceStrategy(t *testing.T) {
	s := NewAnalysisService(setupAnalysisData(t))

	ret, err := s.Strategy(context.Background(), 2025, 14, strategy.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, ret.Drivers, 2)
	assert.Equal(t, []int{6}, ret.Drivers[0].PitLaps)
	require.Len(t, ret.Drivers[0].Stints, 2)
	// slope 0.1 exceeds the 0.06 threshold on both stints
	assert.NotNil(t, ret.Drivers[0].Stints[0].SuggestedWindow)
}

func TestAnalysisServiceTrackEvolution(t *testing.T) {
	s := NewAnalysisService(setupAnalysisData(t))

	ret, err := s.TrackEvolution(context.Background(),
		model.SessionKey{Season: 2025, Round: 14, Session: RaceSession},
		trackevo.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "R", ret.Session)
}

func seasonForecast(round int) *model.RoundForecast {
	return &model.RoundForecast{
		Season: 2025, Round: round, Complete: true,
		Entrants: []model.EntrantForecast{
			{EntrantID: "NOR", Team: "McLaren", PWin: 0.6},
			{EntrantID: "VER", Team: "Red Bull", PWin: 0.4},
		},
	}
}

func setupChampionshipData(t *testing.T) *memRepos {
	t.Helper()
	repos := newMemRepos()
	ctx := context.Background()
	require.NoError(t, repos.Standings().Upsert(ctx, 2025, []model.Entrant{
		{ID: "NOR", Team: "McLaren", AccruedPoints: 300},
		{ID: "VER", Team: "Red Bull", AccruedPoints: 290},
	}))
	for round := 20; round <= 22; round++ {
		require.NoError(t, repos.Forecast().Save(ctx, seasonForecast(round)))
	}
	return repos
}

func TestChampionshipServiceSimulate(t *testing.T) {
	repos := setupChampionshipData(t)
	s := NewChampionshipService(repos, forecast.NewStoreProvider(repos.Forecast()))

	ret, err := s.Simulate(context.Background(), SimulateRequest{
		Season: 2025,
		Mode:   model.SimModeFull,
		Trials: 2000,
		Seed:   7,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ret.RunID)
	assert.Equal(t, 2000, ret.TrialsCompleted)
	assert.Equal(t, []int{20, 21, 22}, ret.RoundsSimulated)
	require.Len(t, ret.Entrants, 2)
}

func TestChampionshipServiceUptoRound(t *testing.T) {
	repos := setupChampionshipData(t)
	s := NewChampionshipService(repos, forecast.NewStoreProvider(repos.Forecast()))

	ret, err := s.Simulate(context.Background(), SimulateRequest{
		Season:    2025,
		Mode:      model.SimModeFast,
		Trials:    200,
		UptoRound: 21,
		Seed:      7,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{20, 21}, ret.RoundsSimulated)
}

func TestChampionshipServiceUnknownSeason(t *testing.T) {
	repos := setupChampionshipData(t)
	s := NewChampionshipService(repos, forecast.NewStoreProvider(repos.Forecast()))

	_, err := s.Simulate(context.Background(), SimulateRequest{Season: 1999})
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestChampionshipServiceNoForecasts(t *testing.T) {
	repos := newMemRepos()
	require.NoError(t, repos.Standings().Upsert(context.Background(), 2025,
		[]model.Entrant{{ID: "NOR"}}))
	s := NewChampionshipService(repos, forecast.NewStoreProvider(repos.Forecast()))

	_, err := s.Simulate(context.Background(), SimulateRequest{Season: 2025})
	assert.ErrorIs(t, err, forecast.ErrUnavailable)
}
