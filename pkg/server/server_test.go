package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitlap/race-analytics-service-go/pkg/forecast"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
	"github.com/pitlap/race-analytics-service-go/pkg/service"
)

type stubRepos struct {
	event     *model.Event
	laps      map[string][]model.LapRecord
	standings []model.Entrant
	forecasts map[int]*model.RoundForecast
}

func (s *stubRepos) Event() api.EventRepository         { return (*stubEventRepo)(s) }
func (s *stubRepos) Lap() api.LapRepository             { return (*stubLapRepo)(s) }
func (s *stubRepos) Standings() api.StandingsRepository { return (*stubStandingsRepo)(s) }
func (s *stubRepos) Forecast() api.ForecastRepository   { return (*stubForecastRepo)(s) }

type stubEventRepo stubRepos

func (s *stubEventRepo) Create(ctx context.Context, event *model.Event) error {
	return nil
}

func (s *stubEventRepo) LoadBySeasonRound(
	ctx context.Context, season, round int,
) (*model.Event, error) {
	if s.event != nil && s.event.Season == season && s.event.Round == round {
		return s.event, nil
	}
	return nil, api.ErrNoRows
}

func (s *stubEventRepo) LoadBySeason(
	ctx context.Context, season int,
) ([]*model.Event, error) {
	return []*model.Event{s.event}, nil
}

func (s *stubEventRepo) DeleteByID(ctx context.Context, id int) (int, error) {
	return 0, nil
}

type stubLapRepo stubRepos

func (s *stubLapRepo) Save(
	ctx context.Context, eventID int, session, driver string, laps []model.LapRecord,
) error {
	return nil
}

func (s *stubLapRepo) LoadByDriver(
	ctx context.Context, eventID int, session, driver string,
) ([]model.LapRecord, error) {
	return s.laps[driver], nil
}

func (s *stubLapRepo) LoadBySession(
	ctx context.Context, eventID int, session string,
) (map[string][]model.LapRecord, error) {
	return s.laps, nil
}

func (s *stubLapRepo) Drivers(
	ctx context.Context, eventID int, session string,
) ([]string, error) {
	return nil, nil
}

func (s *stubLapRepo) DeleteByEventID(ctx context.Context, eventID int) (int, error) {
	return 0, nil
}

type stubStandingsRepo stubRepos

func (s *stubStandingsRepo) Upsert(
	ctx context.Context, season int, entrants []model.Entrant,
) error {
	return nil
}

func (s *stubStandingsRepo) LoadBySeason(
	ctx context.Context, season int,
) ([]model.Entrant, error) {
	return s.standings, nil
}

type stubForecastRepo stubRepos

func (s *stubForecastRepo) Save(ctx context.Context, fc *model.RoundForecast) error {
	return nil
}

func (s *stubForecastRepo) LoadByRound(
	ctx context.Context, season, round int,
) (*model.RoundForecast, error) {
	ret, ok := s.forecasts[round]
	if !ok {
		return nil, api.ErrNoRows
	}
	return ret, nil
}

func (s *stubForecastRepo) Rounds(ctx context.Context, season int) ([]int, error) {
	ret := []int{}
	for round := 20; round <= 22; round++ {
		if _, ok := s.forecasts[round]; ok {
			ret = append(ret, round)
		}
	}
	return ret, nil
}

func testLaps() []model.LapRecord {
	ret := make([]model.LapRecord, 0, 10)
	for i := 1; i <= 10; i++ {
		l := model.LapRecord{
			Lap: i, LapTime: 90.0 + 0.1*float64(i), Compound: model.CompoundMedium,
		}
		if i == 5 {
			l.PitIn = true
		}
		if i == 6 {
			l.PitOut = true
			l.Compound = model.CompoundHard
		}
		if i > 6 {
			l.Compound = model.CompoundHard
		}
		ret = append(ret, l)
	}
	return ret
}

func testServer() *Server {
	repos := &stubRepos{
		event: &model.Event{ID: 1, Season: 2025, Round: 14, Name: "Monza"},
		laps:  map[string][]model.LapRecord{"HAM": testLaps()},
		standings: []model.Entrant{
			{ID: "NOR", Team: "McLaren", AccruedPoints: 300},
			{ID: "VER", Team: "Red Bull", AccruedPoints: 290},
		},
		forecasts: map[int]*model.RoundForecast{
			20: {
				Season: 2025, Round: 20, Complete: true,
				Entrants: []model.EntrantForecast{
					{EntrantID: "NOR", PWin: 0.6},
					{EntrantID: "VER", PWin: 0.4},
				},
			},
		},
	}
	return New(
		service.NewAnalysisService(repos),
		service.NewChampionshipService(repos,
			forecast.NewStoreProvider(repos.Forecast())),
	)
}

func doRequest(t *testing.T, srv *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, http.NoBody)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthRoute(t *testing.T) {
	rec := doRequest(t, testServer(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestTyreStintsRoute(t *testing.T) {
	rec := doRequest(t, testServer(), "/api/analysis/tyres/2025/14/R")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Drivers []struct {
			Driver string            `json:"driver"`
			Stints []json.RawMessage `json:"stints"`
		} `json:"drivers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Drivers, 1)
	assert.Equal(t, "HAM", body.Drivers[0].Driver)
	assert.Len(t, body.Drivers[0].Stints, 2)
}

func TestTyreStintsUnknownRound(t *testing.T) {
	rec := doRequest(t, testServer(), "/api/analysis/tyres/2025/99/R")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDegradationRoute(t *testing.T) {
	rec := doRequest(t, testServer(),
		"/api/analysis/tyre-degradation/2025/14/R/HAM?min_laps=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fits"`)
}

func TestDegradationInvalidQuantile(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "above one", query: "quick_quantile=1.5"},
		{name: "negative", query: "quick_quantile=-0.1"},
		{name: "min laps zero", query: "min_laps=-1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := doRequest(t, testServer(), fmt.Sprintf(
				"/api/analysis/tyre-degradation/2025/14/R/HAM?%s", test.query))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStrategyRoute(t *testing.T) {
	rec := doRequest(t, testServer(), "/api/analysis/strategy/2025/14")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pit_laps":[5]`)
}

func TestTrackEvolutionRoute(t *testing.T) {
	rec := doRequest(t, testServer(),
		"/api/analysis/track-evolution/2025/14/R?bucket_laps=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"buckets"`)
}

func TestSimulateRoute(t *testing.T) {
	rec := doRequest(t, testServer(),
		"/api/championship/simulate/2025?mode=full&sims=500&seed=7")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID           string `json:"run_id"`
		TrialsCompleted int    `json:"trials_completed"`
		Entrants        []struct {
			EntrantID string `json:"entrant_id"`
		} `json:"entrants"`
		Teams []struct {
			Team      string  `json:"team"`
			TitleProb float64 `json:"title_prob"`
		} `json:"teams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.RunID)
	assert.Equal(t, 500, body.TrialsCompleted)
	assert.Len(t, body.Entrants, 2)
	require.Len(t, body.Teams, 2)
	assert.Equal(t, "McLaren", body.Teams[0].Team)
}

func TestSimulateInvalidMode(t *testing.T) {
	rec := doRequest(t, testServer(), "/api/championship/simulate/2025?mode=warp")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulateNoForecasts(t *testing.T) {
	repos := &stubRepos{
		standings: []model.Entrant{{ID: "NOR"}},
		forecasts: map[int]*model.RoundForecast{},
	}
	srv := New(
		service.NewAnalysisService(repos),
		service.NewChampionshipService(repos,
			forecast.NewStoreProvider(repos.Forecast())),
	)
	rec := doRequest(t, srv, "/api/championship/simulate/2025")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	srv := testServer()
	doRequest(t, srv, "/health")
	rec := doRequest(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
