package championship

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

func threeEntrants() []model.Entrant {
	return []model.Entrant{
		{ID: "LEC", Team: "Ferrari", AccruedPoints: 100},
		{ID: "NOR", Team: "McLaren", AccruedPoints: 150},
		{ID: "VER", Team: "Red Bull", AccruedPoints: 140},
	}
}

func skewedRounds(n int) []RoundInput {
	ret := make([]RoundInput, 0, n)
	for i := 0; i < n; i++ {
		ret = append(ret, RoundInput{
			Round: 20 + i,
			Forecast: &model.RoundForecast{
				Season: 2025, Round: 20 + i, Complete: true,
				Entrants: []model.EntrantForecast{
					{EntrantID: "LEC", Team: "Ferrari", PWin: 0.1},
					{EntrantID: "NOR", Team: "McLaren", PWin: 0.6},
					{EntrantID: "VER", Team: "Red Bull", PWin: 0.3},
				},
			},
		})
	}
	return ret
}

func baseParams() Params {
	return Params{
		Season:   2025,
		Entrants: threeEntrants(),
		Rounds:   skewedRounds(3),
		Mode:     model.SimModeFull,
		Trials:   2000,
		Seed:     42,
	}
}

func TestRunDeterministicForFixedSeed(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()

	first, err := s.Run(ctx, baseParams())
	require.NoError(t, err)
	second, err := s.Run(ctx, baseParams())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different projections (-first +second):\n%s", diff)
	}
}

func TestRunDeterministicAcrossWorkerCounts(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()

	single := baseParams()
	single.Workers = 1
	many := baseParams()
	many.Workers = 8

	got1, err := s.Run(ctx, single)
	require.NoError(t, err)
	got8, err := s.Run(ctx, many)
	require.NoError(t, err)

	if diff := cmp.Diff(got1, got8); diff != "" {
		t.Errorf("worker count changed results (-1 +8):\n%s", diff)
	}
}

func TestRunTitleProbsSumToOne(t *testing.T) {
	s := NewSimulator()
	got, err := s.Run(context.Background(), baseParams())
	require.NoError(t, err)

	sum := 0.0
	for _, e := range got.Entrants {
		sum += e.TitleProb
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, 2000, got.TrialsCompleted)
	assert.False(t, got.Truncated)
}

func TestRunConvergenceKeepsRanking(t *testing.T) {
	s := NewSimulator()
	ctx := context.Background()

	small := baseParams()
	small.Trials = 50
	large := baseParams()
	large.Trials = 5000

	gotSmall, err := s.Run(ctx, small)
	require.NoError(t, err)
	gotLarge, err := s.Run(ctx, large)
	require.NoError(t, err)

	// NOR leads on points and carries the highest win probability; with the
	// skewed input the ranking holds at both trial counts
	top := func(p *model.ChampionshipProjection) string {
		best := p.Entrants[0]
		for _, e := range p.Entrants[1:] {
			if e.TitleProb > best.TitleProb {
				best = e
			}
		}
		return best.EntrantID
	}
	assert.Equal(t, "NOR", top(gotSmall))
	assert.Equal(t, "NOR", top(gotLarge))

	// expected points stay close to each other as trials grow
	for i := range gotSmall.Entrants {
		assert.InDelta(t,
			gotLarge.Entrants[i].ExpectedPoints,
			gotSmall.Entrants[i].ExpectedPoints, 10.0)
	}
}

func TestRunExpectedPointsIncludeAccrued(t *testing.T) {
	s := NewSimulator()
	got, err := s.Run(context.Background(), baseParams())
	require.NoError(t, err)

	for i, e := range got.Entrants {
		acc := threeEntrants()[i].AccruedPoints
		assert.GreaterOrEqual(t, e.ExpectedPoints, acc,
			"%s cannot project below already scored points", e.EntrantID)
		// 3 rounds with at most 25 points each
		assert.LessOrEqual(t, e.ExpectedPoints, acc+75)
	}
}

func TestRunFastModeCapsTrials(t *testing.T) {
	s := NewSimulator(WithTrialCaps(100, 100000))
	p := baseParams()
	p.Mode = model.SimModeFast
	p.Trials = 5000

	got, err := s.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 5000, got.TrialsRequested)
	assert.Equal(t, 100, got.TrialsCompleted)
	assert.False(t, got.Truncated)
}

func TestRunDeadlineTruncates(t *testing.T) {
	// a big field over a full season so the deadline hits mid-run
	entrants := make([]model.Entrant, 0, 20)
	forecast := make([]model.EntrantForecast, 0, 20)
	for i := 0; i < 20; i++ {
		id := string(rune('A' + i))
		entrants = append(entrants, model.Entrant{ID: id})
		forecast = append(forecast, model.EntrantForecast{EntrantID: id, PWin: 0.05})
	}
	rounds := make([]RoundInput, 0, 24)
	for r := 1; r <= 24; r++ {
		rounds = append(rounds, RoundInput{
			Round: r,
			Forecast: &model.RoundForecast{
				Season: 2025, Round: r, Complete: true, Entrants: forecast,
			},
		})
	}
	s := NewSimulator(WithTrialCaps(1000, 10000000))
	p := Params{
		Season: 2025, Entrants: entrants, Rounds: rounds,
		Mode: model.SimModeFull, Trials: 10000000, Seed: 1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	got, err := s.Run(ctx, p)
	require.Error(t, err)
	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	require.NotNil(t, got)
	assert.True(t, got.Truncated)
	assert.Equal(t, te.Completed, got.TrialsCompleted)
	assert.Less(t, got.TrialsCompleted, 10000000)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRunSeedZeroDrawsAndReportsSeed(t *testing.T) {
	s := NewSimulator()
	p := baseParams()
	p.Seed = 0
	p.Trials = 10

	got, err := s.Run(context.Background(), p)
	require.NoError(t, err)
	assert.NotZero(t, got.Seed)
}

func TestRunRejectsInvalidForecast(t *testing.T) {
	s := NewSimulator()
	p := baseParams()
	p.Rounds[0].Forecast.Entrants[0].PWin = math.NaN()

	_, err := s.Run(context.Background(), p)
	assert.Error(t, err)
}

func TestRunRejectsEmptyInput(t *testing.T) {
	s := NewSimulator()

	_, err := s.Run(context.Background(), Params{Rounds: skewedRounds(1)})
	assert.Error(t, err)

	_, err = s.Run(context.Background(), Params{Entrants: threeEntrants()})
	assert.Error(t, err)
}

func TestSampleFinishOrderIsPermutation(t *testing.T) {
	p := baseParams()
	weights := roundWeights(p.Entrants, p.Rounds)

	order := make([]int, len(p.Entrants))
	rng := rand.New(rand.NewPCG(7, 0))
	seen := make(map[int]bool)
	sampleFinishOrder(rng, weights[0], order)
	for _, idx := range order {
		assert.False(t, seen[idx], "entrant sampled twice")
		seen[idx] = true
	}
	assert.Len(t, seen, len(p.Entrants))
}

func TestChampionTieBreak(t *testing.T) {
	names := []string{"BBB", "AAA", "CCC"}

	// equal points: most wins decides
	got := champion(names, []float64{100, 100, 90}, []int{2, 3, 0})
	assert.Equal(t, 1, got)

	// equal points and wins: smallest name decides
	got = champion(names, []float64{100, 100, 100}, []int{1, 1, 1})
	assert.Equal(t, 1, got)
}

func TestRunConstructorProjection(t *testing.T) {
	s := NewSimulator()
	p := baseParams()
	// second Ferrari entrant turns the constructor race around
	p.Entrants = append(p.Entrants,
		model.Entrant{ID: "HAM", Team: "Ferrari", AccruedPoints: 120})
	for i := range p.Rounds {
		p.Rounds[i].Forecast.Entrants = append(p.Rounds[i].Forecast.Entrants,
			model.EntrantForecast{EntrantID: "HAM", Team: "Ferrari", PWin: 0.0})
	}

	got, err := s.Run(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, got.Teams, 3)
	teams := make(map[string]model.TeamProjection, len(got.Teams))
	titleSum := 0.0
	for _, tp := range got.Teams {
		teams[tp.Team] = tp
		titleSum += tp.TitleProb
	}
	assert.InDelta(t, 1.0, titleSum, 1e-9)

	// team expected points are the sum of the members' expected points
	byEntrant := make(map[string]float64)
	for _, e := range got.Entrants {
		byEntrant[e.Team] += e.ExpectedPoints
	}
	for team, tp := range teams {
		assert.InDelta(t, byEntrant[team], tp.ExpectedPoints, 1e-9, team)
	}

	// two Ferrari drivers outscore the single McLaren favourite
	assert.Greater(t,
		teams["Ferrari"].ExpectedPoints, teams["McLaren"].ExpectedPoints)
	assert.Greater(t, teams["Ferrari"].TitleProb, teams["McLaren"].TitleProb)
}
