// Package championship projects season outcomes by Monte Carlo simulation of
// the remaining rounds, driven by externally supplied win probabilities.
package championship

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

// weightFloor keeps every entrant samplable even when the forecast assigns a
// zero (or missing) win probability.
const weightFloor = 1e-6

type (
	// RoundInput is one remaining round with its forecast.
	RoundInput struct {
		Round    int
		Forecast *model.RoundForecast
	}

	Params struct {
		Season   int
		Entrants []model.Entrant
		Rounds   []RoundInput
		Scheme   model.PointsScheme
		Mode     model.SimMode
		Trials   int
		// Seed 0 draws a random seed; the seed actually used is reported.
		Seed uint64
		// Workers 0 uses GOMAXPROCS.
		Workers int
	}

	Option    func(*Simulator)
	Simulator struct {
		fastCap       int
		fullCap       int
		defaultTrials int
		l             *log.Logger
	}
)

// TimeoutError reports a simulation cut short by the deadline. It carries the
// number of trials that completed; the projection aggregates exactly those.
type TimeoutError struct {
	Completed int
	cause     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("simulation cancelled after %d trials: %v", e.Completed, e.cause)
}

func (e *TimeoutError) Unwrap() error { return e.cause }

func WithTrialCaps(fast, full int) Option {
	return func(s *Simulator) {
		s.fastCap = fast
		s.fullCap = full
	}
}

func WithDefaultTrials(n int) Option {
	return func(s *Simulator) { s.defaultTrials = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Simulator) { s.l = l }
}

func NewSimulator(opts ...Option) *Simulator {
	ret := &Simulator{
		fastCap:       1000,
		fullCap:       100000,
		defaultTrials: 500,
		l:             log.Default().Named("sim.championship"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run executes the simulation. Trials are independent: trial t draws from its
// own PCG stream seeded by (seed, t), so a fixed seed yields identical results
// regardless of worker count. When the context deadline expires the partial
// projection is returned together with a *TimeoutError.
//
//nolint:funlen // core algorithm
func (s *Simulator) Run(ctx context.Context, p Params) (
	*model.ChampionshipProjection, error,
) {
	if len(p.Entrants) == 0 {
		return nil, errors.New("no entrants to simulate")
	}
	if len(p.Rounds) == 0 {
		return nil, errors.New("no remaining rounds to simulate")
	}
	for _, r := range p.Rounds {
		if r.Forecast == nil {
			return nil, fmt.Errorf("round %d: no forecast available", r.Round)
		}
		if err := r.Forecast.Validate(); err != nil {
			return nil, fmt.Errorf("invalid forecast: %w", err)
		}
	}
	scheme := p.Scheme
	if len(scheme) == 0 {
		scheme = model.DefaultPointsScheme
	}
	requested := p.Trials
	if requested <= 0 {
		requested = s.defaultTrials
	}
	trials := requested
	trialCap := s.fullCap
	if p.Mode == model.SimModeFast {
		trialCap = s.fastCap
	}
	if trials > trialCap {
		trials = trialCap
	}
	seed := p.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > trials {
		workers = trials
	}

	weights := roundWeights(p.Entrants, p.Rounds)
	ids := lo.Map(p.Entrants, func(e model.Entrant, _ int) string { return e.ID })
	teams, teamIdx := teamIndex(p.Entrants)
	s.l.Debug("starting simulation",
		log.Int("season", p.Season),
		log.Int("trials", trials),
		log.Int("rounds", len(p.Rounds)),
		log.Int("workers", workers),
		log.Uint64("seed", seed))

	chunks := chunkRanges(trials, workers)
	results := make([]*aggregate, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			agg := newAggregate(len(p.Entrants), len(teams))
			for t := c.from; t < c.to; t++ {
				if gctx.Err() != nil {
					break
				}
				runTrial(seed, uint64(t),
					p.Entrants, ids, teams, teamIdx, p.Rounds, weights, scheme, agg)
			}
			results[i] = agg
			return nil
		})
	}
	//nolint:errcheck // workers only stop on context cancellation
	g.Wait()

	// deterministic reduction in chunk order
	total := newAggregate(len(p.Entrants), len(teams))
	for _, agg := range results {
		total.merge(agg)
	}

	ret := &model.ChampionshipProjection{
		Season:          p.Season,
		Mode:            p.Mode,
		TrialsRequested: requested,
		TrialsCompleted: total.trials,
		Truncated:       total.trials < trials,
		Seed:            seed,
		RoundsSimulated: lo.Map(p.Rounds, func(r RoundInput, _ int) int { return r.Round }),
		Entrants:        make([]model.EntrantProjection, 0, len(p.Entrants)),
		Teams:           make([]model.TeamProjection, 0, len(teams)),
	}
	for i, e := range p.Entrants {
		proj := model.EntrantProjection{EntrantID: e.ID, Team: e.Team}
		if total.trials > 0 {
			proj.ExpectedPoints = total.points[i] / float64(total.trials)
			proj.TitleProb = float64(total.titles[i]) / float64(total.trials)
		}
		ret.Entrants = append(ret.Entrants, proj)
	}
	for i, team := range teams {
		proj := model.TeamProjection{Team: team}
		if total.trials > 0 {
			proj.ExpectedPoints = total.teamPoints[i] / float64(total.trials)
			proj.TitleProb = float64(total.teamTitles[i]) / float64(total.trials)
		}
		ret.Teams = append(ret.Teams, proj)
	}
	if ret.Truncated {
		return ret, &TimeoutError{Completed: total.trials, cause: ctx.Err()}
	}
	return ret, nil
}

type chunk struct{ from, to int }

func chunkRanges(trials, workers int) []chunk {
	size := (trials + workers - 1) / workers
	ret := make([]chunk, 0, workers)
	for from := 0; from < trials; from += size {
		to := from + size
		if to > trials {
			to = trials
		}
		ret = append(ret, chunk{from: from, to: to})
	}
	return ret
}

type aggregate struct {
	trials     int
	points     []float64
	titles     []int
	teamPoints []float64
	teamTitles []int
}

func newAggregate(entrants, teams int) *aggregate {
	return &aggregate{
		points:     make([]float64, entrants),
		titles:     make([]int, entrants),
		teamPoints: make([]float64, teams),
		teamTitles: make([]int, teams),
	}
}

func (a *aggregate) merge(other *aggregate) {
	a.trials += other.trials
	for i := range other.points {
		a.points[i] += other.points[i]
	}
	for i := range other.titles {
		a.titles[i] += other.titles[i]
	}
	for i := range other.teamPoints {
		a.teamPoints[i] += other.teamPoints[i]
	}
	for i := range other.teamTitles {
		a.teamTitles[i] += other.teamTitles[i]
	}
}

// teamIndex lists the distinct teams in entrant order and maps each entrant
// to its team's slot.
func teamIndex(entrants []model.Entrant) (teams []string, teamIdx []int) {
	slots := make(map[string]int)
	teamIdx = make([]int, len(entrants))
	for i, e := range entrants {
		slot, ok := slots[e.Team]
		if !ok {
			slot = len(teams)
			slots[e.Team] = slot
			teams = append(teams, e.Team)
		}
		teamIdx[i] = slot
	}
	return teams, teamIdx
}

// roundWeights builds the sampling weights per round, aligned with the
// entrant list. Entrants missing from a top-k forecast get the floor weight;
// the weights are normalized to sum to 1.
func roundWeights(entrants []model.Entrant, rounds []RoundInput) [][]float64 {
	index := make(map[string]int, len(entrants))
	for i, e := range entrants {
		index[e.ID] = i
	}
	ret := make([][]float64, len(rounds))
	for r, round := range rounds {
		w := make([]float64, len(entrants))
		for i := range w {
			w[i] = weightFloor
		}
		for _, ef := range round.Forecast.Entrants {
			if i, ok := index[ef.EntrantID]; ok && ef.PWin > weightFloor {
				w[i] = ef.PWin
			}
		}
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		for i := range w {
			w[i] /= sum
		}
		ret[r] = w
	}
	return ret
}

// runTrial simulates one completion of the remaining season and adds the
// driver and constructor outcomes to agg.
func runTrial(
	seed, trial uint64,
	entrants []model.Entrant,
	ids, teams []string,
	teamIdx []int,
	rounds []RoundInput,
	weights [][]float64,
	scheme model.PointsScheme,
	agg *aggregate,
) {
	rng := rand.New(rand.NewPCG(seed, trial))
	points := make([]float64, len(entrants))
	wins := make([]int, len(entrants))
	for i, e := range entrants {
		points[i] = e.AccruedPoints
	}
	order := make([]int, len(entrants))
	for r := range rounds {
		sampleFinishOrder(rng, weights[r], order)
		wins[order[0]]++
		for pos, entrant := range order {
			points[entrant] += float64(scheme.PointsFor(pos + 1))
		}
	}
	teamPoints := make([]float64, len(teams))
	teamWins := make([]int, len(teams))
	for i := range entrants {
		teamPoints[teamIdx[i]] += points[i]
		teamWins[teamIdx[i]] += wins[i]
	}
	agg.titles[champion(ids, points, wins)]++
	agg.teamTitles[champion(teams, teamPoints, teamWins)]++
	agg.trials++
	for i := range points {
		agg.points[i] += points[i]
	}
	for i := range teamPoints {
		agg.teamPoints[i] += teamPoints[i]
	}
}

// sampleFinishOrder draws a full finishing order without replacement from the
// categorical distribution given by weights. order is filled with entrant
// indices, position 1 first.
func sampleFinishOrder(rng *rand.Rand, weights []float64, order []int) {
	n := len(weights)
	remaining := make([]int, n)
	w := make([]float64, n)
	copy(w, weights)
	total := 0.0
	for i := range remaining {
		remaining[i] = i
		total += w[i]
	}
	for pos := 0; pos < n; pos++ {
		r := rng.Float64() * total
		idx := len(remaining) - 1
		acc := 0.0
		for i := range remaining {
			acc += w[i]
			if r < acc {
				idx = i
				break
			}
		}
		order[pos] = remaining[idx]
		total -= w[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		w = append(w[:idx], w[idx+1:]...)
	}
}

// champion picks the index with the highest cumulative total. Ties are broken
// by most simulated race wins, then by the lexicographically smallest name,
// keeping results independent of iteration order. The same rule decides both
// the driver and the constructor title of a trial.
func champion(names []string, points []float64, wins []int) int {
	best := 0
	for i := 1; i < len(points); i++ {
		switch {
		case points[i] > points[best]:
			best = i
		case points[i] == points[best]:
			if wins[i] > wins[best] ||
				(wins[i] == wins[best] && names[i] < names[best]) {
				best = i
			}
		}
	}
	return best
}
