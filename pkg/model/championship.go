package model

type SimMode string

const (
	SimModeFast SimMode = "fast"
	SimModeFull SimMode = "full"
)

// PointsScheme maps a finishing position (1-based) to points. Positions
// beyond the scheme score zero.
type PointsScheme []int

// DefaultPointsScheme is the modern top-10 scheme.
//
//nolint:gochecknoglobals // shared read-only default
var DefaultPointsScheme = PointsScheme{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}

func (p PointsScheme) PointsFor(position int) int {
	if position < 1 || position > len(p) {
		return 0
	}
	return p[position-1]
}

// Entrant is one championship contender with the points already scored in
// completed rounds.
type Entrant struct {
	ID            string  `json:"entrant_id"`
	Team          string  `json:"team"`
	AccruedPoints float64 `json:"accrued_points"`
}

// EntrantProjection is the per-entrant aggregate over all simulation trials.
type EntrantProjection struct {
	EntrantID      string  `json:"entrant_id"`
	Team           string  `json:"team"`
	ExpectedPoints float64 `json:"expected_points"`
	TitleProb      float64 `json:"title_prob"`
}

// TeamProjection is the per-team (constructor) aggregate over all simulation
// trials. Team points are the sum of the members' points.
type TeamProjection struct {
	Team           string  `json:"team"`
	ExpectedPoints float64 `json:"expected_points"`
	TitleProb      float64 `json:"title_prob"`
}

// ChampionshipProjection is the result of one simulation run. TrialsCompleted
// may be lower than TrialsRequested when the deadline expired; Truncated is
// set in that case and aggregates cover completed trials only.
type ChampionshipProjection struct {
	Season          int                 `json:"season"`
	Mode            SimMode             `json:"mode"`
	TrialsRequested int                 `json:"trials_requested"`
	TrialsCompleted int                 `json:"trials_completed"`
	Truncated       bool                `json:"truncated"`
	Seed            uint64              `json:"seed"`
	RoundsSimulated []int               `json:"rounds_simulated"`
	Entrants        []EntrantProjection `json:"entrants"`
	Teams           []TeamProjection    `json:"teams"`
}
