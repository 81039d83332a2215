package model

import (
	"fmt"
	"math"
)

// WinProbSumTolerance is the accepted numeric residual when the win
// probabilities of a complete field are checked against 1.
const WinProbSumTolerance = 1e-6

// EntrantForecast holds the probability estimates for one entrant produced by
// the external ranking service. Consumed read-only.
type EntrantForecast struct {
	EntrantID string  `json:"entrant_id"`
	Team      string  `json:"team"`
	PWin      float64 `json:"p_win"`
	PTop3     float64 `json:"p_top3"`
	PPole     float64 `json:"p_pole"` // qualifying only
}

// RoundForecast groups the entrant forecasts of one round. Complete marks a
// fully enumerated field (as opposed to a top-k subset).
type RoundForecast struct {
	Season   int               `json:"season"`
	Round    int               `json:"round"`
	Complete bool              `json:"complete"`
	Entrants []EntrantForecast `json:"entrants"`
}

// Validate checks probability ranges and, for a complete field, that the win
// probabilities sum to 1 within tolerance.
func (rf *RoundForecast) Validate() error {
	if len(rf.Entrants) == 0 {
		return fmt.Errorf("round %d: forecast contains no entrants", rf.Round)
	}
	sum := 0.0
	for i := range rf.Entrants {
		e := &rf.Entrants[i]
		for _, p := range []struct {
			name string
			val  float64
		}{
			{"p_win", e.PWin}, {"p_top3", e.PTop3}, {"p_pole", e.PPole},
		} {
			if p.val < 0 || p.val > 1 || math.IsNaN(p.val) {
				return fmt.Errorf("round %d entrant %s: %s=%v out of [0,1]",
					rf.Round, e.EntrantID, p.name, p.val)
			}
		}
		sum += e.PWin
	}
	if rf.Complete {
		tol := WinProbSumTolerance * float64(len(rf.Entrants))
		if math.Abs(sum-1) > tol {
			return fmt.Errorf("round %d: win probabilities sum to %v, want 1±%v",
				rf.Round, sum, tol)
		}
	}
	return nil
}
