// Package forecast declares the boundary to the external ranking service
// that produces per-entrant win/pole probability estimates. The ranking
// model itself lives outside this repo; only its output contract is used.
package forecast

import (
	"context"
	"errors"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

// ErrUnavailable signals that the upstream provider has no data for the
// requested round. It is surfaced, never papered over with fabricated values.
var ErrUnavailable = errors.New("forecast unavailable")

type Provider interface {
	// RaceForecast returns the win/top-3 probabilities for one round.
	RaceForecast(ctx context.Context, season, round int) (*model.RoundForecast, error)
	// QualiForecast returns the pole probabilities for one round.
	QualiForecast(ctx context.Context, season, round int) (*model.RoundForecast, error)
}
