package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pitlap/race-analytics-service-go/pkg/analysis/degradation"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/strategy"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/trackevo"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/service"
	"github.com/pitlap/race-analytics-service-go/pkg/sim/championship"
)

func (s *Server) tyreStints(c echo.Context) error {
	req := &tyreStintsRequest{}
	if err := bindRequest(c, req); err != nil {
		return err
	}
	ret, err := s.analysis.TyreStints(c.Request().Context(), model.SessionKey{
		Season: req.Season, Round: req.Round, Session: req.Session,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ret)
}

func (s *Server) degradation(c echo.Context) error {
	req := &degradationRequest{}
	if err := bindRequest(c, req); err != nil {
		return err
	}
	ret, err := s.analysis.Degradation(c.Request().Context(),
		model.SessionKey{
			Season: req.Season, Round: req.Round, Session: req.Session,
		},
		req.Driver,
		degradation.Config{
			MinSamples:    req.MinLaps,
			QuickQuantile: req.QuickQuantile,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ret)
}

func (s *Server) strategy(c echo.Context) error {
	req := &strategyRequest{}
	if err := bindRequest(c, req); err != nil {
		return err
	}
	ret, err := s.analysis.Strategy(c.Request().Context(),
		req.Season, req.Round,
		strategy.Config{
			DegradationThresholdSecPerLap: req.DegradationThreshold,
			QuickQuantile:                 req.QuickQuantile,
			MinLaps:                       req.MinLaps,
			PitEffectWindowLaps:           req.PitEffectWindowLaps,
			EpsilonS:                      req.EpsilonS,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ret)
}

func (s *Server) trackEvolution(c echo.Context) error {
	req := &trackEvolutionRequest{}
	if err := bindRequest(c, req); err != nil {
		return err
	}
	ret, err := s.analysis.TrackEvolution(c.Request().Context(),
		model.SessionKey{
			Season: req.Season, Round: req.Round, Session: req.Session,
		},
		trackevo.Config{
			BucketLaps:       req.BucketLaps,
			QuickQuantile:    req.QuickQuantile,
			MinLapsPerBucket: trackevo.DefaultConfig().MinLapsPerBucket,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ret)
}

func (s *Server) simulate(c echo.Context) error {
	req := &simulateRequest{}
	if err := bindRequest(c, req); err != nil {
		return err
	}
	ret, err := s.champ.Simulate(c.Request().Context(), service.SimulateRequest{
		Season:    req.Season,
		Mode:      model.SimMode(req.Mode),
		Trials:    req.Sims,
		UptoRound: req.UptoRound,
		Seed:      req.Seed,
	})
	if err != nil {
		var timeoutErr *championship.TimeoutError
		if errors.As(err, &timeoutErr) && ret != nil {
			// the partial projection is still worth returning
			return c.JSON(http.StatusGatewayTimeout, map[string]any{
				"error":            err.Error(),
				"trials_completed": timeoutErr.Completed,
				"projection":       ret,
			})
		}
		return err
	}
	return c.JSON(http.StatusOK, ret)
}
