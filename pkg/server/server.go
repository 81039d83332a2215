// Package server exposes the analysis and simulation operations over HTTP.
package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/analysis/stint"
	"github.com/pitlap/race-analytics-service-go/pkg/forecast"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
	"github.com/pitlap/race-analytics-service-go/pkg/service"
	"github.com/pitlap/race-analytics-service-go/pkg/sim/championship"
	"github.com/pitlap/race-analytics-service-go/version"
)

type (
	Option func(*Server)

	Server struct {
		echo     *echo.Echo
		analysis *service.AnalysisService
		champ    *service.ChampionshipService
		l        *log.Logger
	}

	errorResponse struct {
		Error string `json:"error"`
		// TrialsCompleted is only set on simulation timeouts.
		TrialsCompleted *int `json:"trials_completed,omitempty"`
	}
)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.l = l }
}

func New(
	analysis *service.AnalysisService,
	champ *service.ChampionshipService,
	opts ...Option,
) *Server {
	ret := &Server{
		analysis: analysis,
		champ:    champ,
		l:        log.Default().Named("server"),
	}
	for _, opt := range opts {
		opt(ret)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ret.errorHandler
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(metricsMiddleware())

	e.GET("/health", ret.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	g := e.Group("/api")
	g.GET("/analysis/tyres/:season/:round/:session", ret.tyreStints)
	g.GET("/analysis/tyre-degradation/:season/:round/:session/:driver",
		ret.degradation)
	g.GET("/analysis/strategy/:season/:round", ret.strategy)
	g.GET("/analysis/track-evolution/:season/:round/:session", ret.trackEvolution)
	g.GET("/championship/simulate/:season", ret.simulate)

	ret.echo = e
	return ret
}

// Handler returns the http.Handler; the caller wraps it with cors/h2c.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// errorHandler maps domain errors to status codes: unknown identifiers 404,
// invalid input 400, missing upstream data 502, simulation timeout 504.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var (
		httpErr    *echo.HTTPError
		timeoutErr *championship.TimeoutError
	)
	switch {
	case errors.As(err, &httpErr):
		_ = c.JSON(httpErr.Code,
			errorResponse{Error: message(httpErr)})
	case errors.As(err, &timeoutErr):
		_ = c.JSON(http.StatusGatewayTimeout, errorResponse{
			Error:           err.Error(),
			TrialsCompleted: &timeoutErr.Completed,
		})
	case errors.Is(err, api.ErrNoRows):
		_ = c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, stint.ErrNonContiguousLaps):
		_ = c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, forecast.ErrUnavailable):
		_ = c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.l.Error("request failed",
			log.String("path", c.Request().URL.Path),
			log.ErrorField(err))
		_ = c.JSON(http.StatusInternalServerError,
			errorResponse{Error: "internal error"})
	}
}

func message(httpErr *echo.HTTPError) string {
	if msg, ok := httpErr.Message.(string); ok {
		return msg
	}
	return http.StatusText(httpErr.Code)
}
