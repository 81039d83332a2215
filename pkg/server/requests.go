package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

type (
	sessionParams struct {
		Season  int    `param:"season"  validate:"gte=1950"`
		Round   int    `param:"round"   validate:"gte=1"`
		Session string `param:"session" validate:"required"`
	}

	roundParams struct {
		Season int `param:"season" validate:"gte=1950"`
		Round  int `param:"round"  validate:"gte=1"`
	}

	tyreStintsRequest struct {
		sessionParams
	}

	degradationRequest struct {
		sessionParams
		Driver        string  `param:"driver"         validate:"required"`
		MinLaps       int     `query:"min_laps"       default:"3"    validate:"gte=1"`
		QuickQuantile float64 `query:"quick_quantile" default:"0.75" validate:"gt=0,lte=1"`
	}

	strategyRequest struct {
		roundParams
		DegradationThreshold float64 `query:"degradation_threshold_sec_per_lap" default:"0.06" validate:"gt=0"`
		QuickQuantile        float64 `query:"quick_quantile"                    default:"0.75" validate:"gt=0,lte=1"`
		MinLaps              int     `query:"min_laps"                          default:"3"    validate:"gte=1"`
		PitEffectWindowLaps  int     `query:"pit_effect_window_laps"            default:"3"    validate:"gte=1"`
		EpsilonS             float64 `query:"epsilon_s"                         default:"0.05" validate:"gte=0"`
	}

	trackEvolutionRequest struct {
		sessionParams
		BucketLaps    int     `query:"bucket_laps"    default:"5"    validate:"gte=1"`
		QuickQuantile float64 `query:"quick_quantile" default:"0.6"  validate:"gt=0,lte=1"`
	}

	simulateRequest struct {
		Season    int    `param:"season"     validate:"gte=1950"`
		Mode      string `query:"mode"       default:"fast" validate:"oneof=fast full"`
		Sims      int    `query:"sims"       default:"500"  validate:"gte=1"`
		UptoRound int    `query:"upto_round" validate:"gte=0"`
		Seed      uint64 `query:"seed"`
	}
)

// bindRequest binds path and query params, applies defaults and validates.
func bindRequest(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(echo.ErrBadRequest.Code, err.Error())
	}
	if err := defaults.Set(req); err != nil {
		return echo.NewHTTPError(echo.ErrBadRequest.Code, err.Error())
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return echo.NewHTTPError(echo.ErrBadRequest.Code, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s",
				fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s",
				fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s",
				fe.Field(), fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s",
				fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed rule %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
