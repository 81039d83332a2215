package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
)

type (
	HTTPOption   func(*HTTPProvider)
	HTTPProvider struct {
		baseURL string
		client  *http.Client
		l       *log.Logger
	}

	// wire format of the ranking service
	rankingResponse struct {
		Season   int            `json:"season"`
		Round    int            `json:"round"`
		Complete bool           `json:"complete"`
		All      []rankingEntry `json:"all"`
	}
	rankingEntry struct {
		Driver string  `json:"driver"`
		Team   string  `json:"team"`
		PWin   float64 `json:"p_win"`
		PTop3  float64 `json:"p_top3"`
		PPole  float64 `json:"p_pole"`
	}
)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.client = c }
}

// NewHTTPProvider creates a provider backed by the external ranking service.
func NewHTTPProvider(baseURL string, opts ...HTTPOption) *HTTPProvider {
	ret := &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		l:       log.Default().Named("forecast.http"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (p *HTTPProvider) RaceForecast(ctx context.Context, season, round int) (
	*model.RoundForecast, error,
) {
	return p.fetch(ctx, fmt.Sprintf("%s/predict/race/%d/%d", p.baseURL, season, round))
}

func (p *HTTPProvider) QualiForecast(ctx context.Context, season, round int) (
	*model.RoundForecast, error,
) {
	return p.fetch(ctx, fmt.Sprintf("%s/predict/quali/%d/%d", p.baseURL, season, round))
}

func (p *HTTPProvider) fetch(ctx context.Context, url string) (
	*model.RoundForecast, error,
) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: ranking service has no data (%s)", ErrUnavailable, url)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: unexpected status %d: %s",
			ErrUnavailable, resp.StatusCode, body)
	}
	var wire rankingResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: invalid payload: %v", ErrUnavailable, err)
	}

	ret := &model.RoundForecast{
		Season:   wire.Season,
		Round:    wire.Round,
		Complete: wire.Complete,
		Entrants: make([]model.EntrantForecast, 0, len(wire.All)),
	}
	for _, e := range wire.All {
		ret.Entrants = append(ret.Entrants, model.EntrantForecast{
			EntrantID: e.Driver,
			Team:      e.Team,
			PWin:      e.PWin,
			PTop3:     e.PTop3,
			PPole:     e.PPole,
		})
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	p.l.Debug("fetched forecast",
		log.Int("season", ret.Season),
		log.Int("round", ret.Round),
		log.Int("entrants", len(ret.Entrants)))
	return ret, nil
}
