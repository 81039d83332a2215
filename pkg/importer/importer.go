// Package importer reads season data archives (events, laps, standings,
// forecasts) and stores them through the repositories.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/mod/semver"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/api"
)

// FormatMajor is the accepted major version of the archive format.
const FormatMajor = "v1"

type (
	Archive struct {
		FormatVersion string            `json:"format_version"`
		Event         *ArchiveEvent     `json:"event,omitempty"`
		Sessions      []ArchiveSession  `json:"sessions,omitempty"`
		Standings     []ArchiveStanding `json:"standings,omitempty"`
		Forecasts     []ArchiveForecast `json:"forecasts,omitempty"`
	}

	ArchiveEvent struct {
		Season int    `json:"season"`
		Round  int    `json:"round"`
		Name   string `json:"name"`
	}

	ArchiveSession struct {
		Session string          `json:"session"`
		Drivers []ArchiveDriver `json:"drivers"`
	}

	ArchiveDriver struct {
		Driver string       `json:"driver"`
		Laps   []ArchiveLap `json:"laps"`
	}

	ArchiveLap struct {
		Lap      int     `json:"lap"`
		LapTimeS float64 `json:"lap_time_s"`
		Compound string  `json:"compound"`
		PitIn    bool    `json:"pit_in"`
		PitOut   bool    `json:"pit_out"`
	}

	ArchiveStanding struct {
		Season    int     `json:"season"`
		EntrantID string  `json:"entrant_id"`
		Team      string  `json:"team"`
		Points    float64 `json:"points"`
	}

	ArchiveForecast struct {
		Season   int  `json:"season"`
		Round    int  `json:"round"`
		Complete bool `json:"complete"`
		Entrants []struct {
			Driver string  `json:"driver"`
			Team   string  `json:"team"`
			PWin   float64 `json:"p_win"`
			PTop3  float64 `json:"p_top3"`
			PPole  float64 `json:"p_pole"`
		} `json:"entrants"`
	}

	Importer struct {
		repos api.Repositories
		l     *log.Logger
	}
)

var ErrUnsupportedFormat = errors.New("unsupported archive format")

func New(repos api.Repositories) *Importer {
	return &Importer{repos: repos, l: log.Default().Named("importer")}
}

func (i *Importer) ImportFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return i.Import(ctx, f)
}

func (i *Importer) Import(ctx context.Context, r io.Reader) error {
	var archive Archive
	if err := json.NewDecoder(r).Decode(&archive); err != nil {
		return fmt.Errorf("could not parse archive: %w", err)
	}
	if !semver.IsValid(archive.FormatVersion) ||
		semver.Major(archive.FormatVersion) != FormatMajor {
		return fmt.Errorf("%w: %q (want major %s)",
			ErrUnsupportedFormat, archive.FormatVersion, FormatMajor)
	}
	if err := i.importEvent(ctx, &archive); err != nil {
		return err
	}
	if err := i.importStandings(ctx, &archive); err != nil {
		return err
	}
	return i.importForecasts(ctx, &archive)
}

func (i *Importer) importEvent(ctx context.Context, archive *Archive) error {
	if archive.Event == nil {
		if len(archive.Sessions) > 0 {
			return errors.New("archive has sessions but no event")
		}
		return nil
	}
	event, err := i.resolveEvent(ctx, archive.Event)
	if err != nil {
		return err
	}
	for _, session := range archive.Sessions {
		for _, driver := range session.Drivers {
			laps := make([]model.LapRecord, 0, len(driver.Laps))
			for _, l := range driver.Laps {
				laps = append(laps, model.LapRecord{
					Lap:      l.Lap,
					LapTime:  l.LapTimeS,
					Compound: model.NormalizeCompound(l.Compound),
					PitIn:    l.PitIn,
					PitOut:   l.PitOut,
				})
			}
			if err := i.repos.Lap().Save(
				ctx, event.ID, session.Session, driver.Driver, laps); err != nil {
				return err
			}
			i.l.Debug("imported laps",
				log.String("session", session.Session),
				log.String("driver", driver.Driver),
				log.Int("laps", len(laps)))
		}
	}
	return nil
}

func (i *Importer) resolveEvent(
	ctx context.Context, ae *ArchiveEvent,
) (*model.Event, error) {
	event, err := i.repos.Event().LoadBySeasonRound(ctx, ae.Season, ae.Round)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, api.ErrNoRows) {
		return nil, err
	}
	event = &model.Event{Season: ae.Season, Round: ae.Round, Name: ae.Name}
	if err := i.repos.Event().Create(ctx, event); err != nil {
		return nil, err
	}
	i.l.Info("created event",
		log.Int("season", ae.Season),
		log.Int("round", ae.Round),
		log.String("name", ae.Name))
	return event, nil
}

func (i *Importer) importStandings(ctx context.Context, archive *Archive) error {
	if len(archive.Standings) == 0 {
		return nil
	}
	bySeason := map[int][]model.Entrant{}
	for _, s := range archive.Standings {
		bySeason[s.Season] = append(bySeason[s.Season], model.Entrant{
			ID:            s.EntrantID,
			Team:          s.Team,
			AccruedPoints: s.Points,
		})
	}
	for season, entrants := range bySeason {
		if err := i.repos.Standings().Upsert(ctx, season, entrants); err != nil {
			return err
		}
		i.l.Info("imported standings",
			log.Int("season", season), log.Int("entrants", len(entrants)))
	}
	return nil
}

func (i *Importer) importForecasts(ctx context.Context, archive *Archive) error {
	for idx := range archive.Forecasts {
		af := &archive.Forecasts[idx]
		fc := &model.RoundForecast{
			Season:   af.Season,
			Round:    af.Round,
			Complete: af.Complete,
			Entrants: make([]model.EntrantForecast, 0, len(af.Entrants)),
		}
		for _, e := range af.Entrants {
			fc.Entrants = append(fc.Entrants, model.EntrantForecast{
				EntrantID: e.Driver,
				Team:      e.Team,
				PWin:      e.PWin,
				PTop3:     e.PTop3,
				PPole:     e.PPole,
			})
		}
		if err := fc.Validate(); err != nil {
			return fmt.Errorf("forecast season %d round %d: %w",
				af.Season, af.Round, err)
		}
		if err := i.repos.Forecast().Save(ctx, fc); err != nil {
			return err
		}
		i.l.Info("imported forecast",
			log.Int("season", af.Season), log.Int("round", af.Round))
	}
	return nil
}
