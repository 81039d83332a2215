//nolint:whitespace // can't make both editor and linter happy
package forecast

import (
	"context"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository"
)

// Save stores a round forecast, replacing any previous forecast for the
// same season and round.
func Save(
	ctx context.Context, conn repository.Querier, fc *model.RoundForecast,
) error {
	if _, err := conn.Exec(ctx, `
	delete from forecast where season=$1 and round=$2
		`, fc.Season, fc.Round); err != nil {
		return err
	}
	for i := range fc.Entrants {
		e := &fc.Entrants[i]
		if _, err := conn.Exec(ctx, `
	insert into forecast (
		season, round, entrant_id, team, p_win, p_top3, p_pole, complete
	) values ($1,$2,$3,$4,$5,$6,$7,$8)
			`,
			fc.Season, fc.Round, e.EntrantID, e.Team,
			e.PWin, e.PTop3, e.PPole, fc.Complete,
		); err != nil {
			return err
		}
	}
	return nil
}

func LoadByRound(
	ctx context.Context, conn repository.Querier, season, round int,
) (*model.RoundForecast, error) {
	rows, err := conn.Query(ctx, `
	select entrant_id, team, p_win, p_top3, p_pole, complete from forecast
	where season=$1 and round=$2
	order by entrant_id asc
		`, season, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := &model.RoundForecast{Season: season, Round: round}
	for rows.Next() {
		var item model.EntrantForecast
		if err := rows.Scan(
			&item.EntrantID, &item.Team,
			&item.PWin, &item.PTop3, &item.PPole, &ret.Complete,
		); err != nil {
			return nil, err
		}
		ret.Entrants = append(ret.Entrants, item)
	}
	return ret, nil
}

// Rounds returns the rounds of a season for which forecasts are stored.
func Rounds(
	ctx context.Context, conn repository.Querier, season int,
) ([]int, error) {
	rows, err := conn.Query(ctx, `
	select distinct round from forecast where season=$1 order by round asc
		`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]int, 0)
	for rows.Next() {
		var round int
		if err := rows.Scan(&round); err != nil {
			return nil, err
		}
		ret = append(ret, round)
	}
	return ret, nil
}
