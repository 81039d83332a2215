//nolint:whitespace // can't make both editor and linter happy
package standings

import (
	"context"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository"
)

// Upsert writes the current championship standings for a season.
func Upsert(
	ctx context.Context, conn repository.Querier,
	season int, entrants []model.Entrant,
) error {
	for i := range entrants {
		e := &entrants[i]
		if _, err := conn.Exec(ctx, `
	insert into standings (season, entrant_id, team, points)
	values ($1,$2,$3,$4)
	on conflict (season, entrant_id) do update
	set team=excluded.team, points=excluded.points
			`,
			season, e.ID, e.Team, e.AccruedPoints,
		); err != nil {
			return err
		}
	}
	return nil
}

func LoadBySeason(
	ctx context.Context, conn repository.Querier, season int,
) ([]model.Entrant, error) {
	rows, err := conn.Query(ctx, `
	select entrant_id, team, points from standings
	where season=$1
	order by points desc, entrant_id asc
		`, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.Entrant, 0)
	for rows.Next() {
		var item model.Entrant
		if err := rows.Scan(&item.ID, &item.Team, &item.AccruedPoints); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}
