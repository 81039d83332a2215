//nolint:whitespace // can't make both editor and linter happy
package event

import (
	"context"
	"fmt"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository"
)

var selector = `select id, season, round, name from event`

func Create(ctx context.Context, conn repository.Querier, event *model.Event) error {
	row := conn.QueryRow(ctx, `
	insert into event (season, round, name) values ($1,$2,$3)
	returning id
		`,
		event.Season, event.Round, event.Name,
	)
	return row.Scan(&event.ID)
}

func LoadBySeasonRound(
	ctx context.Context, conn repository.Querier, season, round int,
) (*model.Event, error) {
	row := conn.QueryRow(ctx,
		fmt.Sprintf("%s where season=$1 and round=$2", selector), season, round)
	var item model.Event
	if err := row.Scan(&item.ID, &item.Season, &item.Round, &item.Name); err != nil {
		return nil, err
	}
	return &item, nil
}

func LoadBySeason(
	ctx context.Context, conn repository.Querier, season int,
) ([]*model.Event, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where season=$1 order by round asc", selector), season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.Event, 0)
	for rows.Next() {
		var item model.Event
		if err := rows.Scan(&item.ID, &item.Season, &item.Round, &item.Name); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, nil
}

// deletes an entry from the database, returns number of rows deleted.
func DeleteByID(ctx context.Context, conn repository.Querier, id int) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from event where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
