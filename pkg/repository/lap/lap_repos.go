//nolint:whitespace // can't make both editor and linter happy
package lap

import (
	"context"

	"github.com/pitlap/race-analytics-service-go/pkg/model"
	"github.com/pitlap/race-analytics-service-go/pkg/repository"
)

// Save stores all laps of one driver for a session. Existing laps for the
// same event/session/driver are replaced.
func Save(
	ctx context.Context, conn repository.Querier,
	eventID int, session, driver string, laps []model.LapRecord,
) error {
	if _, err := conn.Exec(ctx, `
	delete from lap where event_id=$1 and session=$2 and driver=$3
		`, eventID, session, driver); err != nil {
		return err
	}
	for i := range laps {
		l := &laps[i]
		if _, err := conn.Exec(ctx, `
	insert into lap (
		event_id, session, driver, lap_no, lap_time_s, compound, pit_in, pit_out
	) values ($1,$2,$3,$4,$5,$6,$7,$8)
			`,
			eventID, session, driver,
			l.Lap, l.LapTime, string(l.Compound), l.PitIn, l.PitOut,
		); err != nil {
			return err
		}
	}
	return nil
}

func LoadByDriver(
	ctx context.Context, conn repository.Querier,
	eventID int, session, driver string,
) ([]model.LapRecord, error) {
	rows, err := conn.Query(ctx, `
	select lap_no, lap_time_s, compound, pit_in, pit_out from lap
	where event_id=$1 and session=$2 and driver=$3
	order by lap_no asc
		`, eventID, session, driver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.LapRecord, 0)
	for rows.Next() {
		var item model.LapRecord
		var compound string
		if err := rows.Scan(
			&item.Lap, &item.LapTime, &compound, &item.PitIn, &item.PitOut,
		); err != nil {
			return nil, err
		}
		item.Compound = model.Compound(compound)
		ret = append(ret, item)
	}
	return ret, nil
}

// LoadBySession returns the laps of every driver in the session keyed by
// driver id, each slice ordered by lap number.
func LoadBySession(
	ctx context.Context, conn repository.Querier,
	eventID int, session string,
) (map[string][]model.LapRecord, error) {
	rows, err := conn.Query(ctx, `
	select driver, lap_no, lap_time_s, compound, pit_in, pit_out from lap
	where event_id=$1 and session=$2
	order by driver asc, lap_no asc
		`, eventID, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make(map[string][]model.LapRecord)
	for rows.Next() {
		var driver, compound string
		var item model.LapRecord
		if err := rows.Scan(
			&driver, &item.Lap, &item.LapTime, &compound, &item.PitIn, &item.PitOut,
		); err != nil {
			return nil, err
		}
		item.Compound = model.Compound(compound)
		ret[driver] = append(ret[driver], item)
	}
	return ret, nil
}

func Drivers(
	ctx context.Context, conn repository.Querier,
	eventID int, session string,
) ([]string, error) {
	rows, err := conn.Query(ctx, `
	select distinct driver from lap
	where event_id=$1 and session=$2
	order by driver asc
		`, eventID, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]string, 0)
	for rows.Next() {
		var driver string
		if err := rows.Scan(&driver); err != nil {
			return nil, err
		}
		ret = append(ret, driver)
	}
	return ret, nil
}

func DeleteByEventID(
	ctx context.Context, conn repository.Querier, eventID int,
) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from lap where event_id=$1", eventID)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
