package state

import (
	"database/sql"
	"fmt"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var ev Event
	var description, location sql.NullString
	var allDay int64
	if err := row.Scan(&ev.ID, &ev.Title, &description, &ev.StartTime, &ev.EndTime, &allDay, &location, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Description = description.String
	ev.Location = location.String
	ev.AllDay = allDay != 0
	return ev, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
