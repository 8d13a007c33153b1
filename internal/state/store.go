package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrSettingNotFound is returned by ReadSetting when the key has no row.
var ErrSettingNotFound = errors.New("setting not found")

// ErrEventNotFound is returned when an event id has no row.
var ErrEventNotFound = errors.New("event not found")

// calendarIDKey names the setting holding this store's random identity.
const calendarIDKey = "calendar_id"

const eventColumns = `id, title, description, start_time, end_time, all_day, location, created_at, updated_at`

// Store is the only writer of the events and settings tables. Every write
// goes through mu, which is shared with the SQL gateway via WriteLock.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type Event struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	AllDay      bool   `json:"all_day"`
	Location    string `json:"location"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// EventInput carries the fields of a new event. Title, StartTime and
// EndTime are required; InsertEvent does not check them.
type EventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	AllDay      bool   `json:"all_day"`
	Location    string `json:"location"`
}

// WriteLock returns the lock that serializes writes against the store.
func (s *Store) WriteLock() sync.Locker {
	return &s.mu
}

func (s *Store) AllEvents(ctx context.Context) ([]Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time ASC`)
}

// EventsBetween returns events overlapping [startISO, endISO).
func (s *Store) EventsBetween(ctx context.Context, startISO, endISO string) ([]Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events WHERE start_time < ? AND end_time > ? ORDER BY start_time ASC`, endISO, startISO)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *Store) InsertEvent(ctx context.Context, in EventInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `INSERT INTO events (title, description, start_time, end_time, all_day, location) VALUES (?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.StartTime, in.EndTime, boolToInt(in.AllDay), in.Location)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert event id: %w", err)
	}
	return id, nil
}

// UpdateEvent replaces every editable field of event id and bumps
// updated_at.
func (s *Store) UpdateEvent(ctx context.Context, id int64, in EventInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `UPDATE events SET title = ?, description = ?, start_time = ?, end_time = ?, all_day = ?, location = ?, updated_at = datetime('now') WHERE id = ?`,
		in.Title, in.Description, in.StartTime, in.EndTime, boolToInt(in.AllDay), in.Location, id)
	if err != nil {
		return fmt.Errorf("update event %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *Store) GetEvent(ctx context.Context, id int64) (Event, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	if err != nil {
		return Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return ev, nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrEventNotFound, id)
	}
	return nil
}

// DeleteEventsOnDate removes every event whose start_time falls on date
// (YYYY-MM-DD) and reports how many rows went away.
func (s *Store) DeleteEventsOnDate(ctx context.Context, date string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE date(start_time) = date(?)`, date)
	if err != nil {
		return 0, fmt.Errorf("delete events on %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) ReadSetting(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ? LIMIT 1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	if !value.Valid {
		return "", ErrSettingNotFound
	}
	return value.String, nil
}

func (s *Store) WriteSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// CalendarID returns the random identity of this store, creating it on
// first use. Exported event UIDs are scoped by it.
func (s *Store) CalendarID(ctx context.Context) (string, error) {
	id, err := s.ReadSetting(ctx, calendarIDKey)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, ErrSettingNotFound) {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`, calendarIDKey, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("create calendar id: %w", err)
	}
	var value string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, calendarIDKey).Scan(&value); err != nil {
		return "", fmt.Errorf("read calendar id: %w", err)
	}
	return value, nil
}
