package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/teemow/agendabot/migrations"
)

// SQLite is a Store backed by a local SQLite database file.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLite opens the SQLite database at databasePath.
func NewSQLite(ctx context.Context, databasePath string, logger *slog.Logger) (*SQLite, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_pragma=busy_timeout=10000&_pragma=journal_mode=WAL&_pragma=foreign_keys=ON", dsn, sep)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLite{
		db:     db,
		logger: logger.With("component", "store_sqlite"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLite) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded SQLite migrations.
func (s *SQLite) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrations.SQLite, "sqlite")
	if err != nil {
		return fmt.Errorf("open sqlite migrations: %w", err)
	}
	return applyMigrations(sub, func(name, query string) error {
		s.logger.Debug("applying migration", "file", name)
		_, err := s.db.ExecContext(ctx, query)
		return err
	})
}

func (s *SQLite) GetBusinessConfig(ctx context.Context, businessID string) (*BusinessConfig, error) {
	const q = `
SELECT id, business_name, google_calendar_enabled,
       COALESCE(google_refresh_token, ''), COALESCE(google_access_token, ''), google_token_expiry,
       COALESCE(google_calendar_id, ''), google_calendar_needs_reauth,
       COALESCE(openai_assistant_id, ''), google_calendar_updated_at
FROM business_config
WHERE id = ?
LIMIT 1;
`
	var c BusinessConfig
	err := s.db.QueryRowContext(ctx, q, businessID).Scan(
		&c.ID, &c.Name, &c.CalendarEnabled,
		&c.RefreshToken, &c.AccessToken, &c.TokenExpiry,
		&c.CalendarID, &c.NeedsReauth,
		&c.AssistantID, &c.CalendarUpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get business config: %w", err)
	}
	return &c, nil
}

func (s *SQLite) UpsertBusinessConfig(ctx context.Context, c BusinessConfig) error {
	const q = `
INSERT INTO business_config (id, business_name, google_calendar_enabled, google_refresh_token,
    google_access_token, google_token_expiry, google_calendar_id, google_calendar_needs_reauth,
    openai_assistant_id, google_calendar_updated_at)
VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, NULLIF(?, ''), ?, NULLIF(?, ''), ?)
ON CONFLICT (id) DO UPDATE SET
    business_name = excluded.business_name,
    google_calendar_enabled = excluded.google_calendar_enabled,
    google_refresh_token = excluded.google_refresh_token,
    google_access_token = excluded.google_access_token,
    google_token_expiry = excluded.google_token_expiry,
    google_calendar_id = excluded.google_calendar_id,
    google_calendar_needs_reauth = excluded.google_calendar_needs_reauth,
    openai_assistant_id = excluded.openai_assistant_id,
    google_calendar_updated_at = excluded.google_calendar_updated_at;
`
	_, err := s.db.ExecContext(ctx, q,
		c.ID, c.Name, c.CalendarEnabled, c.RefreshToken,
		c.AccessToken, c.TokenExpiry, c.CalendarID, c.NeedsReauth,
		c.AssistantID, s.now(),
	)
	if err != nil {
		return fmt.Errorf("upsert business config: %w", err)
	}
	return nil
}

func (s *SQLite) MarkCalendarNeedsReauth(ctx context.Context, businessID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE business_config SET google_calendar_needs_reauth = 1, google_calendar_updated_at = ? WHERE id = ?`,
		at.UTC(), businessID)
	if err != nil {
		return fmt.Errorf("mark calendar needs reauth: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) GetBusinessHours(ctx context.Context, businessID string) (*BusinessHours, error) {
	const q = `
SELECT business_id, hours, allow_overlapping, max_overlapping, updated_at
FROM business_hours
WHERE business_id = ?;
`
	var (
		h   BusinessHours
		raw string
	)
	err := s.db.QueryRowContext(ctx, q, businessID).Scan(&h.BusinessID, &raw, &h.AllowOverlapping, &h.MaxOverlapping, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get business hours: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &h.Hours); err != nil {
		return nil, fmt.Errorf("decode business hours: %w", err)
	}
	return &h, nil
}

func (s *SQLite) SaveBusinessHours(ctx context.Context, h BusinessHours) (*BusinessHours, error) {
	raw, err := json.Marshal(h.Hours)
	if err != nil {
		return nil, fmt.Errorf("encode business hours: %w", err)
	}
	h.UpdatedAt = s.now()
	const q = `
INSERT INTO business_hours (business_id, hours, allow_overlapping, max_overlapping, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (business_id) DO UPDATE SET
    hours = excluded.hours,
    allow_overlapping = excluded.allow_overlapping,
    max_overlapping = excluded.max_overlapping,
    updated_at = excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, q, h.BusinessID, string(raw), h.AllowOverlapping, h.MaxOverlapping, h.UpdatedAt); err != nil {
		return nil, fmt.Errorf("save business hours: %w", err)
	}
	return &h, nil
}

func (s *SQLite) ListAppointmentTypes(ctx context.Context, businessID string) ([]AppointmentType, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, business_id, name, duration, created_at, updated_at
FROM appointment_types
WHERE business_id = ?
ORDER BY created_at ASC, rowid ASC;`, businessID)
	if err != nil {
		return nil, fmt.Errorf("list appointment types: %w", err)
	}
	defer rows.Close()

	var types []AppointmentType
	for rows.Next() {
		var t AppointmentType
		if err := rows.Scan(&t.ID, &t.BusinessID, &t.Name, &t.Duration, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointment types: %w", err)
	}
	return types, nil
}

func (s *SQLite) GetAppointmentType(ctx context.Context, businessID, id string) (*AppointmentType, error) {
	var t AppointmentType
	err := s.db.QueryRowContext(ctx, `
SELECT id, business_id, name, duration, created_at, updated_at
FROM appointment_types
WHERE id = ? AND business_id = ?;`, id, businessID).Scan(&t.ID, &t.BusinessID, &t.Name, &t.Duration, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment type: %w", err)
	}
	return &t, nil
}

func (s *SQLite) SaveAppointmentType(ctx context.Context, t AppointmentType) (*AppointmentType, error) {
	now := s.now()
	if t.ID != "" {
		existing, err := s.GetAppointmentType(ctx, t.BusinessID, t.ID)
		if err != nil {
			return nil, err
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE appointment_types SET name = ?, duration = ?, updated_at = ? WHERE id = ? AND business_id = ?`,
			t.Name, t.Duration, now, t.ID, t.BusinessID); err != nil {
			return nil, fmt.Errorf("update appointment type: %w", err)
		}
		t.CreatedAt = existing.CreatedAt
		t.UpdatedAt = now
		return &t, nil
	}

	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO appointment_types (id, business_id, name, duration, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.BusinessID, t.Name, t.Duration, t.CreatedAt, t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert appointment type: %w", err)
	}
	return &t, nil
}

func (s *SQLite) DeleteAppointmentType(ctx context.Context, businessID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM appointment_types WHERE id = ? AND business_id = ?`, id, businessID)
	if err != nil {
		return fmt.Errorf("delete appointment type: %w", err)
	}
	return requireAffected(res)
}

const sqliteEventColumns = `id, business_id, event_id, customer_phone, customer_name, event_date, event_time,
       appointment_type_id, duration, canceled, canceled_at, simulation, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEvent(row rowScanner) (*CalendarEvent, error) {
	var ev CalendarEvent
	err := row.Scan(&ev.ID, &ev.BusinessID, &ev.EventID, &ev.CustomerPhone, &ev.CustomerName,
		&ev.EventDate, &ev.EventTime, &ev.AppointmentTypeID, &ev.Duration,
		&ev.Canceled, &ev.CanceledAt, &ev.Simulation, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *SQLite) InsertCalendarEvent(ctx context.Context, ev CalendarEvent) (*CalendarEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO calendar_events (id, business_id, event_id, customer_phone, customer_name, event_date,
    event_time, appointment_type_id, duration, simulation, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		ev.ID, ev.BusinessID, ev.EventID, ev.CustomerPhone, ev.CustomerName, ev.EventDate,
		ev.EventTime, ev.AppointmentTypeID, ev.Duration, ev.Simulation, ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}
	return &ev, nil
}

func (s *SQLite) GetCalendarEvent(ctx context.Context, businessID, id string) (*CalendarEvent, error) {
	q := `SELECT ` + sqliteEventColumns + ` FROM calendar_events WHERE id = ? AND business_id = ?;`
	ev, err := scanSQLiteEvent(s.db.QueryRowContext(ctx, q, id, businessID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return ev, nil
}

func (s *SQLite) FindCalendarEventByExternalID(ctx context.Context, businessID, eventID string) (*CalendarEvent, error) {
	q := `SELECT ` + sqliteEventColumns + ` FROM calendar_events WHERE event_id = ? AND business_id = ? ORDER BY created_at DESC LIMIT 1;`
	ev, err := scanSQLiteEvent(s.db.QueryRowContext(ctx, q, eventID, businessID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find calendar event: %w", err)
	}
	return ev, nil
}

func (s *SQLite) CancelCalendarEvent(ctx context.Context, businessID, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE calendar_events SET canceled = 1, canceled_at = ? WHERE id = ? AND business_id = ?`,
		at.UTC(), id, businessID)
	if err != nil {
		return fmt.Errorf("cancel calendar event: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) DeleteCalendarEvent(ctx context.Context, businessID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ? AND business_id = ?`, id, businessID)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) ListActiveCalendarEvents(ctx context.Context, businessID, phone string) ([]CalendarEvent, error) {
	q := `SELECT ` + sqliteEventColumns + `
FROM calendar_events
WHERE business_id = ? AND customer_phone = ? AND canceled = 0
ORDER BY event_date ASC, event_time ASC;`
	rows, err := s.db.QueryContext(ctx, q, businessID, phone)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	var events []CalendarEvent
	for rows.Next() {
		ev, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar events: %w", err)
	}
	return events, nil
}

func (s *SQLite) ListActiveCalendarEventsBetween(ctx context.Context, businessID, fromDate, toDate string) ([]CalendarEvent, error) {
	q := `SELECT ` + sqliteEventColumns + `
FROM calendar_events
WHERE business_id = ? AND event_date >= ? AND event_date <= ? AND canceled = 0
ORDER BY event_date ASC, event_time ASC;`
	rows, err := s.db.QueryContext(ctx, q, businessID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list calendar events by date: %w", err)
	}
	defer rows.Close()

	var events []CalendarEvent
	for rows.Next() {
		ev, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar events: %w", err)
	}
	return events, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
