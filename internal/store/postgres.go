package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teemow/agendabot/migrations"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	schema string
}

// NewPostgres opens a connection pool to databaseURL with the given search_path.
func NewPostgres(ctx context.Context, databaseURL, schema string, logger *slog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	p := &Postgres{
		pool:   pool,
		logger: logger.With("component", "store_postgres"),
		schema: schema,
	}

	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Migrate applies the embedded Postgres migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrations.Postgres, "postgres")
	if err != nil {
		return fmt.Errorf("open postgres migrations: %w", err)
	}
	return applyMigrations(sub, func(name, sql string) error {
		p.logger.Debug("applying migration", "file", name)
		return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, sql)
			return err
		})
	})
}

func (p *Postgres) GetBusinessConfig(ctx context.Context, businessID string) (*BusinessConfig, error) {
	const q = `
SELECT id, business_name, google_calendar_enabled,
       COALESCE(google_refresh_token, ''), COALESCE(google_access_token, ''), google_token_expiry,
       COALESCE(google_calendar_id, ''), google_calendar_needs_reauth,
       COALESCE(openai_assistant_id, ''), google_calendar_updated_at
FROM business_config
WHERE id = $1
LIMIT 1;
`
	var c BusinessConfig
	err := p.pool.QueryRow(ctx, q, businessID).Scan(
		&c.ID, &c.Name, &c.CalendarEnabled,
		&c.RefreshToken, &c.AccessToken, &c.TokenExpiry,
		&c.CalendarID, &c.NeedsReauth,
		&c.AssistantID, &c.CalendarUpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get business config: %w", err)
	}
	return &c, nil
}

func (p *Postgres) UpsertBusinessConfig(ctx context.Context, c BusinessConfig) error {
	const q = `
INSERT INTO business_config (id, business_name, google_calendar_enabled, google_refresh_token,
    google_access_token, google_token_expiry, google_calendar_id, google_calendar_needs_reauth,
    openai_assistant_id, google_calendar_updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8, NULLIF($9, ''), NOW())
ON CONFLICT (id) DO UPDATE SET
    business_name = EXCLUDED.business_name,
    google_calendar_enabled = EXCLUDED.google_calendar_enabled,
    google_refresh_token = EXCLUDED.google_refresh_token,
    google_access_token = EXCLUDED.google_access_token,
    google_token_expiry = EXCLUDED.google_token_expiry,
    google_calendar_id = EXCLUDED.google_calendar_id,
    google_calendar_needs_reauth = EXCLUDED.google_calendar_needs_reauth,
    openai_assistant_id = EXCLUDED.openai_assistant_id,
    google_calendar_updated_at = NOW();
`
	_, err := p.pool.Exec(ctx, q,
		c.ID, c.Name, c.CalendarEnabled, c.RefreshToken,
		c.AccessToken, c.TokenExpiry, c.CalendarID, c.NeedsReauth,
		c.AssistantID,
	)
	if err != nil {
		return fmt.Errorf("upsert business config: %w", err)
	}
	return nil
}

func (p *Postgres) MarkCalendarNeedsReauth(ctx context.Context, businessID string, at time.Time) error {
	const q = `
UPDATE business_config
SET google_calendar_needs_reauth = TRUE, google_calendar_updated_at = $2
WHERE id = $1;
`
	ct, err := p.pool.Exec(ctx, q, businessID, at)
	if err != nil {
		return fmt.Errorf("mark calendar needs reauth: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetBusinessHours(ctx context.Context, businessID string) (*BusinessHours, error) {
	const q = `
SELECT business_id, hours::text, allow_overlapping, max_overlapping, updated_at
FROM business_hours
WHERE business_id = $1;
`
	var (
		h   BusinessHours
		raw string
	)
	err := p.pool.QueryRow(ctx, q, businessID).Scan(&h.BusinessID, &raw, &h.AllowOverlapping, &h.MaxOverlapping, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (p *Postgres) SaveBusinessHours(ctx context.Context, h BusinessHours) (*BusinessHours, error) {
	raw, err := json.Marshal(h.Hours)
	if err != nil {
		return nil, fmt.Errorf("encode business hours: %w", err)
	}
	const q = `
INSERT INTO business_hours (business_id, hours, allow_overlapping, max_overlapping, updated_at)
VALUES ($1, $2::jsonb, $3, $4, NOW())
ON CONFLICT (business_id) DO UPDATE SET
    hours = EXCLUDED.hours,
    allow_overlapping = EXCLUDED.allow_overlapping,
    max_overlapping = EXCLUDED.max_overlapping,
    updated_at = NOW()
RETURNING updated_at;
`
	if err := p.pool.QueryRow(ctx, q, h.BusinessID, string(raw), h.AllowOverlapping, h.MaxOverlapping).Scan(&h.UpdatedAt); err != nil {
		return nil, fmt.Errorf("save business hours: %w", err)
	}
	return &h, nil
}

func (p *Postgres) ListAppointmentTypes(ctx context.Context, businessID string) ([]AppointmentType, error) {
	const q = `
SELECT id::text, business_id, name, duration, created_at, updated_at
FROM appointment_types
WHERE business_id = $1
ORDER BY created_at ASC;
`
	rows, err := p.pool.Query(ctx, q, businessID)
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

func (p *Postgres) GetAppointmentType(ctx context.Context, businessID, id string) (*AppointmentType, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	const q = `
SELECT id::text, business_id, name, duration, created_at, updated_at
FROM appointment_types
WHERE id = $1 AND business_id = $2;
`
	var t AppointmentType
	err := p.pool.QueryRow(ctx, q, id, businessID).Scan(&t.ID, &t.BusinessID, &t.Name, &t.Duration, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment type: %w", err)
	}
	return &t, nil
}

func (p *Postgres) SaveAppointmentType(ctx context.Context, t AppointmentType) (*AppointmentType, error) {
	if t.ID != "" {
		const q = `
UPDATE appointment_types SET name = $3, duration = $4, updated_at = NOW()
WHERE id = $1 AND business_id = $2
RETURNING created_at, updated_at;
`
		err := p.pool.QueryRow(ctx, q, t.ID, t.BusinessID, t.Name, t.Duration).Scan(&t.CreatedAt, &t.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("update appointment type: %w", err)
		}
		return &t, nil
	}

	t.ID = uuid.NewString()
	const q = `
INSERT INTO appointment_types (id, business_id, name, duration)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at;
`
	if err := p.pool.QueryRow(ctx, q, t.ID, t.BusinessID, t.Name, t.Duration).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert appointment type: %w", err)
	}
	return &t, nil
}

func (p *Postgres) DeleteAppointmentType(ctx context.Context, businessID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	ct, err := p.pool.Exec(ctx, `DELETE FROM appointment_types WHERE id = $1 AND business_id = $2`, id, businessID)
	if err != nil {
		return fmt.Errorf("delete appointment type: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const pgEventColumns = `id::text, business_id, event_id, customer_phone, customer_name, event_date, event_time,
       appointment_type_id, duration, canceled, canceled_at, simulation, created_at`

func scanPgEvent(row pgx.Row) (*CalendarEvent, error) {
	var ev CalendarEvent
	err := row.Scan(&ev.ID, &ev.BusinessID, &ev.EventID, &ev.CustomerPhone, &ev.CustomerName,
		&ev.EventDate, &ev.EventTime, &ev.AppointmentTypeID, &ev.Duration,
		&ev.Canceled, &ev.CanceledAt, &ev.Simulation, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (p *Postgres) InsertCalendarEvent(ctx context.Context, ev CalendarEvent) (*CalendarEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	const q = `
INSERT INTO calendar_events (id, business_id, event_id, customer_phone, customer_name, event_date,
    event_time, appointment_type_id, duration, simulation)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at;
`
	err := p.pool.QueryRow(ctx, q,
		ev.ID, ev.BusinessID, ev.EventID, ev.CustomerPhone, ev.CustomerName, ev.EventDate,
		ev.EventTime, ev.AppointmentTypeID, ev.Duration, ev.Simulation,
	).Scan(&ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}
	return &ev, nil
}

func (p *Postgres) GetCalendarEvent(ctx context.Context, businessID, id string) (*CalendarEvent, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	q := `SELECT ` + pgEventColumns + ` FROM calendar_events WHERE id = $1 AND business_id = $2;`
	ev, err := scanPgEvent(p.pool.QueryRow(ctx, q, id, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return ev, nil
}

func (p *Postgres) FindCalendarEventByExternalID(ctx context.Context, businessID, eventID string) (*CalendarEvent, error) {
	q := `SELECT ` + pgEventColumns + ` FROM calendar_events WHERE event_id = $1 AND business_id = $2 ORDER BY created_at DESC LIMIT 1;`
	ev, err := scanPgEvent(p.pool.QueryRow(ctx, q, eventID, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find calendar event: %w", err)
	}
	return ev, nil
}

func (p *Postgres) CancelCalendarEvent(ctx context.Context, businessID, id string, at time.Time) error {
	ct, err := p.pool.Exec(ctx, `UPDATE calendar_events SET canceled = TRUE, canceled_at = $3 WHERE id = $1 AND business_id = $2`, id, businessID, at)
	if err != nil {
		return fmt.Errorf("cancel calendar event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteCalendarEvent(ctx context.Context, businessID, id string) error {
	ct, err := p.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1 AND business_id = $2`, id, businessID)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListActiveCalendarEvents(ctx context.Context, businessID, phone string) ([]CalendarEvent, error) {
	q := `SELECT ` + pgEventColumns + `
FROM calendar_events
WHERE business_id = $1 AND customer_phone = $2 AND canceled = FALSE
ORDER BY event_date ASC, event_time ASC;`
	rows, err := p.pool.Query(ctx, q, businessID, phone)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	defer rows.Close()

	var events []CalendarEvent
	for rows.Next() {
		ev, err := scanPgEvent(rows)
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

func (p *Postgres) ListActiveCalendarEventsBetween(ctx context.Context, businessID, fromDate, toDate string) ([]CalendarEvent, error) {
	q := `SELECT ` + pgEventColumns + `
FROM calendar_events
WHERE business_id = $1 AND event_date >= $2 AND event_date <= $3 AND canceled = FALSE
ORDER BY event_date ASC, event_time ASC;`
	rows, err := p.pool.Query(ctx, q, businessID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list calendar events by date: %w", err)
	}
	defer rows.Close()

	var events []CalendarEvent
	for rows.Next() {
		ev, err := scanPgEvent(rows)
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

// applyMigrations runs each non-empty SQL file of filesystem in lexicographic order.
func applyMigrations(filesystem fs.FS, exec func(name, sql string) error) error {
	entries, err := fs.ReadDir(filesystem, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sqlBytes, err := fs.ReadFile(filesystem, entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if len(sqlBytes) == 0 {
			continue
		}
		if err := exec(entry.Name(), string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}
