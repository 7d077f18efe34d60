package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the relational store consumed by the booking engine.
type Store interface {
	GetBusinessConfig(ctx context.Context, businessID string) (*BusinessConfig, error)
	UpsertBusinessConfig(ctx context.Context, cfg BusinessConfig) error
	MarkCalendarNeedsReauth(ctx context.Context, businessID string, at time.Time) error

	GetBusinessHours(ctx context.Context, businessID string) (*BusinessHours, error)
	SaveBusinessHours(ctx context.Context, hours BusinessHours) (*BusinessHours, error)

	// ListAppointmentTypes returns the business's types in creation order.
	ListAppointmentTypes(ctx context.Context, businessID string) ([]AppointmentType, error)
	GetAppointmentType(ctx context.Context, businessID, id string) (*AppointmentType, error)
	SaveAppointmentType(ctx context.Context, t AppointmentType) (*AppointmentType, error)
	DeleteAppointmentType(ctx context.Context, businessID, id string) error

	InsertCalendarEvent(ctx context.Context, ev CalendarEvent) (*CalendarEvent, error)
	GetCalendarEvent(ctx context.Context, businessID, id string) (*CalendarEvent, error)
	FindCalendarEventByExternalID(ctx context.Context, businessID, eventID string) (*CalendarEvent, error)
	CancelCalendarEvent(ctx context.Context, businessID, id string, at time.Time) error
	DeleteCalendarEvent(ctx context.Context, businessID, id string) error
	// ListActiveCalendarEvents returns non-canceled records for a customer
	// phone ordered by date then time.
	ListActiveCalendarEvents(ctx context.Context, businessID, phone string) ([]CalendarEvent, error)
	// ListActiveCalendarEventsBetween returns the business's non-canceled
	// records dated fromDate..toDate inclusive, ordered by date then time.
	ListActiveCalendarEventsBetween(ctx context.Context, businessID, fromDate, toDate string) ([]CalendarEvent, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config selects and configures a Store implementation.
type Config struct {
	Driver     string
	URL        string // postgres connection string
	Schema     string // postgres search_path
	SQLitePath string
}

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgres(ctx, cfg.URL, cfg.Schema, logger)
	case DriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath, logger)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
