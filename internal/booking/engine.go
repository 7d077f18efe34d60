package booking

import (
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/agendabot/internal/calendar"
	"github.com/teemow/agendabot/internal/google"
	"github.com/teemow/agendabot/internal/instrumentation"
	"github.com/teemow/agendabot/internal/keylock"
	"github.com/teemow/agendabot/internal/store"
)

// DefaultAppointmentDuration is used when no appointment type applies.
const DefaultAppointmentDuration = 60

// Config wires an Engine to its collaborators.
type Config struct {
	Store    store.Store
	Calendar calendar.Factory
	OAuth    google.OAuthSettings

	// Locker guards the check-then-insert window of a booking. Defaults to
	// an in-process keyed mutex.
	Locker SlotLocker

	// AllowSimulation books locally, without a calendar event, when the
	// business has no usable credential.
	AllowSimulation bool

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	Clock   Clock
}

// Engine implements the availability, booking and cancellation operations.
// It is safe for concurrent use.
type Engine struct {
	store           store.Store
	calendars       calendar.Factory
	oauth           google.OAuthSettings
	locker          SlotLocker
	allowSimulation bool
	metrics         *instrumentation.Metrics
	logger          *slog.Logger
	now             Clock
}

// New returns an Engine for cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("booking: store is required")
	}
	if cfg.Calendar == nil {
		return nil, errors.New("booking: calendar factory is required")
	}
	e := &Engine{
		store:           cfg.Store,
		calendars:       cfg.Calendar,
		oauth:           cfg.OAuth,
		locker:          cfg.Locker,
		allowSimulation: cfg.AllowSimulation,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		now:             cfg.Clock,
	}
	if e.locker == nil {
		e.locker = keylock.New()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "booking")
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// today returns midnight of the current day in the operating zone.
func (e *Engine) today() time.Time {
	now := e.now().In(operatingLocation)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, operatingLocation)
}
